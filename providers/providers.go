// Package providers registers every built-in provider with clip_archiver.DefaultProviderRegistry when imported.
package providers

import (
	_ "github.com/alanbriolat/clip-archiver/provider/raw"
	_ "github.com/alanbriolat/clip-archiver/provider/youtube"
	_ "github.com/alanbriolat/clip-archiver/provider/ytdlp"
)
