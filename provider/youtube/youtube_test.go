package youtube

import (
	"net/url"
	"testing"

	"github.com/kkdai/youtube/v2"
	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/clip-archiver"
)

func TestExtractVideoID(t *testing.T) {
	valid := map[string]string{
		"https://www.youtube.com/watch?v=abc123":          "abc123",
		"https://youtube.com/watch?v=abc123&t=10":         "abc123",
		"http://m.youtube.com/details?v=abc123":           "abc123",
		"https://music.youtube.com/watch?v=abc123":        "abc123",
		"https://www.youtube.com/v/abc123":                "abc123",
		"https://www.youtube.com/embed/abc123?autoplay=1": "abc123",
		"https://youtube.com/shorts/abc123":               "abc123",
		"https://youtu.be/abc123":                         "abc123",
		"https://YOUTU.BE/abc123/":                        "abc123",
	}
	for raw, expected := range valid {
		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		id, err := extractVideoID(parsed)
		if assert_.NoError(t, err, raw) {
			assert_.Equal(t, expected, id, raw)
		}
	}

	invalid := []string{
		"https://www.youtube.com/watch",
		"https://www.youtube.com/",
		"https://www.youtube.com/channel/xyz",
		"https://youtu.be/",
		"https://youtu.be/a/b",
		"https://vimeo.com/123",
	}
	for _, raw := range invalid {
		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		_, err = extractVideoID(parsed)
		assert_.Error(t, err, raw)
	}
}

func TestMatch(t *testing.T) {
	assert := assert_.New(t)
	s, err := Match("https://youtu.be/abc123")
	require.NoError(t, err)
	assert.Equal("https://www.youtube.com/watch?v=abc123", s.URL())

	_, err = Match("https://example.com/watch?v=abc123")
	assert.Error(err)
}

var testFormats = []youtube.Format{
	{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360, Bitrate: 500, AudioChannels: 2},
	{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Height: 720, Bitrate: 1500, AudioChannels: 2},
	{ItagNo: 43, MimeType: `video/webm; codecs="vp8.0, vorbis"`, Height: 360, Bitrate: 600, AudioChannels: 2},
	{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Height: 1080, Bitrate: 4000},
	{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 128, AudioChannels: 2},
	{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160, AudioChannels: 2},
}

func TestSelectFormat(t *testing.T) {
	assert := assert_.New(t)
	pick := func(quality string, container string) int {
		q, err := clip_archiver.ParseQuality(quality)
		require.NoError(t, err)
		f, err := selectFormat(testFormats, q, container)
		require.NoError(t, err)
		return f.ItagNo
	}

	assert.Equal(22, pick("best", ""))
	assert.Equal(22, pick("best", "mp4"))
	assert.Equal(43, pick("best", "webm"))
	assert.Equal(18, pick("worst", "mp4"))
	assert.Equal(18, pick("480p", "mp4"))
	assert.Equal(22, pick("720", "mp4"))
	// Below every available height falls back to the smallest
	assert.Equal(18, pick("144p", "mp4"))
	// Unknown container is only a preference
	assert.Equal(22, pick("best", "mkv"))
	assert.Equal(251, pick("audio", ""))
	assert.Equal(140, pick("audio", "m4a"))

	_, err := selectFormat(testFormats[3:4], clip_archiver.Quality{}, "")
	assert.ErrorIs(err, ErrNoFormat)
}

func TestExtension(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("mp4", extension(`video/mp4; codecs="avc1"`))
	assert.Equal("m4a", extension("audio/mp4"))
	assert.Equal("webm", extension("audio/webm"))
	assert.Equal("3gp", extension("video/3gpp"))
	assert.Equal("bin", extension(""))
}
