// Package extract finds URLs in free text and classifies them against an allow-list of video platforms.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/alanbriolat/clip-archiver/generic"
)

// Characters allowed after the scheme: letters, digits, the "$" to "_" range and a few extras, or a percent-escaped
// octet. Whitespace, double quotes, braces, "|", "~" and backticks end a match.
var urlPattern = regexp.MustCompile(`https?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// DefaultDomains are the platforms recognised when no explicit allow-list is configured.
var DefaultDomains = []string{
	"youtube.com",
	"youtu.be",
	"facebook.com",
	"fb.watch",
	"twitter.com",
	"instagram.com",
}

// URLs returns every URL-shaped substring of text in order of appearance. Repeated URLs are all returned.
func URLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// AllowList is a set of root domains. A host is allowed if it equals one of them or is a subdomain of one.
type AllowList struct {
	domains generic.Set[string]
}

func NewAllowList(domains ...string) *AllowList {
	l := &AllowList{domains: generic.NewSet[string]()}
	for _, d := range domains {
		d = normalizeHost(strings.TrimSuffix(strings.TrimSpace(d), "."))
		if d != "" {
			l.domains.Add(d)
		}
	}
	return l
}

// Domains returns the allowed root domains, sorted.
func (l *AllowList) Domains() []string {
	return generic.Sorted(l.domains)
}

// IsSupported reports whether rawURL points at an allowed domain. Anything that fails to parse is unsupported.
func (l *AllowList) IsSupported(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := normalizeHost(parsed.Hostname())
	if host == "" {
		return false
	}
	return l.matchHost(host)
}

// matchHost walks up the host one label at a time, so "a.b.youtube.com" checks "a.b.youtube.com", "b.youtube.com"
// then "youtube.com". Matching whole labels means "notyoutube.com" never matches "youtube.com".
func (l *AllowList) matchHost(host string) bool {
	for {
		if l.domains.Contains(host) {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
