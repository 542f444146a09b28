package clip_archiver

import (
	"context"
	"errors"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	url      string
	info     SourceInfo
	reconErr error
	download func(Download) error
}

func (s *fakeSource) URL() string { return s.url }

func (s *fakeSource) Recon(context.Context, DownloadOptions) (ResolvedSource, error) {
	if s.reconErr != nil {
		return nil, s.reconErr
	}
	return s, nil
}

func (s *fakeSource) Info() SourceInfo { return s.info }

func (s *fakeSource) Download(d Download) error {
	if s.download == nil {
		return nil
	}
	return s.download(d)
}

func prefixMatcher(prefix string) MatchFunc {
	return func(s string) (Source, error) {
		if !strings.HasPrefix(s, prefix) {
			return nil, errors.New("wrong prefix")
		}
		return &fakeSource{url: s}, nil
	}
}

func TestProviderRegistry(t *testing.T) {
	assert := assert_.New(t)
	var r ProviderRegistry

	assert.ErrorIs(r.Add(Provider{Name: "nomatch"}), ErrInvalidProvider)
	assert.ErrorIs(r.Add(Provider{Match: prefixMatcher("x")}), ErrInvalidProvider)

	require.NoError(t, r.Add(Provider{Name: "any", Match: prefixMatcher("http"), Priority: PriorityLowest}))
	require.NoError(t, r.Add(Provider{Name: "secure", Match: prefixMatcher("https")}))
	require.NoError(t, r.Add(Provider{Name: "first", Match: prefixMatcher("https://first"), Priority: PriorityHighest}))
	assert.ErrorIs(r.Add(Provider{Name: "any", Match: prefixMatcher("")}), ErrDuplicateProvider)
	assert.Equal([]string{"first", "secure", "any"}, r.Names())

	m, err := r.Match("https://first.example")
	require.NoError(t, err)
	assert.Equal("first", m.ProviderName)
	m, err = r.Match("https://other.example")
	require.NoError(t, err)
	assert.Equal("secure", m.ProviderName)
	m, err = r.Match("http://other.example")
	require.NoError(t, err)
	assert.Equal("any", m.ProviderName)

	_, err = r.Match("ftp://nowhere")
	assert.ErrorIs(err, ErrNoMatch)
	assert.Contains(err.Error(), "[secure] wrong prefix")

	require.NoError(t, r.SetPriority("any", -1))
	assert.Equal([]string{"first", "any", "secure"}, r.Names())
	assert.ErrorIs(r.SetPriority("missing", 0), ErrUnknownProvider)
}

func TestProviderRegistrySubset(t *testing.T) {
	assert := assert_.New(t)
	var r ProviderRegistry
	r.MustAdd(Provider{Name: "a", Match: prefixMatcher("a"), Priority: 2})
	r.MustAdd(Provider{Name: "b", Match: prefixMatcher("b"), Priority: 1})
	r.MustAdd(Provider{Name: "c", Match: prefixMatcher("c"), Priority: 3})

	s, err := r.Subset("c", "a")
	require.NoError(t, err)
	assert.Equal([]string{"a", "c"}, s.Names())
	_, err = s.Match("b")
	assert.ErrorIs(err, ErrNoMatch)

	all, err := r.Subset()
	require.NoError(t, err)
	assert.Equal(r.Names(), all.Names())

	_, err = r.Subset("a", "z")
	assert.ErrorIs(err, ErrUnknownProvider)

	var empty ProviderRegistry
	_, err = empty.Match("anything")
	assert.ErrorIs(err, ErrNoMatch)
	assert.Panics(func() { r.MustAdd(Provider{Name: "a", Match: prefixMatcher("a")}) })
}
