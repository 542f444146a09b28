package seen

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHashURL(t *testing.T) {
	assert := assert_.New(t)
	a := HashURL("https://youtube.com/watch?v=abc123")
	assert.Len(a, 40)
	assert.Equal(a, HashURL("https://youtube.com/watch?v=abc123"))
	assert.NotEqual(a, HashURL("https://youtube.com/watch?v=abc124"))
	assert.Equal(ID("da39a3ee5e6b4b0d3255bfef95601890afd80709"), HashURL(""))
}

func TestSetInMemory(t *testing.T) {
	assert := assert_.New(t)
	s, err := New(nil, zap.NewNop())
	require.NoError(t, err)

	id := HashURL("https://youtu.be/1")
	assert.False(s.Contains(id))
	assert.True(s.Insert(id))
	assert.True(s.Contains(id))
	assert.False(s.Insert(id))
	assert.Equal(1, s.Count())
	assert.NoError(s.Commit(id))
	assert.NoError(s.Close())
}

func TestSetConcurrentInsertIsAtMostOnce(t *testing.T) {
	s, err := New(nil, zap.NewNop())
	require.NoError(t, err)
	id := HashURL("https://youtu.be/1")

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Insert(id) {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert_.Equal(t, int32(1), winners.Load())
}

type countingArchive struct {
	NilArchive
	appended []ID
}

func (a *countingArchive) Append(id ID) error {
	a.appended = append(a.appended, id)
	return nil
}

func TestCommitAppendsOnce(t *testing.T) {
	assert := assert_.New(t)
	archive := &countingArchive{}
	s, err := New(archive, zap.NewNop())
	require.NoError(t, err)

	id := HashURL("https://youtu.be/1")
	assert.True(s.Insert(id))
	assert.NoError(s.Commit(id))
	assert.NoError(s.Commit(id))
	assert.Equal([]ID{id}, archive.appended)
}

func TestFileArchive(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "nested", "archive.txt")

	// Missing file is an empty archive
	s, err := New(NewFileArchive(path), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(0, s.Count())

	a, b := HashURL("https://youtu.be/a"), HashURL("https://youtu.be/b")
	assert.NoError(s.Commit(a))
	assert.True(s.Insert(b)) // attempted but not committed
	assert.NoError(s.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(string(a)+"\n", string(content))

	s, err = New(NewFileArchive(path), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.True(s.Contains(a))
	assert.False(s.Contains(b))

	// Appending after reload keeps earlier lines
	assert.NoError(s.Commit(b))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(string(a)+"\n"+string(b)+"\n", string(content))
}

func TestFileArchiveIgnoresBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc\n\n  \ndef\n"), 0600))
	ids, err := NewFileArchive(path).Load()
	require.NoError(t, err)
	assert_.Equal(t, []ID{"abc", "def"}, ids)
}

func TestBoltArchive(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "archive.db")

	archive, err := OpenArchive("bolt", path)
	require.NoError(t, err)
	s, err := New(archive, zap.NewNop())
	require.NoError(t, err)
	id := HashURL("https://youtu.be/a")
	assert.NoError(s.Commit(id))
	assert.NoError(s.Close())

	archive, err = OpenArchive("bolt", path)
	require.NoError(t, err)
	s, err = New(archive, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.True(s.Contains(id))
	assert.Equal(1, s.Count())
}

func TestOpenArchive(t *testing.T) {
	assert := assert_.New(t)

	a, err := OpenArchive("file", "")
	assert.NoError(err)
	assert.IsType(NilArchive{}, a)

	a, err = OpenArchive("", filepath.Join(t.TempDir(), "a.txt"))
	assert.NoError(err)
	assert.IsType(&FileArchive{}, a)

	_, err = OpenArchive("redis", "somewhere")
	assert.ErrorIs(err, ErrUnknownBackend)
}
