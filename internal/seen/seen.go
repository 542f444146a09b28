// Package seen records which URLs have already been dispatched, so that the same video is never downloaded twice.
package seen

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alanbriolat/clip-archiver/generic"
	"github.com/alanbriolat/clip-archiver/internal/sync_"
)

// ID identifies a URL: the hex SHA-1 of the exact URL string.
type ID string

func HashURL(url string) ID {
	sum := sha1.Sum([]byte(url))
	return ID(hex.EncodeToString(sum[:]))
}

// Archive is the durable part of a Set. Load is called once, Append for every ID that should survive a restart.
type Archive interface {
	Load() ([]ID, error)
	Append(id ID) error
	Close() error
}

// NilArchive keeps nothing.
type NilArchive struct{}

func (NilArchive) Load() ([]ID, error) { return nil, nil }
func (NilArchive) Append(ID) error     { return nil }
func (NilArchive) Close() error        { return nil }

// Set is the set of dispatched IDs for the life of the process, seeded from an Archive. Safe for concurrent use;
// Insert reports whether the caller was the one to add the ID, so at most one caller ever wins for a given ID.
type Set struct {
	state   *sync_.RWMutexed[state]
	archive Archive
	log     *zap.SugaredLogger
}

// New creates a Set containing everything in archive. A nil archive means in-memory only.
func New(archive Archive, logger *zap.Logger) (*Set, error) {
	if archive == nil {
		archive = NilArchive{}
	}
	loaded, err := archive.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load archive: %w", err)
	}
	s := &Set{
		state: sync_.NewRWMutexed(state{
			ids:      generic.NewSet(loaded...),
			archived: generic.NewSet(loaded...),
		}),
		archive: archive,
		log:     logger.Named("seen").Sugar(),
	}
	s.log.Debugf("loaded %d entries from archive", s.Count())
	return s, nil
}

type state struct {
	ids      generic.Set[ID]
	archived generic.Set[ID]
}

func (s *Set) Contains(id ID) (found bool) {
	_ = s.state.RLocked(func(st state) error {
		found = st.ids.Contains(id)
		return nil
	})
	return found
}

// Insert adds id in memory only, returning false if it was already present.
func (s *Set) Insert(id ID) (added bool) {
	_ = s.state.Locked(func(st *state) error {
		added = st.ids.Add(id)
		return nil
	})
	return added
}

// Commit adds id in memory and appends it to the archive. The archive is written at most once per ID, even if the ID
// was already inserted in memory.
func (s *Set) Commit(id ID) error {
	return s.state.Locked(func(st *state) error {
		st.ids.Add(id)
		if st.archived.Contains(id) {
			return nil
		}
		if err := s.archive.Append(id); err != nil {
			return fmt.Errorf("failed to append %s to archive: %w", id, err)
		}
		st.archived.Add(id)
		return nil
	})
}

func (s *Set) Count() (n int) {
	_ = s.state.RLocked(func(st state) error {
		n = st.ids.Count()
		return nil
	})
	return n
}

func (s *Set) Close() error {
	return s.archive.Close()
}

var ErrUnknownBackend = errors.New("unknown archive backend")

// OpenArchive opens the archive at path with the named backend ("file" or "bolt"). An empty path gives NilArchive.
func OpenArchive(backend string, path string) (Archive, error) {
	if path == "" {
		return NilArchive{}, nil
	}
	switch backend {
	case "", "file":
		return NewFileArchive(path), nil
	case "bolt":
		return NewBoltArchive(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
