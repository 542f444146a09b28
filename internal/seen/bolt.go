package seen

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var Buckets = struct {
	Metadata []byte
	Seen     []byte
}{
	Metadata: []byte("__metadata__"),
	Seen:     []byte("seen"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

// BoltArchive keeps IDs as keys of a bbolt bucket, with the time they were added as the value.
type BoltArchive struct {
	db *bbolt.DB
}

func NewBoltArchive(path string) (*BoltArchive, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		metadata, err := tx.CreateBucketIfNotExists(Buckets.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Seen); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes != nil {
			if err := json.Unmarshal(versionBytes, &version); err != nil {
				return err
			}
		}
		if version > currentVersion {
			return fmt.Errorf("archive version %d is newer than supported version %d", version, currentVersion)
		}

		versionBytes, err := json.Marshal(currentVersion)
		if err != nil {
			return err
		}
		return metadata.Put(MetadataKeys.Version, versionBytes)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltArchive{db}, nil
}

func (a *BoltArchive) Load() (ids []ID, err error) {
	err = a.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.Seen).ForEach(func(k, _ []byte) error {
			ids = append(ids, ID(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *BoltArchive) Append(id ID) error {
	added, err := time.Now().UTC().MarshalText()
	if err != nil {
		return err
	}
	return a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.Seen).Put([]byte(id), added)
	})
}

func (a *BoltArchive) Close() error {
	return a.db.Close()
}
