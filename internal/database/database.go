package database

import (
	"log"
	"strings"
)

// BlobKey is the fixed key under which the serialized dream collection lives.
// It matches the original browser storage key so exported blobs stay portable.
const BlobKey = "dreamWeaverDreams"

// Store is the persistence port for the dream collection blob.
// LoadBlob returns (nil, nil) when nothing has been stored yet.
type Store interface {
	LoadBlob() ([]byte, error)
	SaveBlob(data []byte) error
	Close() error
}

// Open creates a store for the given path.
// Paths ending in .db open the embedded SQLite key-value store; anything
// else is treated as a plain JSON file.
func Open(path string) (Store, error) {
	if strings.HasSuffix(path, ".db") {
		store, err := newSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		log.Printf("✅ SQLite storage opened at %s", path)
		return store, nil
	}

	log.Printf("✅ File storage at %s", path)
	return newFileStore(path), nil
}
