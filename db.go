// Package tidesql is the embeddable entry point: open a database, start
// sessions, run SQL statements.
package tidesql

import (
	"fmt"
	"log/slog"

	"github.com/tidesql/tidesql/internal/engine"
	"github.com/tidesql/tidesql/internal/storage"
)

// Storage modes accepted by Open.
const (
	ModeMemory = "memory"
	ModeDisk   = "disk"
)

// DB is one database instance. It is safe for concurrent use; every
// client works through its own Session.
type DB struct {
	eng *engine.Engine
}

// Open creates or reopens a database. workdir is only used in disk mode.
func Open(mode, workdir string) (*DB, error) {
	var store storage.Engine
	switch mode {
	case ModeMemory, "":
		store = storage.NewMemory()
	case ModeDisk:
		disk, err := storage.OpenDisk(workdir)
		if err != nil {
			return nil, err
		}
		store = disk
	default:
		return nil, fmt.Errorf("tidesql: unknown storage mode %q", mode)
	}

	eng, err := engine.New(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	slog.Info("database open", "mode", mode, "workdir", workdir)
	return &DB{eng: eng}, nil
}

func (db *DB) Close() error {
	return db.eng.Close()
}

// Session starts a session with no transaction open.
func (db *DB) Session() *Session {
	return &Session{db: db}
}
