package server

import (
	"database/sql"
	"fmt"

	"github.com/SebastianChristoph/industrygame-sub000/internal/infra/storage"
)

// Store bundles the SQLite database with its repositories and the save
// codec.
type Store struct {
	DB     *sql.DB
	Events *storage.SQLiteEventRepository
	Saves  *storage.SaveStore
	Recaps *storage.Reconstructor
	codec  *storage.ZstdCodec
}

// OpenStore opens (or creates) the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := storage.InitSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	codec, err := storage.NewZstdCodec()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}
	events := storage.NewSQLiteEventRepository(db)
	return &Store{
		DB:     db,
		Events: events,
		Saves:  storage.NewSaveStore(storage.NewSQLiteSaveRepository(db), codec),
		Recaps: storage.NewReconstructor(events),
		codec:  codec,
	}, nil
}

// Close releases the codec and the database.
func (s *Store) Close() error {
	s.codec.Close()
	return s.DB.Close()
}
