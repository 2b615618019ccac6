package storage

import (
	"context"
	"time"
)

// SaveStore encodes state blobs with a Codec before they reach the
// repository.
type SaveStore struct {
	repo  SaveRepository
	codec Codec
}

func NewSaveStore(repo SaveRepository, codec Codec) *SaveStore {
	return &SaveStore{repo: repo, codec: codec}
}

// Put stores raw under slot.
func (s *SaveStore) Put(ctx context.Context, slot string, ping int64, raw []byte) error {
	blob, err := s.codec.Encode(raw)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, SaveRecord{Slot: slot, Ping: ping, Blob: blob, UpdatedAt: time.Now().UTC()})
}

// Get loads a slot. A blob the codec cannot decode is returned as stored;
// decoded reports which case applied.
func (s *SaveStore) Get(ctx context.Context, slot string) (raw []byte, decoded bool, err error) {
	rec, err := s.repo.Load(ctx, slot)
	if err != nil {
		return nil, false, err
	}
	raw, decoded = DecodeOrRaw(s.codec, rec.Blob)
	return raw, decoded, nil
}

// List returns the stored slots.
func (s *SaveStore) List(ctx context.Context) ([]SaveRecord, error) {
	return s.repo.List(ctx)
}

// Delete removes a slot.
func (s *SaveStore) Delete(ctx context.Context, slot string) error {
	return s.repo.Delete(ctx, slot)
}
