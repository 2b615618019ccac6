package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec is the opaque transform between an encoded state blob and its
// stored form.
type Codec interface {
	Encode(raw []byte) ([]byte, error)
	Decode(stored []byte) ([]byte, error)
}

// ZstdCodec compresses save blobs with zstd.
type ZstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCodec creates a codec. Encoder and decoder are reused and safe
// for concurrent EncodeAll/DecodeAll.
func NewZstdCodec() (*ZstdCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &ZstdCodec{enc: enc, dec: dec}, nil
}

func (c *ZstdCodec) Encode(raw []byte) ([]byte, error) {
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *ZstdCodec) Decode(stored []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("decoding save blob: %w", err)
	}
	return out, nil
}

// Close releases the decoder's goroutines.
func (c *ZstdCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// DecodeOrRaw decodes stored and falls back to the stored bytes unchanged
// when decoding fails. The boolean reports whether decoding succeeded.
func DecodeOrRaw(c Codec, stored []byte) ([]byte, bool) {
	out, err := c.Decode(stored)
	if err != nil {
		return stored, false
	}
	return out, true
}
