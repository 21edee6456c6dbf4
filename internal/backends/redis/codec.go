package redis

import (
	"brokerfront/internal/types"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// Entries are stored as zstd-compressed JSON; broker configs carry full themes and page maps.
var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

func encodeEntry(e types.CacheEntry) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(b, nil), nil
}

func decodeEntry(b []byte) (types.CacheEntry, error) {
	raw, err := dec.DecodeAll(b, nil)
	if err != nil {
		return types.CacheEntry{}, fmt.Errorf("zstd: %w", err)
	}
	var e types.CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return types.CacheEntry{}, err
	}
	return e, nil
}
