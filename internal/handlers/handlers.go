package handlers

import (
	"context"

	"media-decoder/internal/content"
	"media-decoder/internal/decode"
	"media-decoder/internal/pipeline"
)

// Decoder runs decode requests.
type Decoder interface {
	Decode(ctx context.Context, req decode.Request) (*pipeline.Result, error)
}

// RecordStore persists content records.
type RecordStore interface {
	Upsert(ctx context.Context, rec content.Record) error
	Count(ctx context.Context) (int, error)
}

type Handlers struct {
	decoder Decoder
	records RecordStore
}

func New(decoder Decoder, records RecordStore) *Handlers {
	return &Handlers{
		decoder: decoder,
		records: records,
	}
}
