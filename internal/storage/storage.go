package storage

import (
	"context"
	"errors"
	"fmt"

	"lpMinter/internal/model"
)

// Sink defines a destination for mint records.
type Sink interface {
	PutMintRecords(ctx context.Context, records []model.MintRecord) error
}

// MultiSink writes each batch to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) PutMintRecords(ctx context.Context, records []model.MintRecord) error {
	var errs []error
	for i, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutMintRecords(ctx, records); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Notifier adapts a Sink to the single-record notification used by the minter.
type Notifier struct {
	Sink Sink
}

func (n Notifier) Notify(ctx context.Context, record model.MintRecord) error {
	if n.Sink == nil {
		return nil
	}
	return n.Sink.PutMintRecords(ctx, []model.MintRecord{record})
}
