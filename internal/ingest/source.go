// Package ingest defines how offer inventory enters the system from
// external suppliers.
package ingest

import (
	"context"

	"tripsolver/internal/model"
)

// OfferSource is the minimal interface for supplier integrations. A
// source returns batches; the cursor is source-defined and opaque.
type OfferSource interface {
	Name() string
	FetchOffers(ctx context.Context, cursor string) (OfferBatch, error)
}

type OfferBatch struct {
	Offers model.OfferSet
	Cursor string
}

// Sync drains a source into the tenant catalog until the cursor stops
// advancing. Returns the number of offers imported.
func Sync(ctx context.Context, src OfferSource, importFn func(context.Context, model.OfferSet) (int, error)) (int, error) {
	total := 0
	cursor := ""
	for {
		batch, err := src.FetchOffers(ctx, cursor)
		if err != nil {
			return total, err
		}
		n, err := importFn(ctx, batch.Offers)
		if err != nil {
			return total, err
		}
		total += n
		if batch.Cursor == "" || batch.Cursor == cursor {
			return total, nil
		}
		cursor = batch.Cursor
	}
}
