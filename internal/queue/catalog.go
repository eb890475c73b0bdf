package queue

import (
	"context"
	"fmt"
	"time"

	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
)

// Info describes a queue found in the catalog.
type Info struct {
	Name      string
	Mode      Mode
	CreatedAt time.Time
}

// List returns every queue recorded in the catalog, in name order.
func List(ctx context.Context, db *pebblestore.DB) ([]Info, error) {
	txn, err := db.Begin(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer txn.Abort()

	lo, hi := CatalogBounds()
	iter, err := txn.Scan(lo, hi)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	var out []Info
	for ok := iter.First(); ok; ok = iter.Next() {
		name, perr := ParseCatalogName(iter.Key())
		if perr != nil {
			iter.Close()
			return nil, perr
		}
		mode, createdMs, perr := decodeMeta(iter.Value())
		if perr != nil {
			iter.Close()
			return nil, perr
		}
		out = append(out, Info{Name: name, Mode: mode, CreatedAt: time.UnixMilli(createdMs)})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return out, nil
}
