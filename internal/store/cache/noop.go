package cache

import (
	"context"

	"github.com/danrygg/wovenflow/internal/fingerprint"
)

// NullStore is a Cache Store that never hits and never persists, backing
// `--no-cache`: every task fingerprint is treated as a miss, so the
// Coordinator's singleflight collapsing is the only effect left in place.
type NullStore struct{}

func NewNullStore() *NullStore { return &NullStore{} }

func (NullStore) Get(context.Context, fingerprint.Fingerprint) (*Entry, bool, error) {
	return nil, false, nil
}
func (NullStore) Put(context.Context, Entry) error { return nil }
func (NullStore) Close() error                     { return nil }
