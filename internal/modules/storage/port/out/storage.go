package out

import "context"

// KVStore is a string key-value store. Get reports a missing key with
// ok == false and a nil error.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
