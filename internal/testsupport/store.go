package testsupport

import (
	"testing"

	"gocloud.dev/blob/memblob"

	"bookcast/internal/storage"
)

// NewStore returns an in-memory artifact store that is closed with the test.
func NewStore(t testing.TB) *storage.Store {
	t.Helper()
	store := storage.NewFromBucket(memblob.OpenBucket(nil))
	t.Cleanup(func() { store.Close() })
	return store
}
