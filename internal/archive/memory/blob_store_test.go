package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("<html>content</html>")
	uri, err := store.PutObject(context.Background(), "runs/abc/bbc-news.html", "text/html", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://runs/abc/bbc-news.html", uri)

	payload[1] = 'H'
	stored, ok := store.Get("runs/abc/bbc-news.html")
	require.True(t, ok)
	require.Equal(t, "<html>content</html>", string(stored))
	require.Equal(t, 1, store.Len())
}

func TestBlobStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, ok := store.Get("missing")
	require.False(t, ok)
}
