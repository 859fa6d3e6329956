package infra

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zd4y/audionotes/internal/ports"
)

// fakeBlobService implements just enough of the Azure Blob REST surface for
// the client: staged blocks, block list commit, ranged reads and deletes.
type fakeBlobService struct {
	mu           sync.Mutex
	blocks       map[string]map[string][]byte
	blobs        map[string][]byte
	contentTypes map[string]string
	putBlockIDs  []string
	lastAuth     string
}

func newFakeBlobService() *fakeBlobService {
	return &fakeBlobService{
		blocks:       make(map[string]map[string][]byte),
		blobs:        make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (f *fakeBlobService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.lastAuth = r.Header.Get("Authorization")
		path := r.URL.Path

		switch {
		case r.Method == http.MethodPut && r.URL.Query().Get("comp") == "block":
			body, _ := io.ReadAll(r.Body)
			id := r.URL.Query().Get("blockid")
			if f.blocks[path] == nil {
				f.blocks[path] = make(map[string][]byte)
			}
			f.blocks[path][id] = body
			f.putBlockIDs = append(f.putBlockIDs, id)
			w.WriteHeader(http.StatusCreated)

		case r.Method == http.MethodPut && r.URL.Query().Get("comp") == "blocklist":
			body, _ := io.ReadAll(r.Body)
			var list azureBlockList
			_ = xml.Unmarshal(body, &list)
			blob := []byte{}
			for _, id := range list.Latest {
				blob = append(blob, f.blocks[path][id]...)
			}
			f.blobs[path] = blob
			f.contentTypes[path] = r.Header.Get("x-ms-blob-content-type")
			w.WriteHeader(http.StatusCreated)

		case r.Method == http.MethodGet:
			blob, ok := f.blobs[path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var start, end int
			if _, err := fmt.Sscanf(r.Header.Get("x-ms-range"), "bytes=%d-%d", &start, &end); err != nil {
				_, _ = w.Write(blob)
				return
			}
			if start >= len(blob) {
				w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
				return
			}
			if end >= len(blob) {
				end = len(blob) - 1
			}
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(blob[start : end+1])

		case r.Method == http.MethodDelete:
			if _, ok := f.blobs[path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(f.blobs, path)
			w.WriteHeader(http.StatusAccepted)

		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

func newTestAzureStorage(t *testing.T, serverURL string) *AzureAudioStorage {
	t.Helper()

	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))
	storage, err := NewAzureAudioStorage("testaccount", key, "audios")
	require.NoError(t, err)

	// tiny sizes so a small payload crosses block and page boundaries
	storage.endpoint = serverURL
	storage.blockSize = 8
	storage.pageSize = 5
	return storage
}

func blockID(i int) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%08X", i)))
}

func TestAzureStorageRoundTripAcrossBoundaries(t *testing.T) {
	t.Parallel()

	fake := newFakeBlobService()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	storage := newTestAzureStorage(t, server.URL)

	// 20 bytes: three blocks of 8+8+4, four read pages of 5
	payload := []byte("abcdefghijklmnopqrst")
	written, err := storage.Store(context.Background(), 7, bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), written)

	require.Equal(t, []string{blockID(0), blockID(1), blockID(2)}, fake.putBlockIDs)
	require.Equal(t, ports.AudioMimetype, fake.contentTypes["/audios/7.webm"])
	require.True(t, strings.HasPrefix(fake.lastAuth, "SharedKey testaccount:"))

	file, err := storage.Get(context.Background(), 7)
	require.NoError(t, err)
	defer file.Close()

	got, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestAzureStorageShortLastPage(t *testing.T) {
	t.Parallel()

	fake := newFakeBlobService()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	storage := newTestAzureStorage(t, server.URL)

	payload := []byte("thirteen byte") // 13 bytes: pages of 5+5+3
	_, err := storage.Store(context.Background(), 1, bytes.NewReader(payload))
	require.NoError(t, err)

	file, err := storage.Get(context.Background(), 1)
	require.NoError(t, err)
	defer file.Close()

	got, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestAzureStorageEmptyBlob(t *testing.T) {
	t.Parallel()

	fake := newFakeBlobService()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	storage := newTestAzureStorage(t, server.URL)

	written, err := storage.Store(context.Background(), 2, bytes.NewReader(nil))
	require.NoError(t, err)
	require.Zero(t, written)
	require.Empty(t, fake.putBlockIDs)

	file, err := storage.Get(context.Background(), 2)
	require.NoError(t, err)
	defer file.Close()

	got, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestAzureStorageGetMissing(t *testing.T) {
	t.Parallel()

	fake := newFakeBlobService()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	storage := newTestAzureStorage(t, server.URL)

	_, err := storage.Get(context.Background(), 42)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestAzureStorageDelete(t *testing.T) {
	t.Parallel()

	fake := newFakeBlobService()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	storage := newTestAzureStorage(t, server.URL)

	_, err := storage.Store(context.Background(), 3, strings.NewReader("clip"))
	require.NoError(t, err)

	require.NoError(t, storage.Delete(context.Background(), 3))

	_, err = storage.Get(context.Background(), 3)
	require.ErrorIs(t, err, ports.ErrNotFound)

	err = storage.Delete(context.Background(), 3)
	require.ErrorIs(t, err, ports.ErrNotFound)
}
