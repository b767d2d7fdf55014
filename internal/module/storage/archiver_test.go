package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	mu    sync.Mutex
	puts  map[string][]byte
	types map[string]string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = make(map[string][]byte)
		f.types = make(map[string]string)
	}
	f.puts[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakePutter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func newVendorServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/clip.mp4", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	})
	mux.HandleFunc("/cover.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpg-bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestArchiver_ArchiveOutput(t *testing.T) {
	srv := newVendorServer(t)
	putter := &fakePutter{}
	recordID := uuid.New()

	a := NewArchiver(ArchiverConfig{
		Store:         putter,
		PublicBaseURL: "https://cdn.vidgo.dev/",
		HTTPClient:    srv.Client(),
	})

	output := map[string]any{
		"video_url": srv.URL + "/clip.mp4",
		"cover_url": srv.URL + "/cover.jpg",
		"duration":  5,
	}

	archived, err := a.ArchiveOutput(context.Background(), recordID, output)
	require.NoError(t, err)

	wantVideo := "https://cdn.vidgo.dev/generations/" + recordID.String() + "/video.mp4"
	wantCover := "https://cdn.vidgo.dev/generations/" + recordID.String() + "/cover.jpg"
	assert.Equal(t, wantVideo, archived["video_url"])
	assert.Equal(t, wantCover, archived["cover_url"])
	assert.Equal(t, 5, archived["duration"])

	// Vendor URLs in the caller's map stay untouched.
	assert.Equal(t, srv.URL+"/clip.mp4", output["video_url"])

	assert.Equal(t, []byte("mp4-bytes"), putter.puts["generations/"+recordID.String()+"/video.mp4"])
	assert.Equal(t, "video/mp4", putter.types["generations/"+recordID.String()+"/video.mp4"])
}

func TestArchiver_ArchiveOutput_URLList(t *testing.T) {
	srv := newVendorServer(t)
	putter := &fakePutter{}
	recordID := uuid.New()

	a := NewArchiver(ArchiverConfig{
		Store:         putter,
		PublicBaseURL: "https://cdn.vidgo.dev",
		HTTPClient:    srv.Client(),
	})

	output := map[string]any{
		"video_urls": []any{srv.URL + "/clip.mp4", srv.URL + "/clip.mp4"},
	}

	archived, err := a.ArchiveOutput(context.Background(), recordID, output)
	require.NoError(t, err)

	urls, ok := archived["video_urls"].([]any)
	require.True(t, ok)
	require.Len(t, urls, 2)
	assert.Equal(t, "https://cdn.vidgo.dev/generations/"+recordID.String()+"/video_0.mp4", urls[0])
	assert.Equal(t, "https://cdn.vidgo.dev/generations/"+recordID.String()+"/video_1.mp4", urls[1])
	assert.Equal(t, 2, putter.count())
}

func TestArchiver_DownloadFailureKeepsVendorURL(t *testing.T) {
	srv := newVendorServer(t)
	putter := &fakePutter{}

	a := NewArchiver(ArchiverConfig{
		Store:         putter,
		PublicBaseURL: "https://cdn.vidgo.dev",
		HTTPClient:    srv.Client(),
	})

	src := srv.URL + "/missing.mp4"
	archived, err := a.ArchiveOutput(context.Background(), uuid.New(), map[string]any{"video_url": src})
	require.NoError(t, err)

	assert.Equal(t, src, archived["video_url"])
	assert.Equal(t, 0, putter.count())
}

func TestArchiver_UploadFailureKeepsVendorURL(t *testing.T) {
	srv := newVendorServer(t)
	putter := &fakePutter{err: assert.AnError}

	a := NewArchiver(ArchiverConfig{
		Store:         putter,
		PublicBaseURL: "https://cdn.vidgo.dev",
		HTTPClient:    srv.Client(),
	})

	src := srv.URL + "/clip.mp4"
	archived, err := a.ArchiveOutput(context.Background(), uuid.New(), map[string]any{"video_url": src})
	require.NoError(t, err)

	assert.Equal(t, src, archived["video_url"])
}

func TestObjectKey(t *testing.T) {
	recordID := uuid.New()

	key := objectKey(recordID, "video", "https://vendor.example/files/out.mp4?sig=abc", "")
	assert.Equal(t, "generations/"+recordID.String()+"/video.mp4", key)

	// No extension in the URL: fall back to the content type.
	key = objectKey(recordID, "video", "https://vendor.example/files/12345", "video/mp4")
	assert.Contains(t, key, "generations/"+recordID.String()+"/video")
}
