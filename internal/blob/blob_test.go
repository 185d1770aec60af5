package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 42) }

func TestObjectName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		want     string
	}{
		{"plain", "voice.mp3", "1700000000000000042-voice.mp3"},
		{"strips directories", "../../etc/passwd.mp3", "1700000000000000042-passwd.mp3"},
		{"windows path", `C:\Users\me\memo.m4a`, "1700000000000000042-memo.m4a"},
		{"replaces unsafe runes", "my voice (1).mp3", "1700000000000000042-my_voice__1_.mp3"},
		{"myanmar name", "အသံ.mp3", "1700000000000000042-___.mp3"},
		{"empty", "", "1700000000000000042-upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(fixedNow(), tt.original))
		})
	}
}

func TestLocalStore_Store(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	store, err := NewLocalStore(dir, logger.NewDiscard())
	require.NoError(t, err)
	store.now = fixedNow

	assert.Equal(t, "local", store.Backend())

	locator, err := store.Store(context.Background(), strings.NewReader("audio-bytes"), 11, "voice.mp3")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(locator))
	assert.Equal(t, "1700000000000000042-voice.mp3", filepath.Base(locator))

	data, err := os.ReadFile(locator)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestLocalStore_StoreCanceled(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), logger.NewDiscard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Store(ctx, strings.NewReader("x"), 1, "voice.mp3")
	assert.ErrorIs(t, err, context.Canceled)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestLocalStore_StoreRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, logger.NewDiscard())
	require.NoError(t, err)

	_, err = store.Store(context.Background(), failingReader{}, 10, "voice.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write blob")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestS3Store_Store(t *testing.T) {
	var (
		gotMethod      string
		gotPath        string
		gotContentType string
		gotBody        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := NewS3Store(context.Background(), S3Options{
		Endpoint:        server.URL,
		Bucket:          "audio",
		Prefix:          "/uploads/",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PublicBaseURL:   "https://project.supabase.co/storage/v1/object/public/",
	}, logger.NewDiscard())
	require.NoError(t, err)
	store.now = fixedNow

	assert.Equal(t, "s3", store.Backend())

	locator, err := store.Store(context.Background(), bytes.NewReader([]byte("mp3-data")), 8, "voice.mp3")
	require.NoError(t, err)

	assert.Equal(t,
		"https://project.supabase.co/storage/v1/object/public/audio/uploads/1700000000000000042-voice.mp3",
		locator)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/audio/uploads/1700000000000000042-voice.mp3", gotPath)
	assert.Equal(t, "audio/mpeg", gotContentType)
	assert.Contains(t, string(gotBody), "mp3-data")
}

func TestS3Store_StoreError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	store, err := NewS3Store(context.Background(), S3Options{
		Endpoint:      server.URL,
		Bucket:        "audio",
		PublicBaseURL: "https://example.com",
	}, logger.NewDiscard())
	require.NoError(t, err)

	_, err = store.Store(context.Background(), strings.NewReader("x"), 1, "voice.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload blob")
}
