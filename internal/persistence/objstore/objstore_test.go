package objstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_PutSignsPayload(t *testing.T) {
	var (
		gotPath, gotAuth, gotHash, gotDate string
		gotBody                            []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotHash = r.Header.Get("x-amz-content-sha256")
		gotDate = r.Header.Get("x-amz-date")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Bucket: "worlds", AccessKeyID: "AK", SecretAccessKey: "SK"})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	dir := t.TempDir()
	file := filepath.Join(dir, "12.snap.zst")
	require.NoError(t, os.WriteFile(file, []byte("payload"), 0o644))
	require.NoError(t, c.PutFile(context.Background(), "w1/snapshots/12 a.snap.zst", file))

	sum := sha256.Sum256([]byte("payload"))
	require.Equal(t, "/worlds/w1/snapshots/12%20a.snap.zst", gotPath)
	require.Equal(t, hex.EncodeToString(sum[:]), gotHash)
	require.Equal(t, "20260304T050607Z", gotDate)
	require.Equal(t, "payload", string(gotBody))
	require.True(t, strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AK/20260304/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature="), gotAuth)
}

func TestClient_PutReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	}))
	defer srv.Close()
	c, err := New(Config{Endpoint: srv.URL, Bucket: "b", AccessKeyID: "a", SecretAccessKey: "s"})
	require.NoError(t, err)
	err = c.Put(context.Background(), "k", strings.NewReader("x"), 1)
	require.ErrorContains(t, err, "status=403")
	require.ErrorContains(t, err, "AccessDenied")

	_, err = New(Config{Endpoint: "example.com", Bucket: "b"})
	require.Error(t, err)
}

func TestNormalizeKey(t *testing.T) {
	for in, want := range map[string]string{
		"/a//b/./c":  "a/b/c",
		`w\snap.zst`: "w/snap.zst",
		"../etc":     "",
		"a/../../b":  "",
		"  ":         "",
	} {
		require.Equal(t, want, NormalizeKey(in), in)
	}
}

type fakeUploader struct {
	mu    sync.Mutex
	fails int
	keys  []string
}

func (f *fakeUploader) PutFile(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("flaky")
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestMirror_UploadsWithRetry(t *testing.T) {
	dataDir := t.TempDir()
	snap := filepath.Join(dataDir, "worlds", "w1", "snapshots", "300.snap.zst")
	require.NoError(t, os.MkdirAll(filepath.Dir(snap), 0o755))
	require.NoError(t, os.WriteFile(snap, []byte("s"), 0o644))

	up := &fakeUploader{fails: 2}
	m := NewMirror(up, dataDir, MirrorOptions{Prefix: "/backups/", Backoff: time.Millisecond})
	m.Enqueue(snap)
	m.Enqueue(filepath.Join(t.TempDir(), "elsewhere.snap.zst"))
	m.Close()
	m.Close()
	m.Enqueue(snap)

	require.Equal(t, []string{"backups/worlds/w1/snapshots/300.snap.zst"}, up.keys)
	st := m.Stats()
	require.Equal(t, uint64(2), st.EnqueuedTotal)
	require.Equal(t, uint64(1), st.UploadSuccessTotal)
	require.Equal(t, uint64(1), st.UploadFailTotal)
	require.NotZero(t, st.LastSuccessUnix)
}

func TestMirror_NilIsNoop(t *testing.T) {
	var m *Mirror
	m.Enqueue("x")
	m.Close()
	require.Equal(t, Stats{}, m.Stats())
}
