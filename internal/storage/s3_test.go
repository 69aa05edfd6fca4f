package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"keeperstats/config"
)

// fakeS3 keeps objects in memory and answers path-style GET and PUT requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), config.S3Config{
		Bucket:          "keeper-reports",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		PathStyle:       true,
		Prefix:          "/reports/",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	return store, fake
}

func TestS3StorePut(t *testing.T) {
	store, fake := newTestStore(t)

	if err := store.Put(context.Background(), "pnl/report.txt", []byte("hello"), "text/plain", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := fake.objects["/keeper-reports/reports/pnl/report.txt"]; !ok {
		t.Fatalf("object stored under unexpected path: %v", fake.objects)
	}
}

func TestS3StoreGet(t *testing.T) {
	store, fake := newTestStore(t)
	fake.objects["/keeper-reports/reports/prices/day.json"] = []byte("[]")

	data, ok, err := store.Get(context.Background(), "prices/day.json")
	if err != nil || !ok || string(data) != "[]" {
		t.Fatalf("Get = %q, %v, %v", data, ok, err)
	}
}

func TestS3StoreMissingKey(t *testing.T) {
	store, _ := newTestStore(t)
	data, ok, err := store.Get(context.Background(), "missing")
	if err != nil || ok || data != nil {
		t.Fatalf("expected clean miss, got %q, %v, %v", data, ok, err)
	}
}

func TestS3StoreKey(t *testing.T) {
	store := &S3Store{bucket: "b", prefix: "p"}
	if got := store.Key("x/y"); got != "p/x/y" {
		t.Fatalf("Key = %s", got)
	}
	if got := store.URI("x"); !strings.HasPrefix(got, "s3://b/p/x") {
		t.Fatalf("URI = %s", got)
	}
	if got := (&S3Store{bucket: "b"}).Key("/x"); got != "x" {
		t.Fatalf("Key without prefix = %s", got)
	}
}
