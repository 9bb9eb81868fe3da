package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetchWritesFile(t *testing.T) {
	payload := []byte("fake-jpeg-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "person.jpg")
	d := New(5 * time.Second)

	if err := d.Fetch(context.Background(), srv.URL+"/photo.jpg", dest); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing.jpg")
	d := New(5 * time.Second)

	if err := d.Fetch(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("destination file should not exist after failed fetch")
	}
}

func TestFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	dest := filepath.Join(t.TempDir(), "slow.jpg")
	d := New(100 * time.Millisecond)

	start := time.Now()
	err := d.Fetch(context.Background(), srv.URL, dest)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout took too long to fire")
	}
}

func TestFetchContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(5 * time.Second)
	if err := d.Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "x.jpg")); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNewDefaultsTimeout(t *testing.T) {
	d := New(0)
	if d.timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %s", d.timeout)
	}
}
