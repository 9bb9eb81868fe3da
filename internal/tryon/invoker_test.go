package tryon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/fetch"
)

type stubAPI struct {
	uploads   []string
	callAPI   string
	callData  []any
	callOut   []RawSlot
	callErr   error
	uploadErr error
}

func (s *stubAPI) Upload(_ context.Context, path string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, path)
	return "/gradio/upload/" + filepath.Base(path), nil
}

func (s *stubAPI) Call(_ context.Context, api string, data []any) ([]RawSlot, error) {
	s.callAPI = api
	s.callData = data
	return s.callOut, s.callErr
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTryOnInlineResult(t *testing.T) {
	dir := t.TempDir()
	person := writeFile(t, dir, "person.jpg", "p")
	garment := writeFile(t, dir, "garment.jpg", "g")

	img := []byte("png-bytes")
	slot, _ := json.Marshal("data:image/png;base64," + base64.StdEncoding.EncodeToString(img))

	api := &stubAPI{callOut: []RawSlot{RawSlot(slot), RawSlot([]byte("null"))}}
	inv := NewWithUploader(api, fetch.New(time.Second))

	result, err := inv.TryOn(context.Background(), person, garment, dir)
	if err != nil {
		t.Fatalf("tryon: %v", err)
	}
	got, err := os.ReadFile(result)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if string(got) != string(img) {
		t.Fatalf("unexpected result bytes: %q", got)
	}

	if api.callAPI != "/tryon" {
		t.Fatalf("unexpected api name: %s", api.callAPI)
	}
	if len(api.uploads) != 2 {
		t.Fatalf("expected both photos uploaded, got %d", len(api.uploads))
	}
	if len(api.callData) != 7 {
		t.Fatalf("expected 7 call slots, got %d", len(api.callData))
	}
	if api.callData[2] != garmentDescription {
		t.Fatalf("unexpected garment description: %v", api.callData[2])
	}
	if api.callData[5] != denoiseSteps || api.callData[6] != seed {
		t.Fatalf("unexpected pipeline params: %v %v", api.callData[5], api.callData[6])
	}
}

func TestTryOnLocalPathResult(t *testing.T) {
	dir := t.TempDir()
	person := writeFile(t, dir, "person.jpg", "p")
	garment := writeFile(t, dir, "garment.jpg", "g")
	modelOut := writeFile(t, dir, "model-out.png", "rendered")

	slot, _ := json.Marshal(map[string]string{"path": modelOut})
	api := &stubAPI{callOut: []RawSlot{RawSlot(slot)}}
	inv := NewWithUploader(api, fetch.New(time.Second))

	result, err := inv.TryOn(context.Background(), person, garment, dir)
	if err != nil {
		t.Fatalf("tryon: %v", err)
	}
	got, _ := os.ReadFile(result)
	if string(got) != "rendered" {
		t.Fatalf("unexpected result content: %q", got)
	}
}

func TestTryOnCallFailure(t *testing.T) {
	dir := t.TempDir()
	person := writeFile(t, dir, "person.jpg", "p")
	garment := writeFile(t, dir, "garment.jpg", "g")

	api := &stubAPI{callErr: errors.New("quota exceeded")}
	inv := NewWithUploader(api, fetch.New(time.Second))

	if _, err := inv.TryOn(context.Background(), person, garment, dir); err == nil {
		t.Fatal("expected call error to propagate")
	}
}

func TestTryOnUploadFailure(t *testing.T) {
	dir := t.TempDir()
	person := writeFile(t, dir, "person.jpg", "p")
	garment := writeFile(t, dir, "garment.jpg", "g")

	api := &stubAPI{uploadErr: errors.New("upload refused")}
	inv := NewWithUploader(api, fetch.New(time.Second))

	if _, err := inv.TryOn(context.Background(), person, garment, dir); err == nil {
		t.Fatal("expected upload error to propagate")
	}
}

func TestTryOnEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	person := writeFile(t, dir, "person.jpg", "p")
	garment := writeFile(t, dir, "garment.jpg", "g")

	api := &stubAPI{callOut: nil}
	inv := NewWithUploader(api, fetch.New(time.Second))

	if _, err := inv.TryOn(context.Background(), person, garment, dir); err == nil {
		t.Fatal("expected error for empty output")
	}
}
