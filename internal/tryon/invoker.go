package tryon

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/logger"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/fetch"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/gradio"
	"log/slog"
)

// Fixed inference parameters of the try-on pipeline. The model requires a
// textual garment description but the result does not depend on it, so a
// constant placeholder is sent. The seed is pinned to keep outputs
// reproducible for identical inputs.
const (
	apiName            = "/tryon"
	garmentDescription = "A cool description of the garment"
	useAutoMask        = true
	useCrop            = false
	denoiseSteps       = 30
	seed               = 42
)

const resultFileName = "result.png"

// Uploader is the subset of the Gradio client used by the invoker.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
	Call(ctx context.Context, api string, data []any) ([]RawSlot, error)
}

// RawSlot aliases the raw JSON output slot type so tests can stub Uploader
// without importing encoding/json at every call site.
type RawSlot = []byte

// gradioAdapter reconciles the concrete client with the Uploader interface.
type gradioAdapter struct {
	c *gradio.Client
}

func (a gradioAdapter) Upload(ctx context.Context, path string) (string, error) {
	return a.c.Upload(ctx, path)
}

func (a gradioAdapter) Call(ctx context.Context, api string, data []any) ([]RawSlot, error) {
	out, err := a.c.Call(ctx, api, data)
	if err != nil {
		return nil, err
	}
	slots := make([]RawSlot, len(out))
	for i, s := range out {
		slots[i] = RawSlot(s)
	}
	return slots, nil
}

// Invoker runs one try-on inference: upload both photos, call the model
// with the fixed pipeline parameters, and materialize the result image
// into the cycle directory.
type Invoker struct {
	api Uploader
	dl  *fetch.Downloader
}

// New builds an Invoker on top of the Gradio client and the downloader
// used for remote result URLs.
func New(client *gradio.Client, dl *fetch.Downloader) *Invoker {
	return &Invoker{api: gradioAdapter{c: client}, dl: dl}
}

// NewWithUploader builds an Invoker with a custom API implementation.
func NewWithUploader(api Uploader, dl *fetch.Downloader) *Invoker {
	return &Invoker{api: api, dl: dl}
}

// TryOn performs the inference for one person/garment pair and returns the
// local path of the result image inside destDir.
func (inv *Invoker) TryOn(ctx context.Context, personPath, garmentPath, destDir string) (string, error) {
	start := time.Now()

	personRef, err := inv.api.Upload(ctx, personPath)
	if err != nil {
		return "", fmt.Errorf("upload person photo: %w", err)
	}
	garmentRef, err := inv.api.Upload(ctx, garmentPath)
	if err != nil {
		return "", fmt.Errorf("upload garment photo: %w", err)
	}

	// The first slot mirrors the editor widget: background image, no
	// drawn layers, no composite.
	editorImage := map[string]any{
		"background": gradio.NewFileData(personRef),
		"layers":     []any{},
		"composite":  nil,
	}

	out, err := inv.api.Call(ctx, apiName, []any{
		editorImage,
		gradio.NewFileData(garmentRef),
		garmentDescription,
		useAutoMask,
		useCrop,
		denoiseSteps,
		seed,
	})
	if err != nil {
		return "", fmt.Errorf("tryon call: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("tryon call returned no outputs")
	}

	// Slot 0 is the dressed image; slot 1 is the mask, which is not used.
	res, err := Classify(out[0])
	if err != nil {
		return "", err
	}

	dest := filepath.Join(destDir, resultFileName)
	if err := inv.materialize(ctx, res, dest); err != nil {
		return "", err
	}

	logger.Info(ctx, "service.tryon", "tryon.done",
		slog.String("status", "ok"),
		slog.String("result_kind", kindLabel(res.Kind)),
		slog.String("result_path", dest),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
	return dest, nil
}

func (inv *Invoker) materialize(ctx context.Context, res Result, dest string) error {
	switch res.Kind {
	case KindInlineBytes:
		if err := os.WriteFile(dest, res.Bytes, 0o644); err != nil {
			return fmt.Errorf("write result image: %w", err)
		}
		return nil
	case KindLocalPath:
		return copyFile(res.Path, dest)
	case KindRemoteURL:
		return inv.dl.Fetch(ctx, res.URL, dest)
	default:
		return fmt.Errorf("tryon: unknown result kind %d", res.Kind)
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open result image: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create result image: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy result image: %w", err)
	}
	return out.Close()
}

func kindLabel(k Kind) string {
	switch k {
	case KindInlineBytes:
		return "inline"
	case KindLocalPath:
		return "local"
	case KindRemoteURL:
		return "url"
	default:
		return "unknown"
	}
}
