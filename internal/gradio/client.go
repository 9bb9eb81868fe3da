package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/logger"
	"log/slog"
)

// FileMeta tags a JSON object as a Gradio file reference.
type FileMeta struct {
	Type string `json:"_type"`
}

// FileData references a file previously uploaded to the Gradio server.
type FileData struct {
	Path string   `json:"path"`
	URL  string   `json:"url,omitempty"`
	Meta FileMeta `json:"meta"`
}

// NewFileData wraps a server-side path into the reference shape the
// Gradio API expects in call payloads.
func NewFileData(serverPath string) FileData {
	return FileData{
		Path: serverPath,
		Meta: FileMeta{Type: "gradio.FileData"},
	}
}

// Client talks to a Gradio space over its HTTP API: file upload, call
// submission, and the server-sent result stream.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a Client for the given space base URL, e.g.
// "https://nymbo-virtual-try-on.hf.space". The timeout bounds one call
// including the wait for the result stream.
func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		base:    strings.TrimSuffix(base, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

// Upload sends a local file to the Gradio server and returns the
// server-side path to reference it in call payloads.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("gradio: open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("gradio: multipart: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("gradio: read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("gradio: multipart close: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.base+"/gradio_api/upload", &body)
	if err != nil {
		return "", fmt.Errorf("gradio: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gradio: upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gradio: upload status %s", resp.Status)
	}

	var paths []string
	if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
		return "", fmt.Errorf("gradio: decode upload response: %w", err)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("gradio: upload returned no paths")
	}

	logger.Debug(ctx, "service.tryon", "gradio.upload",
		slog.String("status", "ok"),
		slog.String("dest", paths[0]),
	)
	return paths[0], nil
}

// Call submits data to the named API endpoint and waits for the result on
// the event stream. It returns the raw output slots of the completed call.
func (c *Client) Call(ctx context.Context, api string, data []any) ([]json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	api = strings.TrimPrefix(api, "/")

	payload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return nil, fmt.Errorf("gradio: marshal call payload: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.base+"/gradio_api/call/"+api, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gradio: build call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gradio: call: %w", err)
	}
	var submitted struct {
		EventID string `json:"event_id"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&submitted)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gradio: call status %s", resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("gradio: decode call response: %w", decodeErr)
	}
	if submitted.EventID == "" {
		return nil, fmt.Errorf("gradio: call returned no event id")
	}

	logger.Debug(ctx, "service.tryon", "gradio.call",
		slog.String("status", "ok"),
		slog.String("api", api),
	)

	return c.waitResult(callCtx, api, submitted.EventID)
}

// waitResult consumes the server-sent event stream for a submitted call.
// Gradio emits "event: <name>" / "data: <json>" line pairs; the call is
// finished on a complete or error event.
func (c *Client) waitResult(ctx context.Context, api, eventID string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/gradio_api/call/"+api+"/"+eventID, nil)
	if err != nil {
		return nil, fmt.Errorf("gradio: build result request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gradio: result stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gradio: result stream status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	event := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				var out []json.RawMessage
				if err := json.Unmarshal([]byte(raw), &out); err != nil {
					return nil, fmt.Errorf("gradio: decode result: %w", err)
				}
				return out, nil
			case "error":
				return nil, fmt.Errorf("gradio: call failed: %s", logger.SanitizeLimit(raw, 256))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gradio: read result stream: %w", err)
	}
	return nil, fmt.Errorf("gradio: result stream ended without completion")
}
