package tryon

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies how a model output slot references the produced image.
type Kind int

const (
	// KindInlineBytes means the image arrived embedded as a base64 data URI.
	KindInlineBytes Kind = iota
	// KindLocalPath means the image is a file on this machine, which happens
	// when the Gradio server runs on the same host.
	KindLocalPath
	// KindRemoteURL means the image must be downloaded over HTTP.
	KindRemoteURL
)

// Result is a normalized model output slot.
type Result struct {
	Kind  Kind
	Bytes []byte
	Path  string
	URL   string
}

type fileRef struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Classify inspects one raw output slot and normalizes it. Gradio spaces
// return either a FileData object or a bare string that may be a data URI,
// an http(s) URL, or a server-local path.
func Classify(raw json.RawMessage) (Result, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Result{}, fmt.Errorf("tryon: empty result slot")
	}

	if strings.HasPrefix(trimmed, "{") {
		var ref fileRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return Result{}, fmt.Errorf("tryon: decode file reference: %w", err)
		}
		switch {
		case ref.URL != "":
			return Result{Kind: KindRemoteURL, URL: ref.URL}, nil
		case ref.Path != "":
			return Result{Kind: KindLocalPath, Path: ref.Path}, nil
		default:
			return Result{}, fmt.Errorf("tryon: file reference has neither url nor path")
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Result{}, fmt.Errorf("tryon: decode result slot: %w", err)
	}
	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, "data:"):
		b, err := decodeDataURI(s)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindInlineBytes, Bytes: b}, nil
	case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
		return Result{Kind: KindRemoteURL, URL: s}, nil
	case s != "":
		return Result{Kind: KindLocalPath, Path: s}, nil
	default:
		return Result{}, fmt.Errorf("tryon: empty result string")
	}
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("tryon: malformed data URI")
	}
	header := uri[:comma]
	if !strings.Contains(header, ";base64") {
		return nil, fmt.Errorf("tryon: unsupported data URI encoding")
	}
	b, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("tryon: decode data URI: %w", err)
	}
	return b, nil
}
