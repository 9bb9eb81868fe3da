package tryon

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestClassifyFileRefURL(t *testing.T) {
	raw := json.RawMessage(`{"path":"/tmp/out.webp","url":"https://space.hf.space/file=out.webp","meta":{"_type":"gradio.FileData"}}`)
	res, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Kind != KindRemoteURL {
		t.Fatalf("expected remote url kind, got %d", res.Kind)
	}
	if res.URL != "https://space.hf.space/file=out.webp" {
		t.Fatalf("unexpected url: %s", res.URL)
	}
}

func TestClassifyFileRefPathOnly(t *testing.T) {
	raw := json.RawMessage(`{"path":"/tmp/out.webp"}`)
	res, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Kind != KindLocalPath || res.Path != "/tmp/out.webp" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestClassifyBareURLString(t *testing.T) {
	raw := json.RawMessage(`"https://cdn.example.com/result.png"`)
	res, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Kind != KindRemoteURL {
		t.Fatalf("expected remote url kind, got %d", res.Kind)
	}
}

func TestClassifyBarePathString(t *testing.T) {
	raw := json.RawMessage(`"/var/gradio/out.png"`)
	res, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Kind != KindLocalPath || res.Path != "/var/gradio/out.png" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestClassifyDataURI(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	raw, _ := json.Marshal("data:image/png;base64," + base64.StdEncoding.EncodeToString(payload))

	res, err := Classify(raw)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Kind != KindInlineBytes {
		t.Fatalf("expected inline kind, got %d", res.Kind)
	}
	if string(res.Bytes) != string(payload) {
		t.Fatalf("decoded bytes mismatch: %v", res.Bytes)
	}
}

func TestClassifyRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"null slot":        `null`,
		"empty string":     `""`,
		"bad data uri":     `"data:image/png;base64,%%%"`,
		"plain data uri":   `"data:image/png,notbase64"`,
		"empty file ref":   `{"meta":{"_type":"gradio.FileData"}}`,
		"malformed object": `{`,
	}
	for name, raw := range cases {
		if _, err := Classify(json.RawMessage(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
