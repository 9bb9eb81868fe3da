package bot

import "testing"

func TestFileURL(t *testing.T) {
	got := fileURL("https://api.telegram.org", "123:abc", "photos/file_0.jpg")
	want := "https://api.telegram.org/file/bot123:abc/photos/file_0.jpg"
	if got != want {
		t.Errorf("fileURL = %q, want %q", got, want)
	}
}

func TestFileURLDefaultBase(t *testing.T) {
	got := fileURL("", "123:abc", "photos/file_0.jpg")
	want := "https://api.telegram.org/file/bot123:abc/photos/file_0.jpg"
	if got != want {
		t.Errorf("fileURL = %q, want %q", got, want)
	}
}
