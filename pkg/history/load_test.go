package history

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleExport = `[
  {
    "header": "YouTube",
    "title": "Watched Test Video",
    "titleUrl": "https://www.youtube.com/watch?v=vid1",
    "subtitles": [{"name": "Test Channel", "url": "https://www.youtube.com/channel/UC1"}],
    "time": "2024-01-15T10:30:00.123Z",
    "products": ["YouTube"],
    "activityControls": ["YouTube watch history"]
  },
  {
    "header": "YouTube",
    "title": "Viewed A Post",
    "titleUrl": "https://www.youtube.com/post/UgkxABC",
    "time": "2024-01-16T10:30:00.000Z"
  }
]`

func TestDecode(t *testing.T) {
	records, err := Decode(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.TitleURL != "https://www.youtube.com/watch?v=vid1" {
		t.Errorf("TitleURL = %q", first.TitleURL)
	}
	if len(first.Subtitles) != 1 || first.Subtitles[0].Name != "Test Channel" {
		t.Errorf("Subtitles = %+v", first.Subtitles)
	}
	if len(records[1].Subtitles) != 0 {
		t.Errorf("expected no subtitles on post, got %+v", records[1].Subtitles)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode(strings.NewReader(`[{"title": `)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch-history.json")
	if err := os.WriteFile(path, []byte(sampleExport), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}
