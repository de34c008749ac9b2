package history

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// Decode reads a JSON array of export records.
func Decode(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode history json: %w", err)
	}
	return records, nil
}

// LoadFile reads and decodes a watch-history JSON file. A missing file
// yields an error wrapping fs.ErrNotExist.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}
