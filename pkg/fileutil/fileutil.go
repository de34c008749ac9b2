// Package fileutil provides tmp+mv file writes so readers never see a
// partially written output.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteTmpThenMove writes a temporary file next to outPath through
// writeFunc, fsyncs it and renames it over outPath. The directory of
// outPath must exist. On error the temporary file is removed and outPath is
// left untouched.
func WriteTmpThenMove(outPath string, writeFunc func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeFunc(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}
	return nil
}
