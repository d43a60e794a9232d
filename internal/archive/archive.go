// Package archive bundles the current batch results into a single ZIP archive.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/results"
	"github.com/klauspost/compress/zip"
)

const (
	DefaultName = "processed_images.zip"
	entryPrefix = "no_bg_"
)

// Stem returns the base filename without its extension. Directory parts are dropped,
// so entry names can't escape the archive root.
func Stem(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	// как у файлов вида ".hidden": расширения нет, stem - все имя
	if ext := path.Ext(base); ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// EntryName builds the download name for one result: no_bg_<stem>.png
func EntryName(filename string) string {
	return entryPrefix + Stem(filename) + ".png"
}

// Export writes every store entry in stored order. Entries carry no timestamps,
// so the same store always produces the same bytes. Two files with the same stem
// (cat.png and cat.jpg) both get written under one name, the later one wins on extraction.
func Export(w io.Writer, store *results.Store) error {
	zw := zip.NewWriter(w)

	var writeErr error
	store.Range(func(res *model.ProcessedResult) bool {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:   EntryName(res.Filename),
			Method: zip.Deflate,
		})
		if err != nil {
			writeErr = fmt.Errorf("failed to create archive entry for %q: %w", res.Filename, err)
			return false
		}
		if _, err := f.Write(res.Payload); err != nil {
			writeErr = fmt.Errorf("failed to write archive entry for %q: %w", res.Filename, err)
			return false
		}
		return true
	})
	if writeErr != nil {
		_ = zw.Close()
		return writeErr
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func Bytes(store *results.Store) ([]byte, error) {
	var buf bytes.Buffer
	if err := Export(&buf, store); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
