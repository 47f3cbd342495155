package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// ArchiveEntry is one file of an export archive.
type ArchiveEntry struct {
	Name    string
	Content string
}

// WriteArchive writes entries to w as a ZIP archive. Duplicate names get a
// numeric suffix so no entry is shadowed.
func WriteArchive(w io.Writer, entries []ArchiveEntry, modified time.Time) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		name := uniqueEntryName(seen, SanitizeFilename(e.Name))
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := io.WriteString(fw, e.Content); err != nil {
			return fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip archive: %w", err)
	}
	return nil
}

func uniqueEntryName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	candidate := strings.TrimSuffix(name, ext) + "_" + strconv.Itoa(n+1) + ext
	if _, taken := seen[candidate]; taken {
		return uniqueEntryName(seen, candidate)
	}
	seen[candidate] = 1
	return candidate
}
