package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lysyi3m/cfp-comb/app/record"
)

// Header is the column order of the export file.
var Header = []string{"parser", "source_url", "title", "date_raw", "details", "urls", "emails"}

const listSeparator = "; "

// WriteCSV replaces the file at path with a header row and one row per
// record. Missing parent directories are created.
func WriteCSV(path string, records []record.Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = true

	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Source,
			r.OriginURL,
			r.Title,
			r.DateText,
			r.Details,
			strings.Join(r.URLs, listSeparator),
			strings.Join(r.Emails, listSeparator),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush export file: %w", err)
	}

	return f.Close()
}
