// File: cmd/output.go
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/analyzer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeJSON writes v to path as indented JSON, creating parent directories.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// truncate shortens s to n runes and marks the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func printRecord(w io.Writer, heading string, rec schemas.MetadataRecord) {
	fmt.Fprintf(w, "\n===== %s =====\n", heading)
	fmt.Fprintf(w, "Title: %s\n", orNA(rec.Title))
	fmt.Fprintf(w, "Description: %s\n", orNA(truncate(rec.Description, 100)))
	if len(rec.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(rec.Tags, ", "))
	} else {
		fmt.Fprintln(w, "Tags: None")
	}
	if len(rec.Images) > 0 {
		fmt.Fprintf(w, "Images: %d found\n", len(rec.Images))
	} else {
		fmt.Fprintln(w, "Images: None")
	}
}

func printSummary(w io.Writer, s analyzer.Summary) {
	fmt.Fprintln(w, "\n===== Analysis Summary =====")
	fmt.Fprintln(w, "Login page analyzed: Yes")
	if s.LoginRequired {
		fmt.Fprintln(w, "Add asset form analyzed: No (login required)")
	} else {
		fmt.Fprintln(w, "Add asset form analyzed: Yes")
		fmt.Fprintf(w, "Forms found: %d\n", s.Forms)
		for i, n := range s.FormFields {
			fmt.Fprintf(w, "  Form %d: %d fields\n", i+1, n)
		}
		fmt.Fprintf(w, "File upload fields: %d\n", s.FileUploads)
	}

	if len(s.Selectors) > 0 {
		fmt.Fprintln(w, "\nPotential selectors found:")
		fields := make([]string, 0, len(s.Selectors))
		for field := range s.Selectors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			shown := s.Selectors[field]
			fmt.Fprintf(w, "  %s: %d selectors\n", field, len(shown)+s.Omitted[field])
			for _, sel := range shown {
				fmt.Fprintf(w, "    - %s\n", sel)
			}
			if n := s.Omitted[field]; n > 0 {
				fmt.Fprintf(w, "    - ... and %d more\n", n)
			}
		}
	}
	fmt.Fprintf(w, "\nAuth tokens found: %d\n", s.Tokens)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
