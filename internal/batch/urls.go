// File: internal/batch/urls.go
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// urlHeaders name the column that holds URLs when the first row is a header.
var urlHeaders = map[string]bool{"url": true, "link": true, "address": true, "website": true}

// ReadURLs reads URLs from CSV. When the first row has a url, link, address
// or website header, that column is used and the header is skipped;
// otherwise the first column of every row, including the first, is used.
// Blank cells are skipped.
func ReadURLs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(first) > 0 {
		first[0] = strings.TrimPrefix(first[0], "\ufeff")
	}

	col, isHeader := headerColumn(first)
	var urls []string
	if !isHeader {
		urls = appendCell(urls, first, 0)
	}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return urls, fmt.Errorf("failed to read CSV: %w", err)
		}
		urls = appendCell(urls, row, col)
	}
	return urls, nil
}

func headerColumn(row []string) (int, bool) {
	for i, cell := range row {
		if urlHeaders[strings.ToLower(strings.TrimSpace(cell))] {
			return i, true
		}
	}
	return 0, false
}

func appendCell(urls []string, row []string, col int) []string {
	if col >= len(row) {
		return urls
	}
	if v := strings.TrimSpace(row[col]); v != "" {
		urls = append(urls, v)
	}
	return urls
}
