// File: internal/extractor/render.go
package extractor

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed js/probe.js
var probeScript string

type probeOptions struct {
	HTML bool `json:"html"`
}

// probeCall wraps the probe in an invocation with opts.
func probeCall(opts probeOptions) string {
	b, _ := json.Marshal(opts)
	return fmt.Sprintf("(%s)(%s)", probeScript, b)
}

// probePage runs the probe on the page's current document.
func probePage(ctx context.Context, page schemas.Page, withHTML bool) (*pageSnapshot, error) {
	raw, err := page.Evaluate(ctx, probeCall(probeOptions{HTML: withHTML}))
	if err != nil {
		return nil, fmt.Errorf("page probe failed: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("page probe returned no result")
	}
	var snap pageSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode page probe result: %w", err)
	}
	if snap.Location == "" {
		loc, err := page.Location(ctx)
		if err != nil {
			return nil, err
		}
		snap.Location = loc
	}
	if snap.BaseURL == "" {
		snap.BaseURL = snap.Location
	}
	return &snap, nil
}
