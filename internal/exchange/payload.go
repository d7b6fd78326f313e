// Package exchange moves whole ledgers in and out of pocketops: the JSON
// backup format with its import validation, plus CSV and XLSX exports.
package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dario.cat/mergo"

	"pocketops/internal/core"
)

// Payload is the JSON backup document.
type Payload struct {
	Version      int                     `json:"version"`
	ExportedAt   string                  `json:"exportedAt,omitempty"`
	AppState     core.AppState           `json:"appState"`
	Transactions []core.Transaction      `json:"transactions"`
	Budgets      []core.Budget           `json:"budgets"`
	Bills        []core.Bill             `json:"bills"`
	MerchantMap  []core.MerchantCategory `json:"merchantMap"`
}

// ValidationError carries every problem found in an import payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid import"
	}
	if len(e.Problems) == 1 {
		return "invalid import: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid import: %s (and %d more)", e.Problems[0], len(e.Problems)-1)
}

// jsTimestamp matches Date.prototype.toISOString.
const jsTimestamp = "2006-01-02T15:04:05.000Z"

// MakeExportPayload stamps snap with the schema version and export time.
// Missing app state fields are filled from the defaults; if that merge fails
// the stored state is exported as is.
func MakeExportPayload(snap core.Snapshot, now time.Time) Payload {
	state, err := withDefaults(snap.AppState)
	if err != nil {
		slog.Warn("Exporting app state without defaults", "error", err)
		state = snap.AppState
	}
	return Payload{
		Version:      core.SchemaVersion,
		ExportedAt:   now.UTC().Format(jsTimestamp),
		AppState:     state,
		Transactions: nonNil(snap.Transactions),
		Budgets:      nonNil(snap.Budgets),
		Bills:        nonNil(snap.Bills),
		MerchantMap:  nonNil(snap.MerchantMap),
	}
}

// NormalizeImportedPayload turns a validated payload into the snapshot to
// restore: defaults merged in, schema version current, and the starter
// categories when the payload has none.
func NormalizeImportedPayload(p Payload) (core.Snapshot, error) {
	state, err := withDefaults(p.AppState)
	if err != nil {
		return core.Snapshot{}, err
	}
	state.SchemaVersion = core.SchemaVersion
	if len(state.CustomCategories) == 0 {
		state.CustomCategories = append([]core.Category(nil), core.StarterCategories...)
	}
	return core.Snapshot{
		AppState:     state,
		Transactions: nonNil(p.Transactions),
		Budgets:      nonNil(p.Budgets),
		Bills:        nonNil(p.Bills),
		MerchantMap:  nonNil(p.MerchantMap),
	}, nil
}

// Decode validates data and returns the snapshot it describes.
// Validation failures are returned as *ValidationError.
func Decode(data []byte) (core.Snapshot, error) {
	tree, problems := validate(data)
	if len(problems) > 0 {
		return core.Snapshot{}, &ValidationError{Problems: problems}
	}

	coerceIntegers(tree)
	clean, err := json.Marshal(tree)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("re-encode import: %w", err)
	}

	var p Payload
	dec := json.NewDecoder(bytes.NewReader(clean))
	if err := dec.Decode(&p); err != nil {
		return core.Snapshot{}, &ValidationError{Problems: []string{err.Error()}}
	}
	return NormalizeImportedPayload(p)
}

// mergeDefaults fills the zero fields of dst, so explicit values win.
var mergeDefaults = func(dst *core.AppState) error {
	return mergo.Merge(dst, core.DefaultAppState())
}

func withDefaults(s core.AppState) (core.AppState, error) {
	if err := mergeDefaults(&s); err != nil {
		return core.AppState{}, fmt.Errorf("merge app state defaults: %w", err)
	}
	if s.RecentCategories == nil {
		s.RecentCategories = []string{}
	}
	if s.SuppressedSubscriptionKeys == nil {
		s.SuppressedSubscriptionKeys = []string{}
	}
	return s, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
