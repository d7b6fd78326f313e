package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pocketops/internal/core"
)

var validCycles = []string{"weekly", "fortnightly", "monthly"}

// Result is the outcome of ValidateImportPayload.
type Result struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// ValidateImportPayload checks the structure of a backup document and
// reports one friendly message per problem found.
func ValidateImportPayload(data []byte) Result {
	_, problems := validate(data)
	return Result{OK: len(problems) == 0, Errors: nonNil(problems)}
}

func validate(data []byte) (map[string]any, []string) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, []string{"Import is not valid JSON."}
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		return nil, []string{"Import must be a JSON object."}
	}

	var errs []string
	if _, ok := payload["version"].(json.Number); !ok {
		errs = append(errs, "Missing or invalid `version`.")
	}

	if state, ok := payload["appState"].(map[string]any); !ok {
		errs = append(errs, "Missing `appState` object.")
	} else {
		if !oneOf(state["payCycle"], validCycles) {
			errs = append(errs, "appState.payCycle must be weekly, fortnightly, or monthly.")
		}
		if v, present := state["incomePerCycleCents"]; present && v != nil && !isInteger(v) {
			errs = append(errs, "appState.incomePerCycleCents must be an integer.")
		}
		if v, present := state["customCategories"]; present && v != nil {
			if list, ok := v.([]any); !ok || len(list) == 0 {
				errs = append(errs, "appState.customCategories must be a non-empty array.")
			}
		}
	}

	for i, item := range asArray(payload["transactions"]) {
		tx, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("transactions[%d] must be an object.", i))
			continue
		}
		if !truthy(tx["id"]) {
			errs = append(errs, fmt.Sprintf("transactions[%d].id is required.", i))
		}
		if !oneOf(tx["type"], []string{"income", "expense"}) {
			errs = append(errs, fmt.Sprintf("transactions[%d].type must be income or expense.", i))
		}
		if !isInteger(tx["amountCents"]) {
			errs = append(errs, fmt.Sprintf("transactions[%d].amountCents must be an integer.", i))
		}
		if s, ok := tx["date"].(string); !ok || !validDate(s) {
			errs = append(errs, fmt.Sprintf("transactions[%d].date must be YYYY-MM-DD.", i))
		}
	}

	for i, item := range asArray(payload["budgets"]) {
		b, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("budgets[%d] must be an object.", i))
			continue
		}
		if !truthy(b["category"]) {
			errs = append(errs, fmt.Sprintf("budgets[%d].category is required.", i))
		}
		if _, ok := toInteger(b["cycleBudgetCents"]); !ok {
			errs = append(errs, fmt.Sprintf("budgets[%d].cycleBudgetCents must be an integer.", i))
		}
	}

	for i, item := range asArray(payload["bills"]) {
		bill, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("bills[%d] must be an object.", i))
			continue
		}
		if !truthy(bill["id"]) {
			errs = append(errs, fmt.Sprintf("bills[%d].id is required.", i))
		}
		if !truthy(bill["name"]) {
			errs = append(errs, fmt.Sprintf("bills[%d].name is required.", i))
		}
		if _, ok := toInteger(bill["amountCents"]); !ok {
			errs = append(errs, fmt.Sprintf("bills[%d].amountCents must be an integer.", i))
		}
		if !oneOf(bill["cycle"], validCycles) {
			errs = append(errs, fmt.Sprintf("bills[%d].cycle must be weekly, fortnightly, or monthly.", i))
		}
	}

	return payload, errs
}

// validDate accepts real calendar days only, so "2026-13-45" is rejected
// along with malformed strings.
func validDate(s string) bool {
	_, err := core.ParseDate(s)
	return err == nil
}

// coerceIntegers rewrites the numeric fields of a validated tree so they
// decode into int64: numeric strings and integral floats become integers.
func coerceIntegers(payload map[string]any) {
	set := func(m map[string]any, key string) {
		if v, ok := m[key]; ok {
			if n, ok := toInteger(v); ok {
				m[key] = json.Number(strconv.FormatInt(n, 10))
			}
		}
	}

	set(payload, "version")
	if state, ok := payload["appState"].(map[string]any); ok {
		set(state, "incomePerCycleCents")
	}
	for _, item := range asArray(payload["transactions"]) {
		if tx, ok := item.(map[string]any); ok {
			set(tx, "amountCents")
			if split, ok := tx["split"].(map[string]any); ok {
				set(split, "amountCents")
			}
		}
	}
	for _, item := range asArray(payload["budgets"]) {
		if b, ok := item.(map[string]any); ok {
			set(b, "cycleBudgetCents")
		}
	}
	for _, item := range asArray(payload["bills"]) {
		if b, ok := item.(map[string]any); ok {
			set(b, "amountCents")
		}
	}
}

func asArray(v any) []any {
	list, _ := v.([]any)
	return list
}

func oneOf(v any, allowed []string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// truthy follows JavaScript truthiness for decoded JSON values.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// isInteger reports whether v is a JSON number with no fractional part.
func isInteger(v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	f, err := n.Float64()
	return err == nil && !math.IsInf(f, 0) && f == math.Trunc(f)
}

// toInteger converts loosely typed numeric fields: missing, null, false and
// "" count as zero, numeric strings are parsed, and anything with a
// fractional part is rejected.
func toInteger(v any) (int64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
