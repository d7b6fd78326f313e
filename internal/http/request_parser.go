// Package http exposes the ledger and the dashboards as a JSON API.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"pocketops/internal/core"
	"pocketops/internal/services"
)

// maxBodyBytes caps request bodies. Imports of a few years of history fit
// comfortably.
const maxBodyBytes = 8 << 20

var errEmptyBody = errors.New("request body is empty")

// ParsePeriod reads ?period=, defaulting to the month.
func ParsePeriod(query url.Values) (core.Period, error) {
	v := strings.ToLower(strings.TrimSpace(query.Get("period")))
	if v == "" {
		return core.Month, nil
	}
	p := core.Period(v)
	if !p.Valid() {
		return "", fmt.Errorf("period must be week or month, got %q", v)
	}
	return p, nil
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

// decodeJSON decodes the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// bodyError writes the response for a body that failed to decode. Domain
// errors raised while decoding (a bad date) are reported as such.
func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
	case services.IsValidation(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, errEmptyBody):
		BadRequestError(err.Error()).Write(w)
	default:
		BadRequestError("invalid JSON body").Write(w)
	}
}

// sanitizeInput trims s and removes control characters except tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// transactionRequest accepts the amount either as cents or as a typed
// dollar string such as "$12.50".
type transactionRequest struct {
	services.TransactionInput
	Amount string `json:"amount,omitempty"`
}

func (t transactionRequest) input() (services.TransactionInput, error) {
	in := t.TransactionInput
	if strings.TrimSpace(t.Amount) != "" {
		cents, ok := core.DollarsToCents(t.Amount)
		if !ok {
			return in, fmt.Errorf("%w: %q", core.ErrInvalidAmount, t.Amount)
		}
		in.AmountCents = cents
	}
	in.Merchant = sanitizeInput(in.Merchant)
	in.Notes = sanitizeInput(in.Notes)
	in.Category = sanitizeInput(in.Category)
	return in, nil
}

// categoryRequest is the body of category create and rename.
type categoryRequest struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}
