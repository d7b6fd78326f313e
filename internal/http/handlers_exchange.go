package http

import (
	"bytes"
	"fmt"
	"net/http"

	"pocketops/internal/exchange"
	"pocketops/internal/log"
)

// handleValidateImport reports the problems of a backup without touching
// the ledger.
func (s *Server) handleValidateImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		bodyError(w, err)
		return
	}
	NewJSONResponse().Data(exchange.ValidateImportPayload(body)).Write(w)
}

// handleImport replaces the whole ledger with a backup. An invalid backup
// is rejected with every problem found and leaves the ledger untouched.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		bodyError(w, err)
		return
	}
	snap, err := exchange.Decode(body)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	if err := s.ledger.Restore(r.Context(), snap); err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	NewJSONResponse().Data(map[string]int{
		"transactions": len(snap.Transactions),
		"budgets":      len(snap.Budgets),
		"bills":        len(snap.Bills),
	}).Write(w)
}

// contentDisposition names a download after the current day.
func (s *Server) contentDisposition(ext string) string {
	name := fmt.Sprintf("pocketops-%s.%s", s.reports.Now().Format("2006-01-02"), ext)
	return fmt.Sprintf("attachment; filename=%q", name)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	NewJSONResponse().
		Header("Content-Disposition", s.contentDisposition("json")).
		Data(exchange.MakeExportPayload(snap, s.reports.Now())).
		Write(w)
}

// export renders into a buffer first so a failure can still produce a
// proper error response.
func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType, ext string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", s.contentDisposition(ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	s.export(w, r, "text/csv; charset=utf-8", "csv", func(buf *bytes.Buffer) error {
		return exchange.WriteCSV(buf, snap.Transactions)
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	s.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", func(buf *bytes.Buffer) error {
		return exchange.WriteXLSX(buf, snap)
	})
}
