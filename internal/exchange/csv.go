package exchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"pocketops/internal/core"
)

var csvHeader = []string{"date", "type", "amount", "merchant", "category", "notes"}

// WriteCSV writes transactions oldest first as date,type,amount,merchant,category,notes.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	sorted := append([]core.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range sorted {
		record := []string{
			tx.Date.String(),
			string(tx.Type),
			decimal.New(tx.AmountCents, -2).StringFixed(2),
			tx.Merchant,
			tx.Category,
			tx.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
