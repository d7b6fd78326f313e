package exchange

import (
	"fmt"
	"io"
	"sort"

	"dario.cat/mergo"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pocketops/internal/categories"
	"pocketops/internal/core"
)

const (
	sheetTransactions = "Transactions"
	sheetBudgets      = "Budgets"
	sheetBills        = "Bills"
)

// WriteXLSX writes a workbook with one sheet each for transactions,
// budgets and bills. Category keys are rendered with their labels.
func WriteXLSX(w io.Writer, snap core.Snapshot) error {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	_ = xlsx.SetAppProps(&excelize.AppProperties{Application: "pocketops"})

	cats := categories.ForState(snap.AppState)
	label := func(key string) string { return categories.Label(cats, key) }

	first := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(first, sheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetBudgets, sheetBills} {
		if _, err := xlsx.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, _ := xlsx.NewStyle(mergeStyles(fontBold(), bottomBorder()))
	money, _ := xlsx.NewStyle(moneyFormat())

	writeTransactions(xlsx, snap.Transactions, label, header, money)
	writeBudgets(xlsx, snap.Budgets, label, header, money)
	writeBills(xlsx, snap.Bills, label, header, money)

	xlsx.SetActiveSheet(0)
	if _, err := xlsx.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeTransactions(xlsx *excelize.File, txs []core.Transaction, label func(string) string, header, money int) {
	sheet := sheetTransactions
	writeHeader(xlsx, sheet, header, "Date", "Type", "Amount", "Merchant", "Category", "Notes", "Split", "Split amount")
	_ = xlsx.SetColWidth(sheet, "A", "B", 12)
	_ = xlsx.SetColWidth(sheet, "D", "F", 28)
	_ = xlsx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	sorted := append([]core.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for i, tx := range sorted {
		row := i + 2
		_ = xlsx.SetCellValue(sheet, cell('A', row), tx.Date.String())
		_ = xlsx.SetCellValue(sheet, cell('B', row), string(tx.Type))
		_ = xlsx.SetCellValue(sheet, cell('C', row), dollars(tx.AmountCents))
		_ = xlsx.SetCellValue(sheet, cell('D', row), tx.Merchant)
		_ = xlsx.SetCellValue(sheet, cell('E', row), label(tx.Category))
		_ = xlsx.SetCellValue(sheet, cell('F', row), tx.Notes)
		if tx.SplitActive() {
			_ = xlsx.SetCellValue(sheet, cell('G', row), string(tx.Split.Type))
			_ = xlsx.SetCellValue(sheet, cell('H', row), dollars(tx.Split.AmountCents))
		}
	}
	if n := len(sorted); n > 0 {
		_ = xlsx.SetCellStyle(sheet, "C2", cell('C', n+1), money)
		_ = xlsx.SetCellStyle(sheet, "H2", cell('H', n+1), money)
	}
}

func writeBudgets(xlsx *excelize.File, budgets []core.Budget, label func(string) string, header, money int) {
	sheet := sheetBudgets
	writeHeader(xlsx, sheet, header, "Category", "Per cycle", "Reserve")
	_ = xlsx.SetColWidth(sheet, "A", "A", 24)

	for i, b := range budgets {
		row := i + 2
		_ = xlsx.SetCellValue(sheet, cell('A', row), label(b.Category))
		_ = xlsx.SetCellValue(sheet, cell('B', row), dollars(b.CycleBudgetCents))
		_ = xlsx.SetCellBool(sheet, cell('C', row), b.Reserves())
	}
	if n := len(budgets); n > 0 {
		_ = xlsx.SetCellStyle(sheet, "B2", cell('B', n+1), money)
		_ = xlsx.SetCellFormula(sheet, cell('B', n+2), fmt.Sprintf("SUM(B2:B%d)", n+1))
		_ = xlsx.SetCellStyle(sheet, cell('B', n+2), cell('B', n+2), money)
	}
}

func writeBills(xlsx *excelize.File, bills []core.Bill, label func(string) string, header, money int) {
	sheet := sheetBills
	writeHeader(xlsx, sheet, header, "Name", "Amount", "Cycle", "Category", "Active")
	_ = xlsx.SetColWidth(sheet, "A", "A", 24)

	for i, b := range bills {
		row := i + 2
		_ = xlsx.SetCellValue(sheet, cell('A', row), b.Name)
		_ = xlsx.SetCellValue(sheet, cell('B', row), dollars(b.AmountCents))
		_ = xlsx.SetCellValue(sheet, cell('C', row), string(b.CycleOrDefault()))
		_ = xlsx.SetCellValue(sheet, cell('D', row), label(b.CategoryOrDefault()))
		_ = xlsx.SetCellBool(sheet, cell('E', row), b.IsActive())
	}
	if n := len(bills); n > 0 {
		_ = xlsx.SetCellStyle(sheet, "B2", cell('B', n+1), money)
	}
}

func writeHeader(xlsx *excelize.File, sheet string, style int, titles ...string) {
	for i, title := range titles {
		_ = xlsx.SetCellValue(sheet, cell('A'+rune(i), 1), title)
	}
	_ = xlsx.SetCellStyle(sheet, "A1", cell('A'+rune(len(titles)-1), 1), style)
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}

func dollars(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

func moneyFormat() *excelize.Style {
	format := "#,##0.00"
	return &excelize.Style{CustomNumFmt: &format}
}

func fontBold() *excelize.Style {
	return &excelize.Style{Font: &excelize.Font{Bold: true}}
}

func bottomBorder() *excelize.Style {
	return &excelize.Style{Border: []excelize.Border{{Type: "bottom", Color: "#000000", Style: 1}}}
}

func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}
