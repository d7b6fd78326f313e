package insights

import "pocketops/internal/core"

// SplitBalance is what others owe the user and what the user owes others.
type SplitBalance struct {
	OwedToMe int64 `json:"owedToMe"`
	IOwe     int64 `json:"iOwe"`
	Net      int64 `json:"net"`
}

// SplitBalances sums enabled, positive splits on expenses by who paid.
func SplitBalances(txs []core.Transaction) SplitBalance {
	var b SplitBalance
	for _, tx := range txs {
		if tx.Type != core.Expense || !tx.SplitActive() || tx.Split.AmountCents <= 0 {
			continue
		}
		switch tx.Split.Type {
		case core.IPaid:
			b.OwedToMe += tx.Split.AmountCents
		case core.TheyPaid:
			b.IOwe += tx.Split.AmountCents
		}
	}
	b.Net = b.OwedToMe - b.IOwe
	return b
}
