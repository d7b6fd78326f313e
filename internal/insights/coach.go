package insights

import (
	"sort"
	"time"

	"pocketops/internal/budget"
	"pocketops/internal/calendar"
	"pocketops/internal/core"
)

const (
	ModeEatingOutVsGroceries = "eatingOutVsGroceries"
	ModeTopTwo               = "topTwo"
)

// eatingOutCategories add up to the eating-out figure.
var eatingOutCategories = []string{"takeaway", "social", "food"}

// Coach compares eating out with groceries for the current month, or lists
// the two biggest categories when neither has any spend.
type Coach struct {
	Mode      string                  `json:"mode"`
	EatingOut int64                   `json:"eatingOut"`
	Groceries int64                   `json:"groceries"`
	TopTwo    []budget.CategoryAmount `json:"topTwo,omitempty"`
}

func EatingOutVsGroceries(txs []core.Transaction, now time.Time) Coach {
	spent := budget.ExpensesByCategory(txs, calendar.StartOfMonth(now), calendar.EndOfMonth(now))

	var eatingOut int64
	for _, c := range eatingOutCategories {
		eatingOut += spent.Value(c)
	}
	groceries := spent.Value("groceries")
	if eatingOut > 0 || groceries > 0 {
		return Coach{Mode: ModeEatingOutVsGroceries, EatingOut: eatingOut, Groceries: groceries}
	}

	top := spent.Entries()
	sort.SliceStable(top, func(i, j int) bool { return top[i].Cents > top[j].Cents })
	if len(top) > 2 {
		top = top[:2]
	}
	return Coach{Mode: ModeTopTwo, TopTwo: top}
}
