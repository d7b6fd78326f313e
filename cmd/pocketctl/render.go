package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"pocketops/internal/budget"
	"pocketops/internal/categories"
	"pocketops/internal/core"
	"pocketops/internal/exchange"
	"pocketops/internal/insights"
	"pocketops/internal/services"
)

var titleCaser = cases.Title(language.English)

// render writes v as JSON or YAML, or calls text for the human format.
// YAML goes through the JSON encoding so both use the same field names.
func render(w io.Writer, format string, v any, text func(*printer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var tree any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	default:
		p := &printer{w: w, p: message.NewPrinter(language.English)}
		text(p)
		return p.err
	}
}

// printer writes the text format. The first write error sticks.
type printer struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = p.p.Fprintf(p.w, format, args...)
}

// money formats cents with thousands separators, "-$1,234.50" when negative.
func (p *printer) money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + p.p.Sprintf("$%d", cents/100) + fmt.Sprintf(".%02d", cents%100)
}

func label(cats []core.Category, key string) string {
	if l := categories.Label(cats, key); l != key {
		return l
	}
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

func (p *printer) heading(s string) {
	p.printf("%s\n%s\n", s, strings.Repeat("=", len(s)))
}

func (p *printer) dashboard(d budget.DashboardPeriod, cats []core.Category) {
	p.heading(fmt.Sprintf("%s %s to %s", titleCaser.String(string(d.Period)),
		d.RangeStart.Format("2 Jan 2006"), d.RangeEnd.Format("2 Jan 2006")))

	rows := []struct {
		name  string
		cents int64
	}{
		{"Income", d.Income},
		{"Spent", d.Spent},
		{"Budget", d.Budget},
		{"Remaining", d.Remaining},
		{"Projected", d.Projected},
		{"Bills reserved", d.BillsReserved},
		{"Unallocated", d.Unallocated},
		{"Discretionary", d.DiscretionaryAvailable},
		{"Net", d.Net},
	}
	for _, r := range rows {
		p.printf("%-16s %14s\n", r.name, p.money(r.cents))
	}

	if d.SpentByCategory != nil && d.SpentByCategory.Len() > 0 {
		p.printf("\nBy category\n")
		for _, e := range d.SpentByCategory.Entries() {
			reserved := "-"
			if d.ReservedByCategory != nil {
				if v, ok := d.ReservedByCategory.Get(e.Category); ok {
					reserved = p.money(v)
				}
			}
			p.printf("  %-20s %12s of %s\n", label(cats, e.Category), p.money(e.Cents), reserved)
		}
	}

	if alerts := d.AllAlerts(); len(alerts) > 0 {
		p.printf("\nAlerts\n")
		for _, a := range alerts {
			p.printf("  [%s] %s\n", strings.ToUpper(string(a.Severity)), a.Message)
		}
	}
}

func (p *printer) insights(in services.Insights, cats []core.Category) {
	p.heading("Insights")

	if len(in.Subscriptions) > 0 {
		p.printf("Possible subscriptions\n")
		for _, s := range in.Subscriptions {
			p.printf("  %-20s %10s over %d months\n", s.MerchantKey, p.money(s.TypicalCents), s.Months)
		}
	}
	if len(in.Spikes) > 0 {
		p.printf("Spending spikes this week\n")
		for _, s := range in.Spikes {
			p.printf("  %-20s %10s vs %s average\n", label(cats, s.Category), p.money(s.ThisWeekCents), p.money(s.AvgCents))
			for _, c := range s.Causes {
				p.printf("    %-18s %10s\n", c.Merchant, p.money(c.Cents))
			}
		}
	}

	p.printf("Splits: owed to you %s, you owe %s, net %s\n",
		p.money(in.Splits.OwedToMe), p.money(in.Splits.IOwe), p.money(in.Splits.Net))

	if in.Coach.Mode == insights.ModeTopTwo {
		p.printf("Top categories this month:")
		for _, c := range in.Coach.TopTwo {
			p.printf(" %s %s", label(cats, c.Category), p.money(c.Cents))
		}
		p.printf("\n")
	} else {
		p.printf("Eating out %s vs groceries %s this month\n", p.money(in.Coach.EatingOut), p.money(in.Coach.Groceries))
	}
}

func (p *printer) suggestions(rows []budget.SuggestedBudget, cats []core.Category) {
	p.heading("Suggested budgets")
	p.printf("%-20s %12s %12s %12s\n", "Category", "Per cycle", "Weekly", "Monthly")
	for _, s := range rows {
		p.printf("%-20s %12s %12s %12s\n", label(cats, s.Category),
			p.money(s.CycleBudgetCents), p.money(s.WeeklyBudgetCents), p.money(s.MonthlyBudgetCents))
	}
}

func (p *printer) report(r services.Report) {
	p.dashboard(r.Week, r.Categories)
	p.printf("\n")
	p.dashboard(r.Month, r.Categories)
	p.printf("\n")
	p.insights(r.Insights, r.Categories)
}

func (p *printer) validation(res exchange.Result) {
	if res.OK {
		p.printf("Backup is valid.\n")
		return
	}
	p.printf("Backup has %d problem(s):\n", len(res.Errors))
	for _, e := range res.Errors {
		p.printf("  - %s\n", e)
	}
}
