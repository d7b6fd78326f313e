// Command pocketctl computes dashboards, insights and exports offline from
// a pocketops JSON backup.
package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"github.com/alecthomas/kingpin"

	"pocketops/internal/core"
	"pocketops/internal/exchange"
	"pocketops/internal/services"
)

var (
	infile = kingpin.Flag("input", "Backup file (default stdin)").Short('i').OpenFile(os.O_RDONLY, 0666)
	format = kingpin.Flag("format", "Output format").Short('f').Default("text").Enum("text", "json", "yaml")
	asOf   = kingpin.Flag("date", "Compute as of this day (YYYY-MM-DD)").String()
	tz     = kingpin.Flag("tz", "Time zone anchoring weeks and months").Default("Local").String()

	cmdDashboard = kingpin.Command("dashboard", "Show the week or month dashboard")
	period       = cmdDashboard.Flag("period", "week or month").Default("month").Enum("week", "month")

	cmdInsights = kingpin.Command("insights", "Show subscriptions, spikes, splits and coaching")
	cmdReport   = kingpin.Command("report", "Show both dashboards with insights")
	cmdSuggest  = kingpin.Command("suggest", "Suggest starter budgets from the pay schedule")
	cmdValidate = kingpin.Command("validate", "Check a backup before importing it")

	cmdCSV    = kingpin.Command("csv", "Export transactions as CSV")
	csvOutput = cmdCSV.Flag("output", "Output file (default stdout)").Short('o').String()

	cmdXLSX    = kingpin.Command("xlsx", "Export the ledger as an Excel workbook")
	xlsxOutput = cmdXLSX.Flag("output", "Output file").Short('o').Required().String()
)

func main() {
	stdlog.SetOutput(os.Stderr)
	stdlog.SetFlags(0)

	kingpin.Version(fmt.Sprintf("pocketctl (backup schema v%d)", core.SchemaVersion))
	cmd := kingpin.Parse()

	input := io.Reader(os.Stdin)
	if *infile != nil {
		input = *infile
		defer (*infile).Close()
	}
	data, err := io.ReadAll(input)
	if err != nil {
		stdlog.Fatalf("read backup: %v", err)
	}

	if cmd == cmdValidate.FullCommand() {
		res := exchange.ValidateImportPayload(data)
		if err := render(os.Stdout, *format, res, func(p *printer) { p.validation(res) }); err != nil {
			stdlog.Fatal(err)
		}
		if !res.OK {
			os.Exit(1)
		}
		return
	}

	snap, err := exchange.Decode(data)
	if err != nil {
		stdlog.Fatal(err)
	}
	now, err := clock(*asOf, *tz)
	if err != nil {
		stdlog.Fatal(err)
	}

	switch cmd {
	case cmdDashboard.FullCommand(), cmdInsights.FullCommand(), cmdReport.FullCommand(), cmdSuggest.FullCommand():
		r, err := services.BuildReport(context.Background(), snap, now)
		if err != nil {
			stdlog.Fatal(err)
		}
		if err := renderReport(os.Stdout, cmd, r); err != nil {
			stdlog.Fatal(err)
		}

	case cmdCSV.FullCommand():
		out := io.Writer(os.Stdout)
		if *csvOutput != "" {
			f, err := os.Create(*csvOutput)
			if err != nil {
				stdlog.Fatal(err)
			}
			defer f.Close()
			out = f
		}
		if err := exchange.WriteCSV(out, snap.Transactions); err != nil {
			stdlog.Fatal(err)
		}

	case cmdXLSX.FullCommand():
		f, err := os.Create(*xlsxOutput)
		if err != nil {
			stdlog.Fatal(err)
		}
		if err := exchange.WriteXLSX(f, snap); err != nil {
			f.Close()
			stdlog.Fatal(err)
		}
		if err := f.Close(); err != nil {
			stdlog.Fatal(err)
		}
	}
}

// renderReport prints the part of r that cmd asks for.
func renderReport(w io.Writer, cmd string, r services.Report) error {
	switch cmd {
	case cmdDashboard.FullCommand():
		d := r.Month
		if core.Period(*period) == core.Week {
			d = r.Week
		}
		return render(w, *format, d, func(p *printer) { p.dashboard(d, r.Categories) })
	case cmdInsights.FullCommand():
		return render(w, *format, r.Insights, func(p *printer) { p.insights(r.Insights, r.Categories) })
	case cmdSuggest.FullCommand():
		return render(w, *format, r.Suggestions, func(p *printer) { p.suggestions(r.Suggestions, r.Categories) })
	default:
		return render(w, *format, r, func(p *printer) { p.report(r) })
	}
}

// clock returns the instant reports are computed at: now, or noon of the
// given day, in the given zone.
func clock(date, zone string) (time.Time, error) {
	loc := time.Local
	if zone != "" && zone != "Local" {
		var err error
		if loc, err = time.LoadLocation(zone); err != nil {
			return time.Time{}, fmt.Errorf("time zone %q: %w", zone, err)
		}
	}
	if date == "" {
		return time.Now().In(loc), nil
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return d.Midnight(loc).Add(12 * time.Hour), nil
}
