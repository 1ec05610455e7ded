package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
	"github.com/warp/cashbook/till"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders the summary followed by one table row per day.
// Differences in the daily table are shown as the engine presents them.
func Markdown(engine *till.Engine, title string, s Summary, records []till.SalesRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	if s.From != "" || s.To != "" {
		fmt.Fprintf(&b, "Period: %s to %s\n\n", orAny(s.From), orAny(s.To))
	}

	b.WriteString("| Total | Amount |\n|---|---:|\n")
	row := func(name string, d decimal.Decimal) {
		fmt.Fprintf(&b, "| %s | %s |\n", name, FormatINR(d))
	}
	row("POS sales", s.TotalSalesPOS)
	row("Paytm sales", s.TotalPaytm)
	row("Cash sales", s.TotalCashSales)
	row("Expenses", s.TotalExpenses)
	row("Cash withdrawn", s.TotalWithdrawn)
	row("Cash difference", s.TotalDifference)

	fmt.Fprintf(&b, "\n%d days: %d success, %d warning, %d error\n",
		s.Days, s.Statuses[till.StatusSuccess], s.Statuses[till.StatusWarning], s.Statuses[till.StatusError])

	if len(records) == 0 {
		return b.String()
	}

	b.WriteString("\n| Date | Cash sales | Expenses | Counted | Difference | Status |\n")
	b.WriteString("|---|---:|---:|---:|---:|---|\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			r.Date,
			FormatINR(r.TotalCashSales),
			FormatINR(r.TotalExpenses),
			FormatINR(r.TotalFromDenominations),
			FormatINR(engine.Present(r.CashDifference)),
			engine.Status(r),
		)
	}
	return b.String()
}

func orAny(s string) string {
	if s == "" {
		return "…"
	}
	return s
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts a Markdown report to an HTML fragment.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Terminal renders a Markdown report for a terminal of the given width.
// An empty style picks one from the terminal background.
func Terminal(md, style string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
