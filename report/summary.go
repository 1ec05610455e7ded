/*
Package report turns a store's sales records into dashboard figures,
Markdown/HTML/terminal summaries and spreadsheet workbooks.

PURPOSE:
  The records package stores days; this package reads ranges of them.
  Nothing here writes to a backend.

AMOUNTS:
  Totals are summed from the stored (true) cash differences. Status
  counts follow Engine.Status, which classifies the displayed value.

SEE ALSO:
  - till/engine.go: Derivation and status bands
  - records/sales.go: Range reads
*/
package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/warp/cashbook/till"
)

// Summary totals a range of days.
type Summary struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Days int    `json:"days"`

	TotalSalesPOS   decimal.Decimal `json:"totalSalesPOS"`
	TotalPaytm      decimal.Decimal `json:"totalPaytm"`
	TotalCashSales  decimal.Decimal `json:"totalCashSales"`
	TotalExpenses   decimal.Decimal `json:"totalExpenses"`
	TotalWithdrawn  decimal.Decimal `json:"totalWithdrawn"`
	TotalDifference decimal.Decimal `json:"totalDifference"`

	Statuses map[till.Status]int `json:"statuses"`
}

// Summarize totals records, which must already be derived.
func Summarize(engine *till.Engine, from, to string, records []till.SalesRecord) Summary {
	s := Summary{
		From:            from,
		To:              to,
		Days:            len(records),
		TotalSalesPOS:   decimal.Zero,
		TotalPaytm:      decimal.Zero,
		TotalCashSales:  decimal.Zero,
		TotalExpenses:   decimal.Zero,
		TotalWithdrawn:  decimal.Zero,
		TotalDifference: decimal.Zero,
		Statuses: map[till.Status]int{
			till.StatusSuccess: 0,
			till.StatusWarning: 0,
			till.StatusError:   0,
		},
	}
	for _, r := range records {
		s.TotalSalesPOS = s.TotalSalesPOS.Add(r.TotalSalesPOS)
		s.TotalPaytm = s.TotalPaytm.Add(r.PaytmSales)
		s.TotalCashSales = s.TotalCashSales.Add(r.TotalCashSales)
		s.TotalExpenses = s.TotalExpenses.Add(r.TotalExpenses)
		s.TotalWithdrawn = s.TotalWithdrawn.Add(r.CashWithdrawn)
		s.TotalDifference = s.TotalDifference.Add(r.CashDifference)
		s.Statuses[engine.Status(r)]++
	}
	return s
}

// FormatINR renders an amount in rupees, e.g. ₹1,234.50.
func FormatINR(d decimal.Decimal) string {
	cur := money.GetCurrency(money.INR)
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, money.INR).Display()
}
