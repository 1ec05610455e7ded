package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/till"
	"github.com/xuri/excelize/v2"
)

const (
	salesSheet   = "Sales"
	summarySheet = "Summary"
)

// WriteSalesWorkbook writes an .xlsx workbook with one row per day, in the
// column order of the sales CSV, and a totals sheet.
func WriteSalesWorkbook(w io.Writer, engine *till.Engine, s Summary, records []till.SalesRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return err
	}
	if err := setRow(f, salesSheet, 1, toCells(csvcodec.SalesHeader)); err != nil {
		return err
	}
	for i, r := range records {
		if err := setRow(f, salesSheet, i+2, salesCells(engine, r)); err != nil {
			return err
		}
	}
	if err := f.SetPanes(salesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	totals := [][]interface{}{
		{"From", s.From},
		{"To", s.To},
		{"Days", s.Days},
		{"POS sales", amount(s.TotalSalesPOS)},
		{"Paytm sales", amount(s.TotalPaytm)},
		{"Cash sales", amount(s.TotalCashSales)},
		{"Expenses", amount(s.TotalExpenses)},
		{"Cash withdrawn", amount(s.TotalWithdrawn)},
		{"Cash difference", amount(s.TotalDifference)},
		{"Success days", s.Statuses[till.StatusSuccess]},
		{"Warning days", s.Statuses[till.StatusWarning]},
		{"Error days", s.Statuses[till.StatusError]},
	}
	for i, row := range totals {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("sheet %s row %d: %w", sheet, row, err)
	}
	return nil
}

func salesCells(engine *till.Engine, r till.SalesRecord) []interface{} {
	d := r.Denominations
	a := r.EmployeeAdvances
	o := r.OtherExpenses
	return []interface{}{
		r.Date, r.StoreID,
		amount(r.OpeningCash), amount(r.TotalSalesPOS), amount(r.PaytmSales),
		amount(a.Employee1), amount(a.Employee2), amount(a.Employee3), amount(a.Employee4),
		amount(r.CleaningExpenses),
		o.Name1, amount(o.Amount1), o.Name2, amount(o.Amount2),
		d.D500, d.D200, d.D100, d.D50, d.D20, d.D10, d.D5,
		amount(r.CashWithdrawn),
		amount(r.TotalExpenses), amount(r.TotalFromDenominations), amount(r.ClosingCash),
		amount(r.TotalCashSales), amount(r.TotalCash),
		amount(engine.Present(r.CashDifference)),
	}
}

// amount is the spreadsheet cell value of a money amount.
func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toCells(header []string) []interface{} {
	out := make([]interface{}, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}
