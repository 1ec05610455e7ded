/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Entities are
  mostly served as the till types themselves; DTOs exist where the wire
  shape differs from storage.

PRESENTATION:
  SalesRecordDTO carries the difference as the engine presents it, which
  under the mask policy is not the stored value. The stored value is
  never sent.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - till/types.go: Entity types
*/
package api

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/report"
	"github.com/warp/cashbook/till"
)

// =============================================================================
// SALES
// =============================================================================

// SalesRecordDTO is a derived sales day as shown to clients.
type SalesRecordDTO struct {
	till.SalesRecord

	// CashDifference shadows the stored value with the presented one.
	CashDifference decimal.Decimal `json:"cashDifference"`
	Status         till.Status     `json:"status"`

	Display SalesDisplayDTO `json:"display"`
}

// SalesDisplayDTO holds rupee-formatted figures for direct display.
type SalesDisplayDTO struct {
	TotalCash              string `json:"totalCash"`
	TotalFromDenominations string `json:"totalFromDenominations"`
	ClosingCash            string `json:"closingCash"`
	CashDifference         string `json:"cashDifference"`
}

func toSalesDTO(engine *till.Engine, r till.SalesRecord) SalesRecordDTO {
	shown := engine.Present(r.CashDifference)
	return SalesRecordDTO{
		SalesRecord:    r,
		CashDifference: shown,
		Status:         till.DifferenceStatus(shown),
		Display: SalesDisplayDTO{
			TotalCash:              report.FormatINR(r.TotalCash),
			TotalFromDenominations: report.FormatINR(r.TotalFromDenominations),
			ClosingCash:            report.FormatINR(r.ClosingCash),
			CashDifference:         report.FormatINR(shown),
		},
	}
}

func toSalesDTOs(engine *till.Engine, rs []till.SalesRecord) []SalesRecordDTO {
	out := make([]SalesRecordDTO, len(rs))
	for i, r := range rs {
		out[i] = toSalesDTO(engine, r)
	}
	return out
}

// =============================================================================
// STORES & STAFF
// =============================================================================

// SetActiveStoreRequest selects the active store.
type SetActiveStoreRequest struct {
	ID string `json:"id"`
}

// CloseMonthRequest closes a salary month. Salaries maps employee id to
// the month's salary.
type CloseMonthRequest struct {
	Month    string                     `json:"month"`
	Salaries map[string]decimal.Decimal `json:"salaries"`
}

// =============================================================================
// IMPORT / REPORTS
// =============================================================================

// ImportResultDTO reports the outcome of a CSV import.
type ImportResultDTO struct {
	Entity     string          `json:"entity"`
	Imported   int             `json:"imported"`
	Duplicates int             `json:"duplicates"`
	Skipped    int             `json:"skipped"`
	Errors     []ParseErrorDTO `json:"errors"`
}

// ParseErrorDTO describes one skipped row.
type ParseErrorDTO struct {
	Line    int    `json:"line"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func toImportDTO(res records.ImportResult) ImportResultDTO {
	dto := ImportResultDTO{
		Entity:     res.Entity,
		Imported:   res.Imported,
		Duplicates: res.Duplicates,
		Skipped:    res.Skipped(),
		Errors:     make([]ParseErrorDTO, 0, len(res.Errors)),
	}
	for _, e := range res.Errors {
		dto.Errors = append(dto.Errors, toParseErrorDTO(e))
	}
	return dto
}

func toParseErrorDTO(e *csvcodec.ParseError) ParseErrorDTO {
	msg := e.Error()
	if e.Err != nil && !errors.Is(e.Err, csvcodec.ErrParse) {
		msg = e.Err.Error()
	}
	return ParseErrorDTO{Line: e.Line, Column: e.Column, Value: e.Value, Message: msg}
}

// SummaryDTO is the dashboard summary of a date range.
type SummaryDTO struct {
	report.Summary
	Display map[string]string `json:"display"`
}

func toSummaryDTO(s report.Summary) SummaryDTO {
	return SummaryDTO{
		Summary: s,
		Display: map[string]string{
			"totalSalesPOS":   report.FormatINR(s.TotalSalesPOS),
			"totalPaytm":      report.FormatINR(s.TotalPaytm),
			"totalCashSales":  report.FormatINR(s.TotalCashSales),
			"totalExpenses":   report.FormatINR(s.TotalExpenses),
			"totalWithdrawn":  report.FormatINR(s.TotalWithdrawn),
			"totalDifference": report.FormatINR(s.TotalDifference),
		},
	}
}

// ExportRunDTO is one snapshot export run.
type ExportRunDTO struct {
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
	Files      int    `json:"files"`
	Error      string `json:"error,omitempty"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}
