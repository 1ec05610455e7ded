/*
engine.go - Derivation of the computed fields of a daily sales record

PURPOSE:
  Every figure shown for a day (expenses, expected cash, closing cash,
  cash difference) is computed here and nowhere else. Repositories,
  CSV export, import, reports and the HTTP layer all call Engine.Derive.

FORMULAS:
  totalExpenses          = advances(1..4) + cleaning + other(1..2)
  totalFromDenominations = sum(count * note)
  closingCash            = totalFromDenominations - cashWithdrawn
  totalCashSales         = totalSalesPOS - paytmSales
  totalCash              = openingCash + totalCashSales - totalExpenses + Offset
  cashDifference         = totalCash - totalFromDenominations

SIGN CONVENTION:
  A positive difference means the books expect more cash than was counted.

IDEMPOTENCY:
  Derive only reads input fields, so Derive(Derive(r)) == Derive(r).
  Presentation (masking) is a separate step, see policy.go.

SEE ALSO:
  - policy.go: DifferencePolicy and Validator
  - denomination.go: TotalFromDenominations
*/
package till

import "github.com/shopspring/decimal"

// DefaultCashOffset is the fixed reconciliation adjustment added to expected cash.
const DefaultCashOffset = 50

// WarningBand is the largest positive difference still reported as a warning.
const WarningBand = 50

// Status classifies a cash difference for presentation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// =============================================================================
// PURE CALCULATIONS
// =============================================================================

// TotalEmployeeAdvances sums the four advance slots.
func TotalEmployeeAdvances(a EmployeeAdvances) decimal.Decimal {
	total := decimal.Zero
	for _, v := range a.Slots() {
		total = total.Add(v)
	}
	return total
}

// TotalOtherExpenses sums the two free-form expense amounts.
func TotalOtherExpenses(o OtherExpenses) decimal.Decimal {
	return o.Amount1.Add(o.Amount2)
}

// TotalExpenses is advances plus cleaning plus other expenses.
func TotalExpenses(r SalesRecord) decimal.Decimal {
	return TotalEmployeeAdvances(r.EmployeeAdvances).
		Add(r.CleaningExpenses).
		Add(TotalOtherExpenses(r.OtherExpenses))
}

// TotalCashSales is the cash portion of POS sales.
func TotalCashSales(posTotal, paytmSales decimal.Decimal) decimal.Decimal {
	return posTotal.Sub(paytmSales)
}

// TotalCash is the cash the books expect in the till.
func TotalCash(openingCash, totalCashSales, totalExpenses, offset decimal.Decimal) decimal.Decimal {
	return openingCash.Add(totalCashSales).Sub(totalExpenses).Add(offset)
}

// ClosingCash is the counted cash left after the withdrawal.
func ClosingCash(totalFromDenominations, cashWithdrawn decimal.Decimal) decimal.Decimal {
	return totalFromDenominations.Sub(cashWithdrawn)
}

// CashDifference is expected cash minus counted cash.
func CashDifference(totalCash, totalFromDenominations decimal.Decimal) decimal.Decimal {
	return totalCash.Sub(totalFromDenominations)
}

// DifferenceStatus classifies a difference: success <= 0 < warning <= 50 < error.
func DifferenceStatus(diff decimal.Decimal) Status {
	switch {
	case !diff.IsPositive():
		return StatusSuccess
	case diff.LessThanOrEqual(decimal.NewFromInt(WarningBand)):
		return StatusWarning
	default:
		return StatusError
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine composes the calculations with the configured policies.
type Engine struct {
	// Offset is added to expected cash. Defaults to DefaultCashOffset.
	Offset decimal.Decimal

	// Policy decides how a difference is shown. Nil means Passthrough.
	Policy DifferencePolicy

	// Validator checks records before they are saved. Nil means Permissive.
	Validator Validator
}

// Option configures an Engine.
type Option func(*Engine)

// WithOffset overrides the reconciliation offset.
func WithOffset(offset decimal.Decimal) Option {
	return func(e *Engine) { e.Offset = offset }
}

// WithPolicy sets the difference presentation policy.
func WithPolicy(p DifferencePolicy) Option {
	return func(e *Engine) { e.Policy = p }
}

// WithValidator sets the validation policy.
func WithValidator(v Validator) Option {
	return func(e *Engine) { e.Validator = v }
}

// NewEngine returns an engine with the reference defaults:
// offset 50, passthrough presentation and permissive validation.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		Offset:    decimal.NewFromInt(DefaultCashOffset),
		Policy:    Passthrough{},
		Validator: Permissive{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Derive recomputes every derived field of r from its inputs.
func (e *Engine) Derive(r SalesRecord) SalesRecord {
	totalExpenses := TotalExpenses(r)
	fromDenominations := TotalFromDenominations(r.Denominations)
	cashSales := TotalCashSales(r.TotalSalesPOS, r.PaytmSales)
	totalCash := TotalCash(r.OpeningCash, cashSales, totalExpenses, e.offset())

	r.Derived = Derived{
		TotalExpenses:          totalExpenses,
		TotalFromDenominations: fromDenominations,
		ClosingCash:            ClosingCash(fromDenominations, r.CashWithdrawn),
		TotalCashSales:         cashSales,
		TotalCash:              totalCash,
		CashDifference:         CashDifference(totalCash, fromDenominations),
	}
	return r
}

// Present returns the difference as it should be displayed.
func (e *Engine) Present(diff decimal.Decimal) decimal.Decimal {
	if e.Policy == nil {
		return diff
	}
	return e.Policy.Present(diff)
}

// Status classifies the displayed difference of a derived record.
func (e *Engine) Status(r SalesRecord) Status {
	return DifferenceStatus(e.Present(r.CashDifference))
}

// Validate derives r and runs the configured validator over it.
func (e *Engine) Validate(r SalesRecord) error {
	if err := ValidateEntity(r); err != nil {
		return err
	}
	v := e.Validator
	if v == nil {
		v = Permissive{}
	}
	d := e.Derive(r)
	if err := v.ValidateCashWithdrawn(d.TotalFromDenominations, d.CashWithdrawn); err != nil {
		return err
	}
	if err := v.ValidateCashDifference(d.CashDifference); err != nil {
		return err
	}
	return v.ValidateRecord(d)
}

func (e *Engine) offset() decimal.Decimal {
	if e == nil {
		return decimal.NewFromInt(DefaultCashOffset)
	}
	return e.Offset
}
