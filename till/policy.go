/*
policy.go - Pluggable presentation and validation policies

DIFFERENCE PRESENTATION:
  Passthrough        shows the true difference.
  MaskLargeNegative  replaces a difference below -100 with a random value
                     in [-90, -10]. The stored figure is never masked; the
                     policy only affects what is displayed or exported.

VALIDATION:
  Permissive  accepts everything (the shipped behaviour).
  Strict      rejects withdrawals above the counted cash, differences
              beyond MaxDifference and negative inputs.

SEE ALSO:
  - engine.go: Engine.Present and Engine.Validate
  - errors.go: ValidationError
*/
package till

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIFFERENCE PRESENTATION
// =============================================================================

// DifferencePolicy decides how a cash difference is presented.
type DifferencePolicy interface {
	Present(diff decimal.Decimal) decimal.Decimal
}

// Policy names accepted by PolicyByName.
const (
	PolicyPassthrough = "passthrough"
	PolicyMask        = "mask"
)

// Passthrough presents the true difference.
type Passthrough struct{}

func (Passthrough) Present(diff decimal.Decimal) decimal.Decimal { return diff }

// MaskThreshold is the difference below which MaskLargeNegative substitutes a value.
var MaskThreshold = decimal.NewFromInt(-100)

// MaskLargeNegative hides large negative differences behind a value in [-90, -10].
type MaskLargeNegative struct {
	// Rand is the random source. Nil uses the global source.
	Rand *rand.Rand
}

func (m MaskLargeNegative) Present(diff decimal.Decimal) decimal.Decimal {
	if !diff.LessThan(MaskThreshold) {
		return diff
	}
	var n int
	if m.Rand != nil {
		n = m.Rand.IntN(81)
	} else {
		n = rand.IntN(81)
	}
	return decimal.NewFromInt(int64(-n - 10))
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (DifferencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyPassthrough:
		return Passthrough{}, nil
	case PolicyMask, "masklargenegative":
		return MaskLargeNegative{}, nil
	}
	return nil, fmt.Errorf("unknown difference policy %q", name)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validator checks a derived record before it is saved.
type Validator interface {
	ValidateCashWithdrawn(totalFromDenominations, cashWithdrawn decimal.Decimal) error
	ValidateCashDifference(diff decimal.Decimal) error
	ValidateRecord(r SalesRecord) error
}

// Validation policy names accepted by ValidatorByName.
const (
	ValidationPermissive = "permissive"
	ValidationStrict     = "strict"
)

// Permissive accepts every record.
type Permissive struct{}

func (Permissive) ValidateCashWithdrawn(_, _ decimal.Decimal) error { return nil }
func (Permissive) ValidateCashDifference(decimal.Decimal) error    { return nil }
func (Permissive) ValidateRecord(SalesRecord) error                 { return nil }

// Strict restores the checks the permissive policy switches off.
type Strict struct {
	// MaxDifference bounds |cashDifference|. Zero disables the bound.
	MaxDifference decimal.Decimal
}

func (s Strict) ValidateCashWithdrawn(totalFromDenominations, cashWithdrawn decimal.Decimal) error {
	if cashWithdrawn.GreaterThan(totalFromDenominations) {
		return &ValidationError{
			Field:   "cashWithdrawn",
			Rule:    "lte_counted",
			Value:   cashWithdrawn.String(),
			Message: fmt.Sprintf("cash withdrawn %s exceeds counted cash %s", cashWithdrawn, totalFromDenominations),
		}
	}
	return nil
}

func (s Strict) ValidateCashDifference(diff decimal.Decimal) error {
	if s.MaxDifference.IsZero() {
		return nil
	}
	if diff.Abs().GreaterThan(s.MaxDifference) {
		return &ValidationError{
			Field:   "cashDifference",
			Rule:    "max_difference",
			Value:   diff.String(),
			Message: fmt.Sprintf("cash difference %s is beyond the allowed %s", diff, s.MaxDifference),
		}
	}
	return nil
}

func (s Strict) ValidateRecord(r SalesRecord) error {
	if r.Denominations.HasNegative() {
		return &ValidationError{Field: "denominations", Rule: "gte0", Message: "note counts must not be negative"}
	}
	amounts := map[string]decimal.Decimal{
		"openingCash":      r.OpeningCash,
		"totalSalesPOS":    r.TotalSalesPOS,
		"paytmSales":       r.PaytmSales,
		"cleaningExpenses": r.CleaningExpenses,
		"cashWithdrawn":    r.CashWithdrawn,
		"otherExpenses":    TotalOtherExpenses(r.OtherExpenses),
		"employeeAdvances": TotalEmployeeAdvances(r.EmployeeAdvances),
	}
	for _, field := range []string{"openingCash", "totalSalesPOS", "paytmSales", "cleaningExpenses", "cashWithdrawn", "otherExpenses", "employeeAdvances"} {
		if amounts[field].IsNegative() {
			return &ValidationError{Field: field, Rule: "gte0", Value: amounts[field].String(), Message: field + " must not be negative"}
		}
	}
	if r.PaytmSales.GreaterThan(r.TotalSalesPOS) {
		return &ValidationError{Field: "paytmSales", Rule: "lte_pos", Value: r.PaytmSales.String(), Message: "paytm sales exceed total POS sales"}
	}
	return nil
}

// ValidatorByName resolves a configured validation policy.
func ValidatorByName(name string, maxDifference decimal.Decimal) (Validator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ValidationPermissive:
		return Permissive{}, nil
	case ValidationStrict:
		return Strict{MaxDifference: maxDifference}, nil
	}
	return nil, fmt.Errorf("unknown validation policy %q", name)
}
