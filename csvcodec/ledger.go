package csvcodec

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/cashbook/till"
)

// LedgerKind says whether a combined ledger row is a salary or an advance.
type LedgerKind string

const (
	LedgerSalary  LedgerKind = "salary"
	LedgerAdvance LedgerKind = "advance"
)

// LedgerHeader is the combined salary and advance layout. The column name
// "type" appears twice: first the row kind, last the advance payment type.
var LedgerHeader = []string{"type", "id", "date", "employeeId", "employeeName", "month", "amount", "comments", "type"}

// LedgerRow is one line of the combined salary ledger.
type LedgerRow struct {
	Kind         LedgerKind
	ID           string
	Date         string
	EmployeeID   string
	EmployeeName string
	Month        string
	Amount       decimal.Decimal
	Comments     string
	AdvanceType  till.AdvanceType
}

// Ledger is a decoded combined ledger split by kind.
type Ledger struct {
	Salaries []till.EmployeeSalary
	Advances []till.SalaryAdvance
}

// LedgerSchema encodes ledger rows and, on decode, resolves each row's
// employee against employees: by id first, then by case-insensitive name.
// Rows naming an unknown employee fail to decode.
func LedgerSchema(employees []till.Employee) Schema[LedgerRow] {
	byID := make(map[string]bool, len(employees))
	byName := make(map[string]string, len(employees))
	for _, e := range employees {
		byID[e.ID] = true
		if _, ok := byName[EmployeeKey(e)]; !ok {
			byName[EmployeeKey(e)] = e.ID
		}
	}

	return Schema[LedgerRow]{
		Header:     LedgerHeader,
		MinColumns: 7,
		Key:        func(l LedgerRow) string { return string(l.Kind) + ":" + l.ID },
		Encode: func(l LedgerRow) []string {
			return []string{
				string(l.Kind), l.ID, l.Date, l.EmployeeID, l.EmployeeName,
				l.Month, money(l.Amount), l.Comments, string(l.AdvanceType),
			}
		},
		Decode: func(row Row) (LedgerRow, error) {
			l := LedgerRow{
				Kind:         LedgerKind(strings.ToLower(row.String(0))),
				ID:           row.String(1),
				Date:         row.String(2),
				EmployeeID:   row.String(3),
				EmployeeName: row.String(4),
				Month:        row.String(5),
				Amount:       row.Money(6),
				Comments:     row.String(7),
			}
			switch l.Kind {
			case LedgerSalary:
				if l.Month == "" && len(l.Date) >= 7 {
					l.Month = l.Date[:7]
				}
			case LedgerAdvance:
				l.AdvanceType = till.AdvanceCash
				if strings.EqualFold(row.String(8), string(till.AdvanceBank)) {
					l.AdvanceType = till.AdvanceBank
				}
			default:
				row.Fail(0, fmt.Errorf("unknown ledger row type %q", l.Kind))
			}

			if !byID[l.EmployeeID] {
				id, ok := byName[strings.ToLower(l.EmployeeName)]
				if !ok {
					row.Fail(3, fmt.Errorf("unknown employee %q (%s)", l.EmployeeID, l.EmployeeName))
				}
				l.EmployeeID = id
			}
			return l, row.Err()
		},
	}
}

// LedgerRows flattens statements and advances into ledger rows, salaries first.
// Employee names are looked up in employees; missing ones read "Unknown".
func LedgerRows(salaries []till.EmployeeSalary, advances []till.SalaryAdvance, employees []till.Employee) []LedgerRow {
	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return "Unknown"
	}

	rows := make([]LedgerRow, 0, len(salaries)+len(advances))
	for _, s := range salaries {
		rows = append(rows, LedgerRow{
			Kind:         LedgerSalary,
			ID:           s.ID,
			Date:         s.Month + "-01",
			EmployeeID:   s.EmployeeID,
			EmployeeName: name(s.EmployeeID),
			Month:        s.Month,
			Amount:       s.Salary,
		})
	}
	for _, a := range advances {
		rows = append(rows, LedgerRow{
			Kind:         LedgerAdvance,
			ID:           a.ID,
			Date:         a.Date,
			EmployeeID:   a.EmployeeID,
			EmployeeName: name(a.EmployeeID),
			Month:        a.Month(),
			Amount:       a.Amount,
			Comments:     a.Comments,
			AdvanceType:  a.Type,
		})
	}
	return rows
}

// EncodeLedger writes the combined ledger.
func EncodeLedger(w io.Writer, salaries []till.EmployeeSalary, advances []till.SalaryAdvance, employees []till.Employee) error {
	return Encode(w, LedgerSchema(employees), LedgerRows(salaries, advances, employees))
}

// DecodeLedger reads a combined ledger and splits it by kind. Salary rows
// carry only the salary and its sales estimate; the repository recomputes
// the advance split and balances when it stores them.
func DecodeLedger(r io.Reader, employees []till.Employee) (Ledger, []*ParseError, error) {
	res, err := Decode(r, LedgerSchema(employees))
	if err != nil {
		return Ledger{}, nil, err
	}

	var out Ledger
	for _, l := range res.Items {
		switch l.Kind {
		case LedgerSalary:
			// The id column is ignored: a statement is keyed by month and
			// the employee the row resolved to.
			out.Salaries = append(out.Salaries, till.EmployeeSalary{
				ID:         till.SalaryID(l.Month, l.EmployeeID),
				Month:      l.Month,
				EmployeeID: l.EmployeeID,
				Salary:     l.Amount,
				TotalSales: till.EstimatedSales(l.Amount),
			})
		case LedgerAdvance:
			out.Advances = append(out.Advances, till.SalaryAdvance{
				ID:         l.ID,
				Date:       l.Date,
				Amount:     l.Amount,
				EmployeeID: l.EmployeeID,
				Comments:   l.Comments,
				Type:       l.AdvanceType,
			})
		}
	}
	return out, res.Errors, nil
}
