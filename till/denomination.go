package till

import "github.com/shopspring/decimal"

// Note is the face value of a currency note.
type Note int64

const (
	Note500 Note = 500
	Note200 Note = 200
	Note100 Note = 100
	Note50  Note = 50
	Note20  Note = 20
	Note10  Note = 10
	Note5   Note = 5
)

// Notes lists the counted notes, largest first. The order is for display only.
var Notes = []Note{Note500, Note200, Note100, Note50, Note20, Note10, Note5}

// Denominations is the count of each note found in the till.
type Denominations struct {
	D500 int64 `json:"d500"`
	D200 int64 `json:"d200"`
	D100 int64 `json:"d100"`
	D50  int64 `json:"d50"`
	D20  int64 `json:"d20"`
	D10  int64 `json:"d10"`
	D5   int64 `json:"d5"`
}

// Count returns the number of notes of the given value. Unknown notes count 0.
func (d Denominations) Count(n Note) int64 {
	switch n {
	case Note500:
		return d.D500
	case Note200:
		return d.D200
	case Note100:
		return d.D100
	case Note50:
		return d.D50
	case Note20:
		return d.D20
	case Note10:
		return d.D10
	case Note5:
		return d.D5
	}
	return 0
}

// Set stores the count for a note. Unknown notes are ignored.
func (d *Denominations) Set(n Note, count int64) {
	switch n {
	case Note500:
		d.D500 = count
	case Note200:
		d.D200 = count
	case Note100:
		d.D100 = count
	case Note50:
		d.D50 = count
	case Note20:
		d.D20 = count
	case Note10:
		d.D10 = count
	case Note5:
		d.D5 = count
	}
}

// HasNegative reports whether any count is below zero.
func (d Denominations) HasNegative() bool {
	for _, n := range Notes {
		if d.Count(n) < 0 {
			return true
		}
	}
	return false
}

// TotalFromDenominations is the cash value of the counted notes.
// Negative counts are summed as given; rejecting them is a Validator concern.
func TotalFromDenominations(d Denominations) decimal.Decimal {
	var sum int64
	for _, n := range Notes {
		sum += d.Count(n) * int64(n)
	}
	return decimal.NewFromInt(sum)
}
