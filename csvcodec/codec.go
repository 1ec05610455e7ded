/*
Package csvcodec serializes every entity of the cash book to and from CSV.

PURPOSE:
  CSV is both the snapshot format the repositories mirror partitions to
  and the bulk import/export format staff exchange with spreadsheets.

ONE TOKENIZER:
  Every schema goes through encoding/csv. Quoting, embedded commas and
  embedded quotes are handled in one place; schemas only map a row of
  strings to an entity and back.

DECODING:
  - Line 1 is the header. Columns are positional; the header is not used
    to remap them.
  - Blank lines are skipped.
  - A malformed row (too few columns, a non-numeric amount) becomes a
    *ParseError in Result.Errors and is skipped. Decoding continues.
  - Only I/O failures abort a decode.

ROUND TRIP:
  Decode(Encode(items)) == items for every schema.

SEE ALSO:
  - schemas.go: Per-entity column layouts
  - merge.go: Import merge policy
*/
package csvcodec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrParse is matched by every ParseError.
var ErrParse = errors.New("csv parse error")

// ParseError reports a row that could not be decoded.
type ParseError struct {
	Line   int    // 1-based line of the row in the input
	Column string // header name of the offending column, if known
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d: column %q: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Schema maps an entity to a CSV row.
type Schema[T any] struct {
	Header     []string
	MinColumns int
	Encode     func(T) []string
	Decode     func(row Row) (T, error)
	Key        func(T) string
}

// Result holds the decoded items and the rows that were skipped.
type Result[T any] struct {
	Items  []T
	Errors []*ParseError
}

// Skipped is the number of rows that failed to decode.
func (r Result[T]) Skipped() int { return len(r.Errors) }

// =============================================================================
// ENCODE
// =============================================================================

// Encode writes the header and one row per item.
func Encode[T any](w io.Writer, s Schema[T], items []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write(s.Encode(item)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeBytes is Encode into a byte slice.
func EncodeBytes[T any](s Schema[T], items []T) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// DECODE
// =============================================================================

// Decode reads a header line and then every data row.
func Decode[T any](r io.Reader, s Schema[T]) (Result[T], error) {
	return DecodeWith(r, func([]string) Schema[T] { return s })
}

// DecodeWith reads the header and decodes the rows with the schema pick returns.
func DecodeWith[T any](r io.Reader, pick func(header []string) Schema[T]) (Result[T], error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result[T]{}, nil
		}
		return Result[T]{}, err
	}
	return decodeRows(cr, pick(header))
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes[T any](data []byte, s Schema[T]) (Result[T], error) {
	return Decode(bytes.NewReader(data), s)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

func decodeRows[T any](cr *csv.Reader, s Schema[T]) (Result[T], error) {
	var res Result[T]
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				res.Errors = append(res.Errors, &ParseError{Line: csvErr.Line, Err: csvErr.Err})
				continue
			}
			return res, err
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < s.MinColumns {
			res.Errors = append(res.Errors, &ParseError{
				Line: line,
				Err:  fmt.Errorf("expected at least %d columns, got %d", s.MinColumns, len(rec)),
			})
			continue
		}
		item, err := s.Decode(Row{fields: rec, header: s.Header})
		if err != nil {
			var pErr *ParseError
			if !errors.As(err, &pErr) {
				pErr = &ParseError{Err: err}
			}
			pErr.Line = line
			res.Errors = append(res.Errors, pErr)
			continue
		}
		res.Items = append(res.Items, item)
	}
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// ROW ACCESS
// =============================================================================

// Row is one data row. Accessors trim whitespace and remember the first error.
type Row struct {
	fields []string
	header []string
	err    error
}

// Err returns the first conversion error.
func (r *Row) Err() error { return r.err }

// Len is the number of fields in the row.
func (r *Row) Len() int { return len(r.fields) }

// String returns column i, or "" when the row is short.
func (r *Row) String(i int) string {
	if i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Money parses column i as a decimal. Empty means zero.
func (r *Row) Money(i int) decimal.Decimal {
	v := r.String(i)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(i, v, fmt.Errorf("not a number: %q", v))
		return decimal.Zero
	}
	return d
}

// Count parses column i as a whole number. Empty means zero.
func (r *Row) Count(i int) int64 {
	v := r.String(i)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(i, v, fmt.Errorf("not a whole number: %q", v))
		return 0
	}
	return n
}

// Bool parses column i as a boolean. Empty means false.
func (r *Row) Bool(i int) bool {
	v := r.String(i)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		r.fail(i, v, fmt.Errorf("not a boolean: %q", v))
		return false
	}
	return b
}

// Fail records a schema-level error against column i.
func (r *Row) Fail(i int, err error) {
	r.fail(i, r.String(i), err)
}

func (r *Row) fail(i int, value string, err error) {
	if r.err != nil {
		return
	}
	col := ""
	if i < len(r.header) {
		col = r.header[i]
	}
	r.err = &ParseError{Column: col, Value: value, Err: err}
}

func money(d decimal.Decimal) string {
	return d.String()
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}
