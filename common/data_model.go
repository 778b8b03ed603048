package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// CellKind tells which json type a cell came from.
type CellKind int

const (
	CellNull CellKind = iota
	CellString
	CellNumber
	CellBool
	CellRaw // nested object/array, kept as compact json text
)

// CellValue is one scalar of a Row. The zero value is Null.
type CellValue struct {
	kind CellKind
	text string
	b    bool
}

func NullCell() CellValue {
	return CellValue{}
}

func StringCell(s string) CellValue {
	return CellValue{kind: CellString, text: s}
}

func NumberCell(n json.Number) CellValue {
	return CellValue{kind: CellNumber, text: n.String()}
}

func BoolCell(b bool) CellValue {
	return CellValue{kind: CellBool, b: b}
}

// CellFromAny converts a value scanned from database/sql into a cell.
func CellFromAny(v interface{}) CellValue {
	switch x := v.(type) {
	case nil:
		return NullCell()
	case CellValue:
		return x
	case string:
		return StringCell(x)
	case []byte:
		return StringCell(string(x))
	case bool:
		return BoolCell(x)
	case int:
		return NumberCell(json.Number(strconv.FormatInt(int64(x), 10)))
	case int8:
		return NumberCell(json.Number(strconv.FormatInt(int64(x), 10)))
	case int16:
		return NumberCell(json.Number(strconv.FormatInt(int64(x), 10)))
	case int32:
		return NumberCell(json.Number(strconv.FormatInt(int64(x), 10)))
	case int64:
		return NumberCell(json.Number(strconv.FormatInt(x, 10)))
	case uint:
		return NumberCell(json.Number(strconv.FormatUint(uint64(x), 10)))
	case uint8:
		return NumberCell(json.Number(strconv.FormatUint(uint64(x), 10)))
	case uint16:
		return NumberCell(json.Number(strconv.FormatUint(uint64(x), 10)))
	case uint32:
		return NumberCell(json.Number(strconv.FormatUint(uint64(x), 10)))
	case uint64:
		return NumberCell(json.Number(strconv.FormatUint(x, 10)))
	case float32:
		return floatCell(float64(x), 32)
	case float64:
		return floatCell(x, 64)
	case json.Number:
		return NumberCell(x)
	case time.Time:
		return StringCell(x.Format("2006-01-02 15:04:05"))
	case fmt.Stringer:
		return StringCell(x.String())
	default:
		return StringCell(fmt.Sprintf("%v", x))
	}
}

func floatCell(f float64, bitSize int) CellValue {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		// not representable in json
		return StringCell(strconv.FormatFloat(f, 'g', -1, bitSize))
	}
	return NumberCell(json.Number(strconv.FormatFloat(f, 'f', -1, bitSize)))
}

func (c CellValue) Kind() CellKind {
	return c.kind
}

func (c CellValue) IsNull() bool {
	return c.kind == CellNull
}

// Text is the display form of the cell: null is empty, numbers keep their
// wire representation.
func (c CellValue) Text() string {
	switch c.kind {
	case CellNull:
		return ""
	case CellBool:
		return strconv.FormatBool(c.b)
	default:
		return c.text
	}
}

func (c CellValue) String() string {
	return c.Text()
}

func (c CellValue) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case CellNull:
		return []byte("null"), nil
	case CellBool:
		return []byte(strconv.FormatBool(c.b)), nil
	case CellNumber, CellRaw:
		return []byte(c.text), nil
	default:
		return json.Marshal(c.text)
	}
}

func (c *CellValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty cell value")
	}

	switch data[0] {
	case 'n':
		*c = NullCell()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = BoolCell(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StringCell(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*c = CellValue{kind: CellRaw, text: buf.String()}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*c = NumberCell(n)
	}

	return nil
}

// Row maps column names to cells and remembers the order columns were first seen.
type Row struct {
	columns []string
	cells   map[string]CellValue
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{cells: make(map[string]CellValue)}
}

// Set keeps the column's original position when it already exists.
func (r *Row) Set(column string, value CellValue) {
	if r.cells == nil {
		r.cells = make(map[string]CellValue)
	}
	if _, ok := r.cells[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.cells[column] = value
}

// Get returns the cell for column and whether the row has it.
func (r *Row) Get(column string) (CellValue, bool) {
	if r == nil || r.cells == nil {
		return NullCell(), false
	}
	v, ok := r.cells[column]
	return v, ok
}

// Columns returns a copy of the column order.
func (r *Row) Columns() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.columns)
}

func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for index, column := range r.Columns() {
		if index > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.cells[column].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a json object, got %v", tok)
	}

	r.columns = nil
	r.cells = make(map[string]CellValue)
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected row key %v", tok)
		}

		var raw json.RawMessage
		if err = dec.Decode(&raw); err != nil {
			return err
		}
		var cell CellValue
		if err = cell.UnmarshalJSON(raw); err != nil {
			return err
		}
		r.Set(key, cell)
	}

	// closing brace
	_, err = dec.Token()
	return err
}

// Dataset is the ordered result of one resource query.
type Dataset []*Row

func (d Dataset) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*Row(d))
}

// Columns are the keys of the first row, in that row's order.
func (d Dataset) Columns() []string {
	if len(d) == 0 {
		return nil
	}
	return d[0].Columns()
}
