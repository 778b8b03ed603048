package view

import (
	"bytes"
	"encoding/json"
	"html/template"

	"github.com/bingLAN/table_view/common"
)

// NoDataText is the single cell shown for an empty or non-array payload.
const NoDataText = "No data"

// html/template escapes every cell and header in text context.
var tableTmpl = template.Must(template.New("table").Parse(
	`{{if .Empty}}<tbody><tr><td>{{.NoData}}</td></tr></tbody>` +
		`{{else}}<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>` +
		`<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>{{end}}`))

// Table is the rectangular form of a dataset: every row has exactly one cell
// per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

func (t Table) NoData() string {
	return NoDataText
}

// ParsePayload decodes a response body. Bodies that are valid json but not an
// array yield a nil dataset; array elements that are not objects become
// empty rows.
func ParsePayload(resource string, body []byte) (common.Dataset, error) {
	var probe interface{}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &ParseError{Resource: resource, Err: err}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &ParseError{Resource: resource, Err: err}
	}

	dataset := make(common.Dataset, 0, len(items))
	for _, item := range items {
		row := common.NewRow()
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			if err := row.UnmarshalJSON(item); err != nil {
				return nil, &ParseError{Resource: resource, Err: err}
			}
		}
		dataset = append(dataset, row)
	}
	return dataset, nil
}

// BuildTable takes its columns from the first row. Keys that later rows lack
// become empty cells; keys only later rows have are dropped.
func BuildTable(data common.Dataset) Table {
	if len(data) == 0 {
		return Table{}
	}

	t := Table{Columns: data.Columns(), Rows: make([][]string, 0, len(data))}
	for _, row := range data {
		cells := make([]string, len(t.Columns))
		for index, column := range t.Columns {
			if v, ok := row.Get(column); ok {
				cells[index] = v.Text()
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// RenderTable returns the inner markup of a table element for data.
func RenderTable(data common.Dataset) (string, error) {
	var buf bytes.Buffer
	if err := tableTmpl.Execute(&buf, BuildTable(data)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
