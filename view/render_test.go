package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseTable parses the inner markup of a table element and returns the
// text of every header cell and every body row.
func parseTable(t *testing.T, markup string) (headers []string, rows [][]string) {
	t.Helper()

	ctx := &html.Node{Type: html.ElementNode, Data: "table", DataAtom: atom.Table}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	require.NoError(t, err)

	var text func(n *html.Node) string
	text = func(n *html.Node) string {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			} else {
				sb.WriteString(text(c))
			}
		}
		return sb.String()
	}

	var walk func(n *html.Node, inHead bool)
	walk = func(n *html.Node, inHead bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Thead:
				inHead = true
			case atom.Th:
				headers = append(headers, text(n))
				return
			case atom.Tr:
				if !inHead {
					var cells []string
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						if c.Type == html.ElementNode && c.DataAtom == atom.Td {
							cells = append(cells, text(c))
						}
					}
					rows = append(rows, cells)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inHead)
		}
	}
	for _, n := range nodes {
		walk(n, false)
	}
	return headers, rows
}

func mustParse(t *testing.T, body string) string {
	t.Helper()
	data, err := ParsePayload("test", []byte(body))
	require.NoError(t, err)
	markup, err := RenderTable(data)
	require.NoError(t, err)
	return markup
}

func TestRenderHeaderFollowsFirstRowOrder(t *testing.T) {
	markup := mustParse(t, `[{"zeta":1,"alpha":2,"mid":3},{"alpha":5,"zeta":4,"mid":6}]`)

	headers, rows := parseTable(t, markup)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2", "3"}, rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, rows[1])
}

func TestRenderFillsMissingKeys(t *testing.T) {
	markup := mustParse(t, `[{"a":1,"b":2,"c":3},{"a":4},{"c":9,"extra":"x"}]`)

	headers, rows := parseTable(t, markup)
	require.Len(t, headers, 3)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Len(t, row, len(headers))
	}
	assert.Equal(t, []string{"4", "", ""}, rows[1])
	assert.Equal(t, []string{"", "", "9"}, rows[2])
	assert.NotContains(t, markup, "extra")
}

func TestRenderEscapesCells(t *testing.T) {
	markup := mustParse(t, `[{"name":"<script>alert(1)</script>","note":"a > b"}]`)

	assert.Contains(t, markup, "&lt;script&gt;")
	assert.NotContains(t, markup, "<script>")
	assert.NotContains(t, markup, "a > b")

	_, rows := parseTable(t, markup)
	require.Len(t, rows, 1)
	assert.Equal(t, "<script>alert(1)</script>", rows[0][0])
}

func TestRenderEscapesHeaders(t *testing.T) {
	markup := mustParse(t, `[{"<b>":"x"}]`)

	assert.NotContains(t, markup, "<b>")
	assert.Contains(t, markup, "&lt;b&gt;")
}

func TestRenderEmptyDataset(t *testing.T) {
	for _, body := range []string{`[]`, `{"rows":[1,2]}`, `"text"`, `42`, `null`} {
		markup := mustParse(t, body)
		assert.Equal(t, "<tbody><tr><td>No data</td></tr></tbody>", markup, body)
		assert.NotContains(t, markup, "<th>", body)
	}
}

func TestRenderNullsAreEmpty(t *testing.T) {
	markup := mustParse(t, `[{"a":"x","b":"y"},{"a":null}]`)

	assert.NotContains(t, markup, "null")
	assert.NotContains(t, markup, "undefined")

	_, rows := parseTable(t, markup)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"", ""}, rows[1])
}

func TestRenderScalarKinds(t *testing.T) {
	markup := mustParse(t, `[{"n":12.50,"big":12345678901234567890,"t":true,"f":false,"s":"ok"}]`)

	_, rows := parseTable(t, markup)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"12.50", "12345678901234567890", "true", "false", "ok"}, rows[0])
}

func TestRenderIsDeterministic(t *testing.T) {
	body := `[{"b":1,"a":"<x>"},{"a":null,"b":2}]`
	first := mustParse(t, body)
	second := mustParse(t, body)

	assert.Equal(t, first, second)
}

func TestParsePayloadRejectsInvalidJSON(t *testing.T) {
	for _, body := range []string{``, `{`, `[{"a":1},]`, `<html>`} {
		_, err := ParsePayload("blockinfo", []byte(body))
		var perr *ParseError
		require.ErrorAs(t, err, &perr, body)
		assert.Equal(t, "blockinfo", perr.Resource)
	}
}

func TestParsePayloadNonObjectElements(t *testing.T) {
	data, err := ParsePayload("r", []byte(`[1,{"a":2}]`))
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, 0, data[0].Len())

	table := BuildTable(data)
	assert.Empty(t, table.Columns)
	assert.Len(t, table.Rows, 2)
}
