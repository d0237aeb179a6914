package bps

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/stadata-x/stadatax/internal/tabular"
)

// ParseHTMLTable converts the first <table> element in r into a Result.
// Header cells come from the first <tr> containing <th> elements, or from
// the first row when no <th> is present. Short rows are padded to the
// header width, long rows truncated.
func ParseHTMLTable(r io.Reader) (*tabular.Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := findElement(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("no <table> element found")
	}

	var header []string
	var rows [][]string
	for _, tr := range collectElements(table, "tr") {
		cells, isHeader := rowCells(tr)
		if len(cells) == 0 {
			continue
		}
		if header == nil {
			header = cells
			if !isHeader {
				// Headerless table: synthesize column names and keep the
				// first row as data.
				names := make([]string, len(cells))
				for i := range names {
					names[i] = fmt.Sprintf("Col_%d", i+1)
				}
				rows = append(rows, cells)
				header = names
			}
			continue
		}
		rows = append(rows, fitRow(cells, len(header)))
	}

	if header == nil {
		return nil, fmt.Errorf("table has no rows")
	}
	return tabular.New(header, rows)
}

// rowCells extracts the text of every th/td in a row, reporting whether any
// cell was a th.
func rowCells(tr *html.Node) ([]string, bool) {
	var cells []string
	isHeader := false
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "th":
			isHeader = true
			cells = append(cells, nodeText(c))
		case "td":
			cells = append(cells, nodeText(c))
		}
	}
	return cells, isHeader
}

func fitRow(cells []string, width int) []string {
	if len(cells) == width {
		return cells
	}
	if len(cells) > width {
		return cells[:width]
	}
	padded := make([]string, width)
	copy(padded, cells)
	return padded
}

// findElement returns the first element named tag in depth-first order.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// collectElements returns all descendant elements named tag, skipping any
// nested tables.
func collectElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "table" {
			continue
		}
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
			continue
		}
		out = append(out, collectElements(c, tag)...)
	}
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
