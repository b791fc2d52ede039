package modem

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tableClass marks the data tables on SurfBoard status pages.
const tableClass = "simpleTable"

type htmlTable struct {
	heading string
	rows    [][]string
}

// parseTables returns every table carrying class, in document order. The
// heading is the text of the table's first th; each tr becomes one row of
// trimmed td texts.
func parseTables(r io.Reader, class string) (tables []htmlTable, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	tables = []htmlTable{}
	for _, tableNode := range findAll(doc, atom.Table) {
		if !hasClass(tableNode, class) {
			continue
		}
		tables = append(tables, parseTable(tableNode))
	}
	return tables, nil
}

func parseTable(tableNode *html.Node) (table htmlTable) {
	table.rows = [][]string{}
	if th := findAll(tableNode, atom.Th); len(th) > 0 {
		table.heading = nodeText(th[0])
	}
	for _, rowNode := range findAll(tableNode, atom.Tr) {
		row := []string{}
		for _, cellNode := range findAll(rowNode, atom.Td) {
			row = append(row, nodeText(cellNode))
		}
		table.rows = append(table.rows, row)
	}
	return table
}

// findAll returns the descendants of n with the given tag, depth first.
func findAll(n *html.Node, a atom.Atom) (nodes []*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			nodes = append(nodes, c)
		}
		nodes = append(nodes, findAll(c, a)...)
	}
	return nodes
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var contentBuffer bytes.Buffer
	contentNode := n.FirstChild
	for contentNode != nil {
		if contentNode.Type == html.TextNode {
			contentBuffer.WriteString(contentNode.Data)
		} else if contentNode.FirstChild != nil {
			contentNode = contentNode.FirstChild
			continue
		}

		for contentNode != nil && contentNode.NextSibling == nil && contentNode != n {
			contentNode = contentNode.Parent
		}
		if contentNode == nil || contentNode == n {
			break
		}
		contentNode = contentNode.NextSibling
	}
	return strings.TrimSpace(contentBuffer.String())
}
