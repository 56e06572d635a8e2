/*
Package html exports the entries of an indexed array as an HTML table, and
reads such tables back.

Each table row describes one entry, multi-index entries included:

	<tr data-first="8" data-last="11" data-kind="value">
	  <td>8</td><td>11</td><td>8</td><td>tag0 tag2</td>
	</tr>

Only integer entries can be read back; rows for pointer entries are
skipped by ReadTable.
*/
package html

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strconv"
	"strings"

	"github.com/npillmayer/iarray"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrMalformedRow is returned by ReadTable for a row it cannot interpret.
var ErrMalformedRow = errors.New("html: malformed table row")

// Table creates an HTML table node for the entries of a at indices in
// [first, last].
func Table(a *iarray.Array, first, last uint64) (*html.Node, error) {
	if a == nil {
		return nil, errors.New("html: nil array")
	}
	table := element(atom.Table, html.Attribute{Key: "class", Val: "iarray"})
	head := element(atom.Tr)
	for _, h := range []string{"first", "last", "entry", "tags"} {
		th := element(atom.Th)
		th.AppendChild(text(h))
		head.AppendChild(th)
	}
	table.AppendChild(head)
	for index := range a.All(first, last) {
		from, to, e := a.Span(index)
		if e.IsEmpty() {
			continue // erased concurrently
		}
		table.AppendChild(row(a, from, to, e))
	}
	return table, nil
}

// WriteTable renders the table for [first, last] to w.
func WriteTable(w io.Writer, a *iarray.Array, first, last uint64) error {
	table, err := Table(a, first, last)
	if err != nil {
		return err
	}
	return html.Render(w, table)
}

func row(a *iarray.Array, from, to uint64, e iarray.Entry) *html.Node {
	kind := "pointer"
	content := fmt.Sprintf("%v", e.Ref())
	if e.IsValue() {
		kind = "value"
		content = strconv.FormatUint(e.Uint(), 10)
	}
	tr := element(atom.Tr,
		html.Attribute{Key: "data-first", Val: strconv.FormatUint(from, 10)},
		html.Attribute{Key: "data-last", Val: strconv.FormatUint(to, 10)},
		html.Attribute{Key: "data-kind", Val: kind},
	)
	var tags []string
	for t := iarray.Tag0; t < iarray.MaxTags; t++ {
		if a.GetTag(from, t) {
			tags = append(tags, t.String())
		}
	}
	cells := []string{
		strconv.FormatUint(from, 10),
		strconv.FormatUint(to, 10),
		content,
		strings.Join(tags, " "),
	}
	for _, c := range cells {
		td := element(atom.Td)
		td.AppendChild(text(c))
		tr.AppendChild(td)
	}
	return tr
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// ReadTable parses an HTML document or fragment and stores the integer
// entries of all rows written by Table into a, together with their tags.
// It returns the number of entries stored.
func ReadTable(input io.Reader, a *iarray.Array) (int, error) {
	doc, err := html.Parse(input)
	if err != nil {
		return 0, err
	}
	count := 0
	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr && attr(n, "data-kind") == "value" {
			if err := readRow(n, a); err != nil {
				return err
			}
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	err = walk(doc)
	return count, err
}

func readRow(tr *html.Node, a *iarray.Array) error {
	from, err1 := strconv.ParseUint(attr(tr, "data-first"), 10, 64)
	to, err2 := strconv.ParseUint(attr(tr, "data-last"), 10, 64)
	if err := errors.Join(err1, err2); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	order, ok := orderOf(from, to)
	if !ok || to < from {
		return fmt.Errorf("%w: range %d-%d is not an aligned power of two", ErrMalformedRow, from, to)
	}
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			cells = append(cells, innerText(c))
		}
	}
	if len(cells) != 4 {
		return fmt.Errorf("%w: %d cells", ErrMalformedRow, len(cells))
	}
	v, err := strconv.ParseUint(strings.TrimSpace(cells[2]), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if _, err := a.StoreOrder(from, order, iarray.Value(v)); err != nil {
		return err
	}
	for _, name := range strings.Fields(cells[3]) {
		t, ok := tagByName(name)
		if !ok {
			return fmt.Errorf("%w: unknown tag %q", ErrMalformedRow, name)
		}
		a.SetTag(from, t)
	}
	return nil
}

// orderOf returns the order of an entry covering [from, to].
func orderOf(from, to uint64) (uint, bool) {
	span := to - from + 1
	if span == 0 { // all indices
		return iarray.MaxOrder, from == 0
	}
	if span&(span-1) != 0 || from&(span-1) != 0 {
		return 0, false
	}
	return uint(bits.TrailingZeros64(span)), true
}

func tagByName(name string) (iarray.Tag, bool) {
	for t := iarray.Tag0; t < iarray.MaxTags; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// innerText collects the text of n and all its descendents.
func innerText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
