// Package htmldoc loads rendered HTML pages and lays them out as a single
// column so the tracker can run outside a browser. Geometry is synthetic:
// text wraps at a fixed column count and every line has the same height.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	positionout "docgrind/internal/modules/position/port/out"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/frontmatter"
)

type Layout struct {
	LineHeight   float64
	CharsPerLine int
	BlockMargin  float64
	ImageHeight  float64
	// HeadingScale multiplies the line height of h1-h6.
	HeadingScale float64
}

func DefaultLayout() Layout {
	return Layout{LineHeight: 24, CharsPerLine: 80, BlockMargin: 16, ImageHeight: 320, HeadingScale: 1.5}
}

var blockTags = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Main: true, atom.Article: true, atom.Section: true,
	atom.Div: true, atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Aside: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Pre: true, atom.Blockquote: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Table: true, atom.Thead: true, atom.Tbody: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Figure: true, atom.Figcaption: true,
	atom.Img: true, atom.Hr: true, atom.Form: true, atom.Details: true, atom.Summary: true,
}

var skippedTags = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true, atom.Noscript: true,
}

type Document struct {
	layout Layout
	meta   frontmatter.Meta
	nodes  []*Node
	height float64
}

// Node is an element of a parsed Document.
type Node struct {
	n      *html.Node
	top    float64
	height float64
}

func Load(path string, layout Layout) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Parse(bytes.NewReader(raw), layout)
}

// Parse reads an optional frontmatter header followed by HTML.
func Parse(r io.Reader, layout Layout) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	meta, body, err := frontmatter.Split(string(raw))
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if layout.LineHeight <= 0 || layout.CharsPerLine <= 0 {
		layout = DefaultLayout()
	}
	d := &Document{layout: layout, meta: meta}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			d.height += d.layoutBlock(c, d.height)
		}
	}
	return d, nil
}

func (d *Document) Meta() frontmatter.Meta { return d.meta }

// Height is the laid-out height of the whole page.
func (d *Document) Height() float64 { return d.height }

// Title prefers the frontmatter title, then the first h1.
func (d *Document) Title() string {
	if d.meta.Title != "" {
		return d.meta.Title
	}
	for _, node := range d.nodes {
		if node.n.DataAtom == atom.H1 {
			return node.Text()
		}
	}
	return ""
}

func (d *Document) FindByID(id string) (positionout.Node, bool) {
	if id == "" {
		return nil, false
	}
	for _, node := range d.nodes {
		if node.ID() == id {
			return node, true
		}
	}
	return nil, false
}

// Query returns the laid-out elements inside the first match of
// containerSelector that match any of selectors, in document order.
func (d *Document) Query(containerSelector string, selectors []string) ([]positionout.Node, error) {
	if strings.TrimSpace(containerSelector) == "" {
		containerSelector = "body"
	}
	scope, err := compileSelectors([]string{containerSelector})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}
	match, err := compileSelectors(selectors)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	container := d.first(scope)
	if container == nil {
		return nil, fmt.Errorf("container %q: %w", containerSelector, apperrors.ErrNotFound)
	}
	var out []positionout.Node
	for _, node := range d.nodes {
		if node == container || !isDescendant(node.n, container.n) {
			continue
		}
		if matchesAny(match, node.n) {
			out = append(out, node)
		}
	}
	return out, nil
}

func (d *Document) first(sels []cascadia.Matcher) *Node {
	for _, node := range d.nodes {
		if matchesAny(sels, node.n) {
			return node
		}
	}
	return nil
}

func (d *Document) register(n *html.Node) *Node {
	node := &Node{n: n}
	d.nodes = append(d.nodes, node)
	return node
}

func (d *Document) lineHeight(n *html.Node) float64 {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return d.layout.LineHeight * d.layout.HeadingScale
	}
	return d.layout.LineHeight
}

func (d *Document) lines(chars int) float64 {
	if chars <= 0 {
		return 0
	}
	return math.Ceil(float64(chars) / float64(d.layout.CharsPerLine))
}

// layoutBlock places n at top and returns its height. Inline runs between
// block children wrap as one paragraph.
func (d *Document) layoutBlock(n *html.Node, top float64) float64 {
	if skippedTags[n.DataAtom] {
		return 0
	}
	node := d.register(n)
	node.top = top

	switch n.DataAtom {
	case atom.Img:
		node.height = d.layout.ImageHeight
		return node.height
	case atom.Hr:
		node.height = d.layout.BlockMargin
		return node.height
	case atom.Pre:
		raw := strings.Trim(rawText(n), "\n")
		count := 0.0
		if raw != "" {
			count = float64(strings.Count(raw, "\n") + 1)
		}
		node.height = count*d.layout.LineHeight + d.layout.BlockMargin
		d.layoutInlineChildren(n, top, node.height)
		return node.height
	}

	lh := d.lineHeight(n)
	cursor := top
	runChars := 0
	hadText := false
	flush := func() {
		if runChars > 0 {
			cursor += d.lines(runChars) * lh
			hadText = true
		}
		runChars = 0
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			runChars += utf8.RuneCountInString(collapse(c.Data))
		case c.Type != html.ElementNode || skippedTags[c.DataAtom]:
		case blockTags[c.DataAtom]:
			flush()
			cursor += d.layoutBlock(c, cursor)
		default:
			start := cursor + d.lines(runChars)*lh
			text := collapse(textOf(c))
			d.layoutInline(c, start, math.Max(d.lines(utf8.RuneCountInString(text)), 1)*lh)
			runChars += utf8.RuneCountInString(text)
		}
	}
	flush()
	if hadText {
		cursor += d.layout.BlockMargin
	}
	node.height = cursor - top
	return node.height
}

// layoutInline registers an inline element and its inline descendants with
// the geometry of the line run they sit in.
func (d *Document) layoutInline(n *html.Node, top, height float64) {
	if skippedTags[n.DataAtom] {
		return
	}
	node := d.register(n)
	node.top = top
	node.height = height
	d.layoutInlineChildren(n, top, height)
}

func (d *Document) layoutInlineChildren(n *html.Node, top, height float64) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			d.layoutInline(c, top, height)
		}
	}
}

func (n *Node) ID() string { return n.Attr("id") }

func (n *Node) SetID(id string) {
	for i, a := range n.n.Attr {
		if a.Key == "id" {
			n.n.Attr[i].Val = id
			return
		}
	}
	n.n.Attr = append(n.n.Attr, html.Attribute{Key: "id", Val: id})
}

func (n *Node) Tag() string        { return n.n.Data }
func (n *Node) OffsetTop() float64 { return n.top }
func (n *Node) Height() float64    { return n.height }

func (n *Node) Attr(key string) string {
	for _, a := range n.n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Text is the element's text content with whitespace collapsed. Preformatted
// blocks keep their line breaks.
func (n *Node) Text() string {
	if n.n.DataAtom == atom.Pre {
		return strings.Trim(rawText(n.n), "\n")
	}
	if n.n.DataAtom == atom.Img {
		return n.Attr("alt")
	}
	return collapse(textOf(n.n))
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch {
		case c.Type == html.TextNode:
			b.WriteString(c.Data)
		case c.Type == html.ElementNode && skippedTags[c.DataAtom]:
			return
		case c.Type == html.ElementNode && blockTags[c.DataAtom]:
			b.WriteByte(' ')
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isDescendant(n, ancestor *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
