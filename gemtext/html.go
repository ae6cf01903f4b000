package gemtext

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FromHTML converts an HTML document to gemtext. The conversion is
// best-effort and lossy: inline markup is stripped, block structure is
// linearized in document order, and malformed fragments degrade to plain text
// instead of failing. It never returns an error, and for a fixed (src,
// rewriter) pair the output is byte-identical across runs.
//
// Anchors contribute their label to the surrounding text and emit a link line
// after the enclosing block. Images become link lines labeled with their alt
// text. Preformatted regions are copied byte-for-byte.
func FromHTML(src []byte, rw *Rewriter) Text {
	if rw == nil {
		rw = &Rewriter{}
	}
	c := &converter{rw: rw}
	c.convert(html.NewTokenizer(bytes.NewReader(src)))
	return c.doc
}

// converter consumes a flat token stream in a single linear pass. There is no
// DOM: the tokenizer treats unclosed and overlapping tags as inert
// boundaries, which is exactly the tolerance a static site's stray markup
// needs.
type converter struct {
	rw  *Rewriter
	doc Text

	// Current block: inline text nodes are concatenated here and collapsed
	// on flush. Link lines found inside the block are deferred until the
	// block ends.
	text  strings.Builder
	links []LineLink

	heading    int // h1..h6 nesting level, 0 outside headings
	inListItem bool
	quoteDepth int

	pre    bool
	preBuf strings.Builder

	inAnchor   bool
	anchorHref string
	anchorText strings.Builder

	skip int // nesting depth of script/style/noscript/template

	inTitle bool
	title   strings.Builder

	sawH1 bool
}

func (c *converter) convert(tz *html.Tokenizer) {
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			// EOF, or a stream so broken the tokenizer gave up.
			// Either way, keep what was converted so far.
			break
		}

		switch tt {
		case html.TextToken:
			c.handleText(string(tz.Text()))
		case html.StartTagToken:
			c.handleStartTag(tz.Token())
		case html.SelfClosingTagToken:
			c.handleStartTag(tz.Token())
		case html.EndTagToken:
			c.handleEndTag(tz.Token())
		}
		// Comments and doctypes carry no content.
	}

	if c.pre {
		// Unclosed preformatted region.
		c.flushPre()
	}
	c.flushBlock()

	if !c.sawH1 && c.title.Len() > 0 {
		if title := collapse(c.title.String()); title != "" {
			c.doc = append(Text{LineHeading1(title)}, c.doc...)
		}
	}
}

func (c *converter) handleText(data string) {
	switch {
	case c.skip > 0:
	case c.pre:
		c.preBuf.WriteString(data)
	case c.inTitle:
		c.title.WriteString(data)
	default:
		c.text.WriteString(data)
		if c.inAnchor {
			c.anchorText.WriteString(data)
		}
	}
}

func (c *converter) handleStartTag(tok html.Token) {
	if c.pre {
		// Markup inside preformatted blocks (syntax highlighter spans,
		// nested code tags) is dropped; only its text survives.
		return
	}

	switch tok.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		c.skip++
	case atom.Title:
		c.inTitle = true
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.flushBlock()
		c.heading = int(tok.Data[1] - '0')
	case atom.P, atom.Ul, atom.Ol, atom.Div, atom.Section, atom.Article,
		atom.Header, atom.Footer, atom.Main, atom.Nav, atom.Aside,
		atom.Figure, atom.Figcaption, atom.Table, atom.Tr:
		c.flushBlock()
	case atom.Li:
		c.flushBlock()
		c.inListItem = true
	case atom.Blockquote:
		c.flushBlock()
		c.quoteDepth++
	case atom.Pre:
		c.flushBlock()
		c.pre = true
		c.preBuf.Reset()
	case atom.Br:
		c.flushBlock()
	case atom.Hr:
		c.flushBlock()
		c.doc = append(c.doc, LineText(""))
	case atom.Img:
		c.handleImage(tok)
	case atom.A:
		c.inAnchor = true
		c.anchorHref = attr(tok, "href")
		c.anchorText.Reset()
	}
	// Unknown and inline tags are inert; their text flows through.
}

func (c *converter) handleEndTag(tok html.Token) {
	if c.pre {
		if tok.DataAtom == atom.Pre {
			c.pre = false
			c.flushPre()
		}
		return
	}

	switch tok.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		if c.skip > 0 {
			c.skip--
		}
	case atom.Title:
		c.inTitle = false
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.flushBlock()
		c.heading = 0
	case atom.P, atom.Ul, atom.Ol, atom.Div, atom.Section, atom.Article,
		atom.Header, atom.Footer, atom.Main, atom.Nav, atom.Aside,
		atom.Figure, atom.Figcaption, atom.Table, atom.Tr:
		c.flushBlock()
	case atom.Li:
		c.flushBlock()
		c.inListItem = false
	case atom.Blockquote:
		c.flushBlock()
		if c.quoteDepth > 0 {
			c.quoteDepth--
		}
	case atom.A:
		c.closeAnchor()
	}
}

// closeAnchor emits a deferred link line for the anchor just closed. Anchors
// with no resolvable target degrade to their label, which already flowed into
// the block text.
func (c *converter) closeAnchor() {
	if !c.inAnchor {
		return
	}
	c.inAnchor = false

	target, ok := c.rw.Rewrite(c.anchorHref)
	if !ok {
		return
	}
	c.links = append(c.links, LineLink{URL: target, Name: collapse(c.anchorText.String())})
}

func (c *converter) handleImage(tok html.Token) {
	src := attr(tok, "src")
	target, ok := c.rw.Rewrite(src)
	if !ok {
		return
	}
	name := collapse(attr(tok, "alt"))
	if name == "" {
		name = src
	}
	c.links = append(c.links, LineLink{URL: target, Name: name})
}

// flushBlock emits the current block as a single line, followed by its
// deferred links. Empty blocks emit nothing but still release their links.
func (c *converter) flushBlock() {
	txt := collapse(c.text.String())
	c.text.Reset()

	if txt != "" {
		c.doc = append(c.doc, c.blockLine(txt))
	}
	for _, l := range c.links {
		c.doc = append(c.doc, l)
	}
	c.links = nil
}

func (c *converter) blockLine(txt string) Line {
	if c.heading > 0 {
		// Deeper heading levels clamp to 3, the most gemtext supports.
		switch {
		case c.heading == 1:
			c.sawH1 = true
			return LineHeading1(txt)
		case c.heading == 2:
			return LineHeading2(txt)
		default:
			return LineHeading3(txt)
		}
	}
	if c.inListItem {
		return LineListItem(txt)
	}
	if c.quoteDepth > 0 {
		return LineQuote(txt)
	}
	return LineText(txt)
}

// flushPre emits the buffered preformatted region verbatim. The interior is
// split on newlines only; no whitespace normalization, wrapping or escaping
// is applied.
func (c *converter) flushPre() {
	content := c.preBuf.String()
	c.preBuf.Reset()

	c.doc = append(c.doc, LinePreformattingToggle(""))
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		// The final newline is the last line's terminator, not an extra
		// empty line.
		lines = lines[:len(lines)-1]
	}
	for _, ln := range lines {
		c.doc = append(c.doc, LinePreformattedText(ln))
	}
	c.doc = append(c.doc, LinePreformattingToggle(""))
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// collapse concatenates runs of whitespace into single spaces and trims the
// block boundaries.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
