// Package gemtext models gemtext documents as ordered sequences of typed
// lines, and converts HTML produced by static site generators into them.
package gemtext

import "strings"

// MIMEType is the MIME type of rendered gemtext.
const MIMEType = "text/gemini"

// Line is a single typed gemtext line.
type Line interface {
	line()
	// String renders the line without a trailing newline.
	String() string
}

// LineHeading1 is a first-level heading line.
type LineHeading1 string

// LineHeading2 is a second-level heading line.
type LineHeading2 string

// LineHeading3 is a third-level heading line. Gemtext has no deeper levels.
type LineHeading3 string

// LineListItem is an unordered list item line.
type LineListItem string

// LineQuote is a quote line.
type LineQuote string

// LinePreformattingToggle opens or closes a preformatted region. Its value is
// the alt text, only meaningful on the opening toggle.
type LinePreformattingToggle string

// LinePreformattedText is a raw line inside a preformatted region. Its
// content is reproduced byte-for-byte, never re-wrapped or re-escaped.
type LinePreformattedText string

// LineText is a plain text line.
type LineText string

// LineLink is a link line with a URL and an optional human-readable name.
type LineLink struct {
	URL  string
	Name string
}

func (l LineHeading1) line()            {}
func (l LineHeading2) line()            {}
func (l LineHeading3) line()            {}
func (l LineListItem) line()            {}
func (l LineQuote) line()               {}
func (l LinePreformattingToggle) line() {}
func (l LinePreformattedText) line()    {}
func (l LineText) line()                {}
func (l LineLink) line()                {}

func (l LineHeading1) String() string { return "# " + string(l) }
func (l LineHeading2) String() string { return "## " + string(l) }
func (l LineHeading3) String() string { return "### " + string(l) }
func (l LineListItem) String() string { return "* " + string(l) }
func (l LineQuote) String() string    { return "> " + string(l) }

func (l LinePreformattingToggle) String() string { return "```" + string(l) }
func (l LinePreformattedText) String() string    { return string(l) }
func (l LineText) String() string                { return string(l) }

func (l LineLink) String() string {
	if l.Name == "" {
		return "=> " + l.URL
	}
	return "=> " + l.URL + " " + l.Name
}

// Text is an ordered gemtext document.
type Text []Line

// String renders the document, one line per Line, with a trailing newline
// when the document is non-empty.
func (t Text) String() string {
	if len(t) == 0 {
		return ""
	}
	var b strings.Builder
	for _, l := range t {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Bytes renders the document to bytes.
func (t Text) Bytes() []byte {
	return []byte(t.String())
}
