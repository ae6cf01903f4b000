package gemtext

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLineRendering(t *testing.T) {
	tests := []struct {
		line Line
		want string
	}{
		{LineHeading1("Title"), "# Title"},
		{LineHeading2("Sub"), "## Sub"},
		{LineHeading3("Deep"), "### Deep"},
		{LineListItem("item"), "* item"},
		{LineQuote("said"), "> said"},
		{LinePreformattingToggle(""), "```"},
		{LinePreformattingToggle("go"), "```go"},
		{LinePreformattedText("  raw"), "  raw"},
		{LineText("plain"), "plain"},
		{LineLink{URL: "gemini://example.com/"}, "=> gemini://example.com/"},
		{LineLink{URL: "gemini://example.com/", Name: "home"}, "=> gemini://example.com/ home"},
	}

	for _, tt := range tests {
		if got := tt.line.String(); got != tt.want {
			t.Errorf("%T rendered %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestTextRendering(t *testing.T) {
	doc := Text{
		LineHeading1("Title"),
		LineText("Hello About"),
		LineLink{URL: "gemini://example/about", Name: "About"},
	}
	want := "# Title\nHello About\n=> gemini://example/about About\n"
	if diff := cmp.Diff(want, doc.String()); diff != "" {
		t.Errorf("unexpected rendering (-want +got):\n%s", diff)
	}
}

func TestEmptyTextRendersNothing(t *testing.T) {
	if got := (Text{}).String(); got != "" {
		t.Errorf("empty document rendered %q", got)
	}
}
