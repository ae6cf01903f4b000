package site

import (
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

var registerTypes sync.Once

// detectMIME infers an artifact's MIME type from its extension, falling back
// to content sniffing when the extension is unknown.
func detectMIME(path string, data []byte) string {
	registerTypes.Do(func() {
		mime.AddExtensionType(".gmi", "text/gemini")
		mime.AddExtensionType(".gemini", "text/gemini")
	})

	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		return mt
	}
	return mimetype.Detect(data).String()
}

// isHTML reports whether a MIME type belongs to the HTML family, i.e. is
// subject to gemtext transformation.
func isHTML(mt string) bool {
	return strings.HasPrefix(mt, "text/html") ||
		strings.HasPrefix(mt, "application/xhtml+xml")
}
