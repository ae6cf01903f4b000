package site

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gemstatic/gemstatic/gemtext"
)

// listDirectory synthesizes a gemtext listing for a directory with no default
// document. This is the one place a gemtext document is built rather than
// transformed.
func (r *Resolver) listDirectory(fsPath, sitePath string) Resolution {
	entries, err := os.ReadDir(fsPath)
	if err != nil {
		r.logger().Warn("failed to list directory",
			zap.String("path", fsPath), zap.Error(err))
		return Resolution{Kind: KindNotFound}
	}

	doc := gemtext.Text{gemtext.LineHeading1("Index of " + sitePath)}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if info, err := entry.Info(); err != nil || !isWorldReadable(info) {
			continue
		}

		if entry.IsDir() {
			doc = append(doc, gemtext.LineLink{URL: name + "/", Name: name + "/"})
			continue
		}
		doc = append(doc, gemtext.LineLink{URL: name, Name: r.entryLabel(fsPath, name)})
	}

	return Resolution{Kind: KindContent, Artifact: &Artifact{
		MIME: gemtext.MIMEType,
		Data: doc.Bytes(),
		Path: sitePath,
	}}
}

// entryLabel prefers an HTML page's title over its file name, so listings of
// generator output read like a table of contents.
func (r *Resolver) entryLabel(dir, name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
	default:
		return name
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return name
	}
	if title := htmlTitle(data); title != "" {
		return title
	}
	return name
}

func htmlTitle(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

func isWorldReadable(info os.FileInfo) bool {
	return info.Mode().Perm()&0444 == 0444
}
