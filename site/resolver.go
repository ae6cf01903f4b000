// Package site resolves Gemini request paths against the output tree of a
// static site generator, transforming HTML artifacts to gemtext on the way
// out.
package site

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gemstatic/gemstatic/gemini"
	"github.com/gemstatic/gemstatic/gemtext"
)

// DefaultDocuments are the default-document names probed, in order, when a
// request resolves to a directory.
var DefaultDocuments = []string{"index.gmi", "index.gemini", "index.html"}

// Artifact is a resolved unit of content. It is created fresh per request and
// immutable once resolved.
type Artifact struct {
	// MIME is the artifact's media type, after any transformation.
	MIME string
	// Data is the raw payload.
	Data []byte
	// Path is the site-relative path the artifact was resolved from.
	Path string
}

// Kind tags a Resolution.
type Kind int

const (
	KindContent Kind = iota
	KindRedirect
	KindNotFound
	KindForbidden
	KindCertRequired
)

// Resolution is the outcome of resolving a request path. It is a first-class
// result, not an error: every request resolves to exactly one of these.
type Resolution struct {
	Kind Kind
	// Artifact is set iff Kind is KindContent.
	Artifact *Artifact
	// Target is set iff Kind is KindRedirect.
	Target string
	// Permanent marks a redirect as permanent.
	Permanent bool
}

// Response maps a resolution onto the wire status it is reported with.
func (res Resolution) Response() *gemini.Response {
	switch res.Kind {
	case KindContent:
		return &gemini.Response{
			Status: gemini.StatusSuccess,
			Meta:   res.Artifact.MIME,
			Body:   io.NopCloser(bytes.NewReader(res.Artifact.Data)),
		}
	case KindRedirect:
		status := gemini.StatusRedirectTemporary
		if res.Permanent {
			status = gemini.StatusRedirectPermanent
		}
		return &gemini.Response{Status: status, Meta: res.Target}
	case KindForbidden:
		return &gemini.Response{Status: gemini.StatusProxyRequestRefused, Meta: "forbidden"}
	case KindCertRequired:
		return &gemini.Response{Status: gemini.StatusClientCertificateRequired, Meta: "client certificate required"}
	}
	return &gemini.Response{Status: gemini.StatusNotFound, Meta: "not found"}
}

// Resolver maps request paths to content artifacts under a root directory.
// All fields are read-only after construction, so a single Resolver is safe
// for concurrent sessions.
type Resolver struct {
	// Root is the content root: the static site generator's output tree.
	Root string

	// Host is the authority rewritten links are addressed under. When
	// empty, the host of each request's URL is used.
	Host string

	// DefaultDocuments overrides the default-document probe order.
	DefaultDocuments []string

	// CertPaths lists path prefixes that require a client certificate.
	CertPaths []string

	// Logger receives resolution diagnostics. Defaults to a nop logger.
	Logger *zap.Logger
}

// Handle implements gemini.Handler.
func (r *Resolver) Handle(req *gemini.Request) *gemini.Response {
	return r.Resolve(req.URL, req.Identity).Response()
}

// Resolve maps a request URL to a resolution. It never fails: every path,
// including hostile ones, maps to one of the resolution kinds.
func (r *Resolver) Resolve(u *url.URL, id *gemini.ClientIdentity) Resolution {
	logger := r.logger()

	upath := u.Path
	if upath == "" {
		upath = "/"
	}

	for _, seg := range strings.Split(upath, "/") {
		if seg == ".." {
			logger.Debug("rejecting traversal attempt", zap.String("path", upath))
			return Resolution{Kind: KindForbidden}
		}
		if len(seg) > 1 && strings.HasPrefix(seg, ".") {
			// Hidden files and directories are not served and their
			// existence is not revealed.
			return Resolution{Kind: KindNotFound}
		}
	}

	if id == nil {
		for _, prefix := range r.CertPaths {
			if strings.HasPrefix(upath, prefix) {
				return Resolution{Kind: KindCertRequired}
			}
		}
	}

	host := r.Host
	if host == "" {
		host = u.Host
	}

	fsPath := filepath.Join(r.Root, filepath.FromSlash(upath))
	fi, err := os.Stat(fsPath)
	if err != nil {
		return Resolution{Kind: KindNotFound}
	}

	if fi.IsDir() {
		if !strings.HasSuffix(upath, "/") {
			target := (&url.URL{Scheme: "gemini", Host: host, Path: upath + "/"}).String()
			return Resolution{Kind: KindRedirect, Target: target, Permanent: true}
		}
		for _, doc := range r.defaultDocuments() {
			candidate := filepath.Join(fsPath, doc)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return r.loadArtifact(candidate, path.Join(upath, doc), host)
			}
		}
		return r.listDirectory(fsPath, upath)
	}

	return r.loadArtifact(fsPath, upath, host)
}

// loadArtifact reads a file and applies the gemtext transformation when its
// MIME type is HTML-family; everything else is served as-is.
func (r *Resolver) loadArtifact(fsPath, sitePath, host string) Resolution {
	data, err := os.ReadFile(fsPath)
	if err != nil {
		// Stat succeeded but the read did not; treat like a missing
		// file rather than failing the session.
		r.logger().Warn("failed to read artifact",
			zap.String("path", fsPath), zap.Error(err))
		return Resolution{Kind: KindNotFound}
	}

	mt := detectMIME(fsPath, data)
	if !isHTML(mt) {
		return Resolution{Kind: KindContent, Artifact: &Artifact{MIME: mt, Data: data, Path: sitePath}}
	}

	rw := &gemtext.Rewriter{Host: host, Source: sitePath}
	doc := gemtext.FromHTML(data, rw)
	return Resolution{Kind: KindContent, Artifact: &Artifact{
		MIME: gemtext.MIMEType,
		Data: doc.Bytes(),
		Path: sitePath,
	}}
}

func (r *Resolver) defaultDocuments() []string {
	if len(r.DefaultDocuments) > 0 {
		return r.DefaultDocuments
	}
	return DefaultDocuments
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
