package gemtext

import (
	"net/url"
	"strings"
)

// Rewriter maps hrefs found in a document to Gemini-addressable URLs. It is
// built once per resolution from the document's own location, so relative
// links resolve against it.
type Rewriter struct {
	// Host is the authority the site is served under, with optional port.
	// When empty, rewritten links stay site-relative.
	Host string
	// Source is the site-relative path of the document being transformed,
	// e.g. "/blog/post.html".
	Source string
}

// Rewrite resolves href into a link target. The second return value is false
// when the href has no resolvable target (empty, fragment-only, or
// unparseable) and the anchor should degrade to its label text.
//
// Cross-origin absolute URLs pass through unchanged; everything else is
// resolved against the source document and addressed under Host.
func (rw *Rewriter) Rewrite(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		// Absolute or protocol-relative: another origin's business.
		return href, true
	}

	base := &url.URL{Path: rw.Source}
	if base.Path == "" {
		base.Path = "/"
	}
	resolved := base.ResolveReference(u)

	if rw.Host == "" {
		return resolved.String(), true
	}
	target := &url.URL{
		Scheme:   "gemini",
		Host:     rw.Host,
		Path:     resolved.Path,
		RawQuery: resolved.RawQuery,
	}
	return target.String(), true
}
