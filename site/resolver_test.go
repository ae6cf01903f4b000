package site

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemstatic/gemstatic/gemini"
)

// newTestSite lays out a small static-site output tree.
func newTestSite(t *testing.T) *Resolver {
	t.Helper()
	root := t.TempDir()

	write := func(name, content string) {
		t.Helper()
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	write("index.html", `<h1>Home</h1><p>Hello <a href="/about.html">About</a></p>`)
	write("about.html", `<html><head><title>About Us</title></head><body><p>About page</p></body></html>`)
	write("notes.txt", "plain text\n")
	write("feed.gmi", "# Feed\n")
	write("docs/guide.html", `<head><title>The Guide</title></head><body><h1>Guide</h1></body>`)
	write("docs/readme.txt", "read me\n")
	write("blog/index.html", `<h1>Blog</h1>`)
	write("members/index.gmi", "# Members only\n")
	write(".hidden.txt", "secret\n")

	return &Resolver{Root: root, Host: "example.com", CertPaths: []string{"/members/"}}
}

func resolve(t *testing.T, r *Resolver, rawPath string) Resolution {
	t.Helper()
	return r.Resolve(&url.URL{Scheme: "gemini", Host: "example.com", Path: rawPath}, nil)
}

func TestResolveIndexDocument(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/")
	require.Equal(t, KindContent, res.Kind)
	assert.Equal(t, "text/gemini", res.Artifact.MIME)

	body := string(res.Artifact.Data)
	assert.Contains(t, body, "# Home\n")
	assert.Contains(t, body, "Hello About\n")
	assert.Contains(t, body, "=> gemini://example.com/about.html About\n")
	assert.NotContains(t, body, "Index of", "index document must win over a listing")
}

func TestResolveTransformsHTML(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/about.html")
	require.Equal(t, KindContent, res.Kind)
	assert.Equal(t, "text/gemini", res.Artifact.MIME)
	assert.Contains(t, string(res.Artifact.Data), "# About Us\n")
}

func TestResolvePlainAssetsPassThrough(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/notes.txt")
	require.Equal(t, KindContent, res.Kind)
	assert.True(t, strings.HasPrefix(res.Artifact.MIME, "text/plain"), "got MIME %q", res.Artifact.MIME)
	assert.Equal(t, "plain text\n", string(res.Artifact.Data))
}

func TestResolveGemtextServedAsIs(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/feed.gmi")
	require.Equal(t, KindContent, res.Kind)
	assert.Equal(t, "text/gemini", res.Artifact.MIME)
	assert.Equal(t, "# Feed\n", string(res.Artifact.Data))
}

func TestResolveNotFound(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/missing.html")
	assert.Equal(t, KindNotFound, res.Kind)

	resp := res.Response()
	assert.Equal(t, gemini.StatusNotFound, resp.Status)
	assert.Nil(t, resp.Body)
}

func TestResolveTraversalForbidden(t *testing.T) {
	r := newTestSite(t)

	for _, p := range []string{"/../etc/passwd", "/docs/../../secret", "/.."} {
		res := resolve(t, r, p)
		assert.Equalf(t, KindForbidden, res.Kind, "path %q", p)
	}
}

func TestResolveHiddenFilesNotServed(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/.hidden.txt")
	assert.Equal(t, KindNotFound, res.Kind)
}

func TestResolveDirectoryRedirect(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/docs")
	require.Equal(t, KindRedirect, res.Kind)
	assert.Equal(t, "gemini://example.com/docs/", res.Target)
	assert.True(t, res.Permanent)
	assert.Equal(t, gemini.StatusRedirectPermanent, res.Response().Status)
}

func TestResolveDirectoryListing(t *testing.T) {
	r := newTestSite(t)

	res := resolve(t, r, "/docs/")
	require.Equal(t, KindContent, res.Kind)
	require.Equal(t, "text/gemini", res.Artifact.MIME)

	body := string(res.Artifact.Data)
	assert.Contains(t, body, "# Index of /docs/\n")
	assert.Contains(t, body, "=> guide.html The Guide\n", "HTML entries are labeled by title")
	assert.Contains(t, body, "=> readme.txt readme.txt\n")
}

func TestResolveCertRequired(t *testing.T) {
	r := newTestSite(t)
	u := &url.URL{Scheme: "gemini", Host: "example.com", Path: "/members/"}

	res := r.Resolve(u, nil)
	assert.Equal(t, KindCertRequired, res.Kind)
	assert.Equal(t, gemini.StatusClientCertificateRequired, res.Response().Status)

	res = r.Resolve(u, &gemini.ClientIdentity{Fingerprint: "cafe"})
	require.Equal(t, KindContent, res.Kind)
	assert.Equal(t, "# Members only\n", string(res.Artifact.Data))
}

func TestResolutionResponseMapping(t *testing.T) {
	tests := []struct {
		res    Resolution
		status int
	}{
		{Resolution{Kind: KindContent, Artifact: &Artifact{MIME: "text/gemini"}}, gemini.StatusSuccess},
		{Resolution{Kind: KindRedirect, Target: "gemini://x/"}, gemini.StatusRedirectTemporary},
		{Resolution{Kind: KindRedirect, Target: "gemini://x/", Permanent: true}, gemini.StatusRedirectPermanent},
		{Resolution{Kind: KindNotFound}, gemini.StatusNotFound},
		{Resolution{Kind: KindForbidden}, gemini.StatusProxyRequestRefused},
		{Resolution{Kind: KindCertRequired}, gemini.StatusClientCertificateRequired},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.res.Response().Status)
	}
}

func TestHandleImplementsHandler(t *testing.T) {
	r := newTestSite(t)
	var _ gemini.Handler = r

	req := &gemini.Request{URL: &url.URL{Scheme: "gemini", Host: "example.com", Path: "/"}}
	resp := r.Handle(req)
	require.Equal(t, gemini.StatusSuccess, resp.Status)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "# Home")
}

func TestResolveConcurrentRequestsDoNotMix(t *testing.T) {
	r := newTestSite(t)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := resolve(t, r, "/about.html")
			if res.Kind != KindContent || !strings.Contains(string(res.Artifact.Data), "# About Us") {
				errs <- fmt.Errorf("about.html resolution got mixed up: %+v", res)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := resolve(t, r, "/notes.txt")
			if res.Kind != KindContent || string(res.Artifact.Data) != "plain text\n" {
				errs <- fmt.Errorf("notes.txt resolution got mixed up: %+v", res)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
