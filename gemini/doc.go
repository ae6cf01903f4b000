// Package gemini implements the Gemini wire protocol: a server with
// per-connection protocol sessions, the request/response codec, TLS identity
// handling for the trust-on-first-use model, and a small client.
//
// The protocol is a single TLS-wrapped request/response exchange: the client
// sends one absolute URL terminated by CRLF, the server answers with one
// status line optionally followed by a body, and the connection closes. There
// are no headers, no keep-alive and no pipelining.
package gemini
