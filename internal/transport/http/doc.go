// Package http contains the HTTP handlers: the login endpoint, the
// license pages the gate redirects to, and health. Handlers translate
// domain errors into the wire contract and do nothing else.
package http
