// Package auth implements the two halves of the login trust
// boundary: the credential verifier, which validates login input and
// checks it against the user record store, and the session issuer,
// which mints signed, time-bounded session tokens carried in an
// HttpOnly cookie. No session state is kept server-side.
package auth
