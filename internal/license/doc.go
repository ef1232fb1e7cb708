// Package license decides whether the running deployment is entitled
// to serve requests. Five historically divergent checks are unified
// behind the Validator interface: exact key match, format plus exact
// match, prefix-only match, and two remote verification variants that
// source the key from a request header or from process configuration.
//
// Every check resolves to a Status of Valid, Invalid, or
// Unverifiable. Unverifiable covers network and service failures and
// is treated exactly like Invalid by the request gate (fail-closed).
package license
