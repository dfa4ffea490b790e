// Package cookies provides a cookie accessor scoped to one API host.
//
// A [Store] applies default attributes (30 day lifetime, Path "/", SameSite
// Strict, Secure in production) to cookies set by the client, and moves cookies
// between its [Backend] and HTTP traffic: [Store.Attach] adds them to
// credential-bearing requests and [Store.Capture] keeps what the server sets,
// which is how a rotated refresh cookie survives between runs.
package cookies
