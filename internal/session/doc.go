// Package session owns the in-process authentication state.
//
// A [Controller] is constructed once per process and handed to the views that
// need it. It starts in [StateInit] with Loading set while [Controller.Start]
// checks the refresh cookie in the background:
//
//	INIT ──(refresh cookie + successful reissue)──▶ AUTHENTICATED
//	INIT ──(no cookie, or reissue rejected)───────▶ ANONYMOUS
//	AUTHENTICATED ──(logout, or unrecoverable 401)▶ ANONYMOUS
//	ANONYMOUS ──(login)───────────────────────────▶ AUTHENTICATED
//
// Views must render neither the authenticated nor the anonymous UI while
// [Snapshot.Loading] is true.
//
// The HTTP layer calls [Controller.Expire] after it has cleared the stored
// credentials. Expire drops the in-memory session and hands control to the
// [Navigator], which abandons whatever the user was looking at and shows the
// login entry point.
package session
