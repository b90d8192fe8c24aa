// Package session owns the authenticated HTTP session with a reservation
// server.
//
// # Overview
//
// A Client holds the server address, a cookie jar keyed by host name and the
// user that logged in on each host. Every other component talks to the server
// through Client.Do, so there is exactly one place that attaches cookies and
// one place that captures them.
//
//	client, err := session.NewClient("192.168.0.104:5000", session.Options{})
//	user, err := client.Login(ctx, "alice", "secret")
//	body, err := client.FetchState(ctx)
//
// # Cookies
//
// Jar implements http.CookieJar. The server may rotate its session token on
// any response, so cookies are re-captured after every request, not only at
// login. Cookies are merged by name; Max-Age < 0 or a past Expires deletes.
//
// SwitchHost changes the server address and drops the old host's cookies and
// user. Sessions held for other hosts survive, so returning to a server used
// earlier in the process does not require logging in again.
//
// # Errors
//
//   - *NetworkError: no HTTP response (connect failure, timeout, cancel)
//   - *StatusError: non-2xx, with the body attached
//   - ErrUnauthorized: matches a *StatusError for 401/403
//   - ErrInvalidCredentials: the server rejected a login
//   - *seat.ParseError: a reply body that is not the expected JSON
//
// ReplyBody recovers JSON business replies that a server sends with a 4xx
// status so callers can classify them.
//
// # Request IDs
//
// Each request carries a fresh X-Request-Id (UUIDv4), logged at debug level
// with method, path, status and latency.
package session
