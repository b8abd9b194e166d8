// Package middleware groups the fiber middleware of the HTTP service.
//
//   - rayid: tags every request with an X-Ray-ID (kept when the caller sends
//     one) so log lines of one request can be correlated.
//   - auth: requires X-API-Key on every route except an explicit skip list,
//     which holds the metrics endpoint. An empty key disables the check.
//
// rayid must run before auth so rejected requests are logged with their id.
package middleware
