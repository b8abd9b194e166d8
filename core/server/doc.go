// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber application; this package only defines the
// settings it reads: the listen port, the API key that protects every route,
// and the path where Prometheus metrics are served.
package server
