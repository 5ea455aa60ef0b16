// Package fetch retrieves remote assets over HTTP.
//
// A [Client] performs a single GET per call with a fixed timeout, a fixed
// browser-like User-Agent and an optional proxy. It never retries: every
// failure is reported once as an [*Error] and it is up to the caller to
// decide what a missing asset means.
package fetch
