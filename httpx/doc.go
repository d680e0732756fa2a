// Package httpx adapts net/http to the failover library.
//
// A Client sends JSON requests and classifies response status codes into
// transient or permanent errors. Request and JSON turn a method and a path
// into a failover.Operation that is issued against each candidate base URL
// in turn.
package httpx
