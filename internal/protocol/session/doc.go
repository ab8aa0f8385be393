// Package session owns sc2api exchanges over one websocket connection.
//
// Ownership boundary:
// - client exchange pipeline (kind pairing, embedded errors, status machine)
// - peer-side accept/read/send for mocks and tests
// - connection establishment retry/backoff
//
// The protocol is half-duplex: one request in flight per connection,
// answered by exactly one response.
package session
