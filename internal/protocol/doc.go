// Package protocol owns the sc2api wire contract.
//
// Ownership boundary:
// - request/response envelopes and their payload variants
// - kind taxonomy and lifecycle status enums
// - envelope encode/decode (protobuf wire format, see package tlv)
//
// Validation of exchanges (kind pairing, embedded errors, status
// transitions) lives in package session.
package protocol
