// Package cwmp implements the session-based transport hook: a TLS
// connection carrying length-prefixed CBOR messages with request/response
// correlation by message ID.
//
// The wire format is private to this package. Messages are CBOR maps with
// integer keys wrapped in 4-byte big-endian length-prefixed frames. A
// session opens with a Hello exchange; devices that require authentication
// answer with a salt and nonce, and the client proves possession of the
// shared secret with an HMAC under an HKDF-derived session key.
//
// The hook registers itself under the device type "cwmp".
package cwmp
