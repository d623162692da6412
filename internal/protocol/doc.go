// Package protocol owns the RCON wire contract and the session error taxonomy.
//
// Ownership boundary:
// - frame/packet primitives (protocol/frame)
// - session engine: ids, transport, response reassembly, auth (protocol/session)
// - sentinel errors shared by both and by callers
package protocol
