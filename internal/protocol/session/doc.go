// Package session owns one authenticated RCON conversation over a TCP socket.
//
// Ownership boundary:
// - packet id allocation
// - raw socket send/receive with optional deadlines
// - decoy-terminated response reassembly
// - auth handshake and command execution
//
// Every request is followed by a deliberately invalid decoy packet. The server
// answers requests in order, so the decoy's reply marks the end of a response
// that may have been split across several packets.
package session
