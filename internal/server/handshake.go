package server

import (
	"github.com/dyewars/tileserver/internal/protocol"
)

// handshakeRejectReason enumerates the Handshake_Rejected reason codes sent
// back to the client; the exact numbering is local to this server, not a
// wire contract shared with any other implementation.
type handshakeRejectReason uint8

const (
	rejectWrongOpcode handshakeRejectReason = iota
	rejectWrongSize
	rejectVersionMismatch
	rejectMagicMismatch
)

func (r handshakeRejectReason) String() string {
	switch r {
	case rejectWrongOpcode:
		return "wrong opcode"
	case rejectWrongSize:
		return "wrong size"
	case rejectVersionMismatch:
		return "version mismatch"
	case rejectMagicMismatch:
		return "magic mismatch"
	default:
		return "unknown"
	}
}

// handshakeOutcome is the verdict of validating a single AwaitingHandshake
// frame.
type handshakeOutcome struct {
	ok     bool
	reason handshakeRejectReason
}

// validateHandshake checks payload against the one frame a connection may
// send while AwaitingHandshake: opcode 0x00, version u16, client_magic u32.
func validateHandshake(payload []byte) handshakeOutcome {
	if len(payload) == 0 {
		return handshakeOutcome{reason: rejectWrongSize}
	}
	if protocol.Opcode(payload[0]) != protocol.OpHandshakeRequest {
		return handshakeOutcome{reason: rejectWrongOpcode}
	}
	if len(payload) != 7 {
		return handshakeOutcome{reason: rejectWrongSize}
	}

	r := protocol.NewReader(payload[1:])
	version, err := r.U16()
	if err != nil {
		return handshakeOutcome{reason: rejectWrongSize}
	}
	magic, err := r.U32()
	if err != nil {
		return handshakeOutcome{reason: rejectWrongSize}
	}
	if version != protocol.ProtocolVersion {
		return handshakeOutcome{reason: rejectVersionMismatch}
	}
	if magic != protocol.ClientMagic {
		return handshakeOutcome{reason: rejectMagicMismatch}
	}
	return handshakeOutcome{ok: true}
}

// encodeHandshakeAccepted builds the S_Handshake_Accepted payload.
func encodeHandshakeAccepted(dst []byte) []byte {
	w := protocol.NewWriter(dst)
	w.U8(uint8(protocol.OpHandshakeAccepted))
	w.U16(protocol.ProtocolVersion)
	w.U32(protocol.ClientMagic)
	return w.Bytes()
}

// encodeHandshakeRejected builds the S_Handshake_Rejected payload.
func encodeHandshakeRejected(dst []byte, reason handshakeRejectReason) []byte {
	w := protocol.NewWriter(dst)
	w.U8(uint8(protocol.OpHandshakeRejected))
	w.U8(uint8(reason))
	w.String(reason.String())
	return w.Bytes()
}
