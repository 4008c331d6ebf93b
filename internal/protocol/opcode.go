package protocol

// Opcode identifies the payload's message type; it is always the first
// byte of a frame's payload.
type Opcode byte

const (
	OpHandshakeRequest   Opcode = 0x00
	OpMoveRequest        Opcode = 0x01
	OpTurnRequest        Opcode = 0x02
	OpWelcome            Opcode = 0x10
	OpPositionCorrection Opcode = 0x11
	OpFacingCorrection   Opcode = 0x12
	OpBatchPlayerSpatial Opcode = 0x25
	OpLeftGame           Opcode = 0x26
	OpHeartbeatRequest   Opcode = 0xFA
	OpHeartbeatResponse  Opcode = 0xFB
	OpDisconnectRequest  Opcode = 0xFE
	OpDisconnectAck      Opcode = 0xFF
	OpKickNotification   Opcode = 0xF2
	OpHandshakeAccepted  Opcode = 0xF0
	OpHandshakeRejected  Opcode = 0xF1
	OpPingRequest        Opcode = 0xF6
	OpPongResponse       Opcode = 0xF7
)

// Direction classifies which side of the connection is allowed to send a
// given opcode. A frame arriving with the wrong direction on a Live
// connection is a protocol violation (see Dispatcher).
type Direction uint8

const (
	DirClientToServer Direction = iota
	DirServerToClient
	DirUnknown
)

// directionTable is consulted by the dispatcher to reject wrong-direction
// opcodes before they reach a handler. Opcodes reused across §9 ("Player ID
// width") stay intentionally distinct from this table's purpose: this only
// classifies who is allowed to send, not payload shape.
var directionTable = map[Opcode]Direction{
	OpHandshakeRequest:   DirClientToServer,
	OpHandshakeAccepted:  DirServerToClient,
	OpHandshakeRejected:  DirServerToClient,
	OpMoveRequest:        DirClientToServer,
	OpTurnRequest:        DirClientToServer,
	OpWelcome:            DirServerToClient,
	OpPositionCorrection: DirServerToClient,
	OpFacingCorrection:   DirServerToClient,
	OpBatchPlayerSpatial: DirServerToClient,
	OpLeftGame:           DirServerToClient,
	OpPingRequest:        DirServerToClient,
	OpPongResponse:       DirClientToServer,
	OpHeartbeatRequest:   DirClientToServer,
	OpHeartbeatResponse:  DirServerToClient,
	OpDisconnectRequest:  DirClientToServer,
	OpDisconnectAck:      DirServerToClient,
	OpKickNotification:   DirServerToClient,
}

// DirectionOf reports which side may legitimately send op. Opcodes not
// present in the table are reserved: they must be accepted as well-formed
// frames but are treated as no-ops by the core.
func DirectionOf(op Opcode) Direction {
	if d, ok := directionTable[op]; ok {
		return d
	}
	return DirUnknown
}

// IsReserved reports whether op is absent from the opcode direction table —
// such an opcode must still decode as a well-formed frame but produces no
// behavior.
func IsReserved(op Opcode) bool {
	_, ok := directionTable[op]
	return !ok
}
