package protocol

// SpatialEntry is one player's row inside a Batch_Player_Spatial packet.
type SpatialEntry struct {
	PlayerID uint64
	X, Y     uint16
	Facing   uint8
}

// MaxBatchEntries is the largest entry count a single Batch_Player_Spatial
// packet can carry; callers with more dirty entries split across packets.
const MaxBatchEntries = 255

// EncodeWelcome builds the Welcome payload sent once, right after login.
func EncodeWelcome(dst []byte, playerID uint32, x, y uint16, facing uint8) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpWelcome))
	w.U32(playerID)
	w.U16(x)
	w.U16(y)
	w.U8(facing)
	return w.Bytes()
}

// EncodePositionCorrection builds the Position_Correction payload, an
// authoritative resync sent instead of applying a rejected move.
func EncodePositionCorrection(dst []byte, x, y uint16, facing uint8) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpPositionCorrection))
	w.U16(x)
	w.U16(y)
	w.U8(facing)
	return w.Bytes()
}

// EncodeFacingCorrection builds the Facing_Correction payload.
func EncodeFacingCorrection(dst []byte, facing uint8) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpFacingCorrection))
	w.U8(facing)
	return w.Bytes()
}

// EncodeBatchPlayerSpatial builds one Batch_Player_Spatial packet for up to
// MaxBatchEntries entries. The caller is responsible for splitting a longer
// dirty set across multiple calls.
func EncodeBatchPlayerSpatial(dst []byte, entries []SpatialEntry) []byte {
	if len(entries) > MaxBatchEntries {
		entries = entries[:MaxBatchEntries]
	}
	w := NewWriter(dst)
	w.U8(uint8(OpBatchPlayerSpatial))
	w.U8(uint8(len(entries)))
	for _, e := range entries {
		w.U64(e.PlayerID)
		w.U16(e.X)
		w.U16(e.Y)
		w.U8(e.Facing)
	}
	return w.Bytes()
}

// EncodeLeftGame builds the Left_Game payload announcing that playerID is
// no longer visible to the recipient.
func EncodeLeftGame(dst []byte, playerID uint32) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpLeftGame))
	w.U32(playerID)
	return w.Bytes()
}

// EncodePingRequest builds the server-originated Ping_Request payload
// carrying a millisecond timestamp.
func EncodePingRequest(dst []byte, tsMillis uint32) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpPingRequest))
	w.U32(tsMillis)
	return w.Bytes()
}

// DecodePongResponse reads the echoed timestamp from a Pong_Response
// payload (opcode byte already consumed by the caller).
func DecodePongResponse(body []byte) (tsMillis uint32, err error) {
	r := NewReader(body)
	return r.U32()
}

// EncodeHeartbeatResponse builds the (fieldless) Heartbeat_Response payload.
func EncodeHeartbeatResponse(dst []byte) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpHeartbeatResponse))
	return w.Bytes()
}

// EncodeDisconnectAck builds the (fieldless) Disconnect_Acknowledged payload.
func EncodeDisconnectAck(dst []byte) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpDisconnectAck))
	return w.Bytes()
}

// EncodeKickNotification builds the Kick_Notification payload attempted
// best-effort before a disconnect with a reason.
func EncodeKickNotification(dst []byte, reason string) []byte {
	w := NewWriter(dst)
	w.U8(uint8(OpKickNotification))
	w.String(reason)
	return w.Bytes()
}

// DecodeMoveRequest reads direction and claimed facing from a Move_Request
// body (opcode byte already consumed by the caller).
func DecodeMoveRequest(body []byte) (direction, facing uint8, err error) {
	r := NewReader(body)
	direction, err = r.U8()
	if err != nil {
		return 0, 0, err
	}
	facing, err = r.U8()
	return direction, facing, err
}

// DecodeTurnRequest reads the requested direction from a Turn_Request body
// (opcode byte already consumed by the caller).
func DecodeTurnRequest(body []byte) (direction uint8, err error) {
	r := NewReader(body)
	return r.U8()
}
