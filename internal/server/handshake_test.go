package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dyewars/tileserver/internal/protocol"
)

func validHandshakePayload() []byte {
	w := protocol.NewWriter(nil)
	w.U8(uint8(protocol.OpHandshakeRequest))
	w.U16(protocol.ProtocolVersion)
	w.U32(protocol.ClientMagic)
	return w.Bytes()
}

func TestValidateHandshakeAccepts(t *testing.T) {
	outcome := validateHandshake(validHandshakePayload())
	require.True(t, outcome.ok)
}

func TestValidateHandshakeRejectsWrongOpcode(t *testing.T) {
	payload := validHandshakePayload()
	payload[0] = byte(protocol.OpMoveRequest)
	outcome := validateHandshake(payload)
	require.False(t, outcome.ok)
	require.Equal(t, rejectWrongOpcode, outcome.reason)
}

func TestValidateHandshakeRejectsWrongSize(t *testing.T) {
	payload := validHandshakePayload()
	outcome := validateHandshake(payload[:4])
	require.False(t, outcome.ok)
	require.Equal(t, rejectWrongSize, outcome.reason)
}

func TestValidateHandshakeRejectsVersionMismatch(t *testing.T) {
	w := protocol.NewWriter(nil)
	w.U8(uint8(protocol.OpHandshakeRequest))
	w.U16(0x0002)
	w.U32(protocol.ClientMagic)
	outcome := validateHandshake(w.Bytes())
	require.False(t, outcome.ok)
	require.Equal(t, rejectVersionMismatch, outcome.reason)
}

func TestValidateHandshakeRejectsMagicMismatch(t *testing.T) {
	w := protocol.NewWriter(nil)
	w.U8(uint8(protocol.OpHandshakeRequest))
	w.U16(protocol.ProtocolVersion)
	w.U32(0xDEADBEEF)
	outcome := validateHandshake(w.Bytes())
	require.False(t, outcome.ok)
	require.Equal(t, rejectMagicMismatch, outcome.reason)
}

func TestEncodeHandshakeAcceptedRoundTrip(t *testing.T) {
	body := encodeHandshakeAccepted(make([]byte, 0, 16))
	require.Equal(t, byte(protocol.OpHandshakeAccepted), body[0])

	r := protocol.NewReader(body[1:])
	version, err := r.U16()
	require.NoError(t, err)
	require.Equal(t, protocol.ProtocolVersion, version)
}

func TestEncodeHandshakeRejectedIncludesReasonString(t *testing.T) {
	body := encodeHandshakeRejected(make([]byte, 0, 64), rejectMagicMismatch)
	require.Equal(t, byte(protocol.OpHandshakeRejected), body[0])

	r := protocol.NewReader(body[1:])
	code, err := r.U8()
	require.NoError(t, err)
	require.Equal(t, uint8(rejectMagicMismatch), code)

	reason, err := r.String()
	require.NoError(t, err)
	require.Equal(t, "magic mismatch", reason)
}
