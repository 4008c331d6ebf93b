package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectionOfKnownOpcodes(t *testing.T) {
	require.Equal(t, DirClientToServer, DirectionOf(OpHandshakeRequest))
	require.Equal(t, DirServerToClient, DirectionOf(OpWelcome))
	require.Equal(t, DirClientToServer, DirectionOf(OpMoveRequest))
	require.Equal(t, DirServerToClient, DirectionOf(OpBatchPlayerSpatial))
}

func TestDirectionOfReservedOpcode(t *testing.T) {
	require.Equal(t, DirUnknown, DirectionOf(Opcode(0x7E)))
	require.True(t, IsReserved(Opcode(0x7E)))
	require.False(t, IsReserved(OpMoveRequest))
}
