package gameloop

import (
	"github.com/dyewars/tileserver/internal/bufpool"
	"github.com/dyewars/tileserver/internal/player"
	"github.com/dyewars/tileserver/internal/protocol"
	"github.com/dyewars/tileserver/internal/world"
)

// Sender delivers a framed packet to the connection owning a player, keyed
// by connection id. Implemented by the server package's connection
// registry; declared here, not imported, to avoid a server<->gameloop
// import cycle (server already depends on gameloop for movement).
type Sender interface {
	SendTo(connID uint64, frame []byte)
	// Broadcast delivers frame to every currently Live connection,
	// regardless of whether it owns a player yet (used for periodic ping).
	Broadcast(frame []byte)
}

// BroadcastDirty implements the per-tick view-based broadcast: every
// current viewer of a dirty player gets its snapshot, and every viewer
// that held the player in its known set but fell out of range gets a
// Left_Game notice, without waiting for a full disconnect.
func BroadcastDirty(w *world.World, registry *player.Registry, sender Sender, pool *bufpool.Pool, dirty []uint64) {
	if len(dirty) == 0 {
		return
	}

	batches := make(map[uint64][]protocol.SpatialEntry)
	departures := make(map[uint64][]uint64)

	for _, id := range dirty {
		p, ok := registry.ByID(id)
		if !ok {
			continue
		}
		entry := protocol.SpatialEntry{PlayerID: id, X: uint16(p.X), Y: uint16(p.Y), Facing: uint8(p.Facing)}

		viewers := w.PlayersInRange(p.X, p.Y)
		stillVisible := make(map[uint64]struct{}, len(viewers))
		for _, v := range viewers {
			if v == id {
				continue
			}
			stillVisible[v] = struct{}{}
			batches[v] = append(batches[v], entry)
			w.Visibility.AddKnown(v, id)
		}

		for _, v := range w.Visibility.KnownBy(id) {
			if v == id {
				continue
			}
			if _, ok := stillVisible[v]; ok {
				continue
			}
			departures[v] = append(departures[v], id)
		}
	}

	for viewer := range departures {
		for _, leaverID := range departures[viewer] {
			w.Visibility.Forget(viewer, leaverID)
		}
	}

	for viewer, entries := range batches {
		sendBatchTo(registry, sender, pool, viewer, entries)
	}
	for viewer, leavers := range departures {
		for _, leaverID := range leavers {
			sendLeftGameTo(registry, sender, pool, viewer, leaverID)
		}
	}
}

func connIDFor(registry *player.Registry, playerID uint64) (uint64, bool) {
	p, ok := registry.ByID(playerID)
	if !ok {
		return 0, false
	}
	return p.OwningConnectionID, true
}

func sendBatchTo(registry *player.Registry, sender Sender, pool *bufpool.Pool, viewer uint64, entries []protocol.SpatialEntry) {
	connID, ok := connIDFor(registry, viewer)
	if !ok {
		return
	}
	for len(entries) > 0 {
		n := len(entries)
		if n > protocol.MaxBatchEntries {
			n = protocol.MaxBatchEntries
		}
		chunk := entries[:n]
		entries = entries[n:]

		scratch := pool.Get(protocol.HeaderSize + 2 + n*13)
		body := protocol.EncodeBatchPlayerSpatial(scratch[protocol.HeaderSize:protocol.HeaderSize], chunk)
		frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body)
		if err != nil {
			pool.Put(scratch)
			continue
		}
		sender.SendTo(connID, frame)
	}
}

func sendLeftGameTo(registry *player.Registry, sender Sender, pool *bufpool.Pool, viewer, leaverID uint64) {
	connID, ok := connIDFor(registry, viewer)
	if !ok {
		return
	}
	scratch := pool.Get(protocol.HeaderSize + 8)
	body := protocol.EncodeLeftGame(scratch[protocol.HeaderSize:protocol.HeaderSize], uint32(leaverID))
	frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body)
	if err != nil {
		pool.Put(scratch)
		return
	}
	sender.SendTo(connID, frame)
}
