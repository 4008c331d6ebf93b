package gameloop

import (
	"context"
	"log/slog"
	"time"

	"github.com/dyewars/tileserver/internal/bufpool"
	"github.com/dyewars/tileserver/internal/player"
	"github.com/dyewars/tileserver/internal/protocol"
	"github.com/dyewars/tileserver/internal/telemetry"
	"github.com/dyewars/tileserver/internal/world"
)

// warnThreshold is the fraction of the tick period past which a tick's
// duration is logged as a warning.
const warnThreshold = 0.8

// Loop runs the single authoritative tick: drain actions, broadcast dirty
// players, ping, sample telemetry. Run must be called from exactly one
// goroutine; every other goroutine touches World and Players only by
// pushing onto Actions.
type Loop struct {
	World   *world.World
	Players *player.Registry
	Actions *ActionQueue
	Sender  Sender
	Pool    *bufpool.Pool
	Sampler *telemetry.Sampler
	Logger  *slog.Logger

	TickPeriod        time.Duration
	PingIntervalTicks int

	// ActiveConnections reports the current connection count for telemetry.
	ActiveConnections func() int
}

// Run blocks, ticking at TickPeriod, until ctx is cancelled. It never
// returns an error: failures inside a single tick are logged and the loop
// continues to the next tick.
func (l *Loop) Run(ctx context.Context) {
	if l.TickPeriod <= 0 {
		l.TickPeriod = 50 * time.Millisecond
	}
	if l.PingIntervalTicks <= 0 {
		l.PingIntervalTicks = 20
	}

	ticker := time.NewTicker(l.TickPeriod)
	defer ticker.Stop()

	var tickCount uint64

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tickCount++
			l.tick(now, tickCount)
		}
	}
}

func (l *Loop) tick(now time.Time, tickCount uint64) {
	start := time.Now()

	for _, action := range l.Actions.DrainInto() {
		action()
	}

	dirty := l.Players.ConsumeDirty()
	BroadcastDirty(l.World, l.Players, l.Sender, l.Pool, dirty)

	if tickCount%uint64(l.PingIntervalTicks) == 0 {
		l.broadcastPing(now)
	}

	if l.Sampler != nil {
		activeConns := 0
		if l.ActiveConnections != nil {
			activeConns = l.ActiveConnections()
		}
		l.Sampler.MaybeSample(now, time.Second, activeConns, l.Players.Count(), l.Logger)
	}

	elapsed := time.Since(start)
	if float64(elapsed) > warnThreshold*float64(l.TickPeriod) {
		if l.Sampler != nil {
			l.Sampler.RecordTickOverBudget()
		}
		if l.Logger != nil {
			l.Logger.Warn("tick over budget", "elapsed", elapsed, "budget", l.TickPeriod)
		}
	}
}

func (l *Loop) broadcastPing(now time.Time) {
	scratch := l.Pool.Get(protocol.HeaderSize + 8)
	body := protocol.EncodePingRequest(scratch[protocol.HeaderSize:protocol.HeaderSize], uint32(now.UnixMilli()))
	frame, err := protocol.EncodeFrame(scratch[:cap(scratch)], body)
	if err != nil {
		l.Pool.Put(scratch)
		return
	}
	l.Sender.Broadcast(frame)
}
