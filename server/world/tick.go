package world

import (
	"math"
	"time"
)

// ticker implements World ticking methods.
type ticker struct {
	interval time.Duration
}

const (
	tpsSampleSize       = 20
	tpsWarningThreshold = 19.0
)

// tickLoop starts ticking the World at the interval of the ticker, resolving
// every boundary event queued since the previous tick.
func (t ticker) tickLoop(w *World) {
	tc := time.NewTicker(t.interval)
	defer tc.Stop()
	target := 1.0 / t.interval.Seconds()
	lastTick := time.Now()
	var (
		durationSum time.Duration
		ticksCount  int
		warned      bool
	)
	for {
		select {
		case <-tc.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			if duration > 0 {
				durationSum += duration
				ticksCount++
				if ticksCount >= tpsSampleSize {
					tps := 1.0 / (durationSum / time.Duration(ticksCount)).Seconds()
					w.tps.Store(math.Float64bits(tps))
					if tps < target*tpsWarningThreshold/20 {
						if !warned {
							w.conf.Log.Warn("TPS dropped below threshold.", "tps", tps)
							warned = true
						}
					} else {
						warned = false
					}
					durationSum = 0
					ticksCount = 0
				}
			}
			<-w.Exec(t.tick)
		case <-w.closing:
			// World is being closed: Stop ticking and get rid of a task.
			w.running.Done()
			return
		}
	}
}

// tick performs a tick on the World and updates the chunks realised as a
// result of boundary events.
func (t ticker) tick(tx *Tx) {
	w := tx.World()
	tick := w.currentTick.Add(1)

	built := w.stream.Step(tick)
	if len(built) == 0 {
		return
	}
	h := w.Handler()
	for _, col := range built {
		w.conf.Ledger.RecordChunk(w.conf.Seed, col)
		h.HandleChunkRealise(tx, col)
	}
	w.conf.Log.Debug("Chunks realised.", "tick", tick, "count", len(built), "total", w.stream.Grid().Len())
}

// Tick advances the World by one tick on the transaction goroutine and blocks
// until the tick is complete. It is meant for worlds created with a negative
// TickInterval.
func (w *World) Tick() {
	<-w.Exec(ticker{}.tick)
}
