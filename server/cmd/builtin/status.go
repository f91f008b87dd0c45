package builtin

import (
	"fmt"
	"runtime"
	"runtime/metrics"
	"sync"
	"time"

	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
)

type statusCommand struct {
	srv serverAdapter
}

func newStatusCommand(srv serverAdapter) cmd.Command {
	return cmd.New("status", "Displays world and streaming statistics.", "", nil, statusCommand{srv: srv})
}

func (s statusCommand) Run(_ []string, _ cmd.Source, o *cmd.Output, tx *world.Tx) {
	w := tx.World()

	if start := s.srv.StartTime(); !start.IsZero() {
		o.Printf("Uptime: %s", time.Since(start).Round(time.Second))
	}
	o.Printf("Seed: %d | Tick: %d | Extent: %dx%d", w.Seed(), w.CurrentTick(), w.Extent(), w.Extent())
	if tps := w.TPS(); tps > 0 {
		o.Printf("TPS (avg): %.2f", tps)
	} else {
		o.Print("TPS (avg): collecting samples...")
	}

	m := w.Metrics()
	o.Printf("Chunks: %d realised | Pending events: %d", w.ChunkCount(), w.PendingEvents())
	o.Printf("Events: %d resolved, %d dropped | Builds: %d, %d no-op | Decorations: %d", m.Events, m.Dropped, m.Builds, m.NoopBuilds, m.Decorations)

	if cpuLoad, ready := sampleAverageCPULoad(); ready {
		o.Printf("CPU load (per core): %.2f%% across %d cores", cpuLoad, runtime.NumCPU())
	} else {
		o.Print("CPU load: collecting baseline, try again shortly.")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	lastGC := "never"
	if mem.LastGC != 0 {
		lastGC = fmt.Sprintf("%s ago", time.Since(time.Unix(0, int64(mem.LastGC))).Round(time.Second))
	}
	o.Printf("Memory: %.2f MiB heap used / %.2f MiB reserved", bytesToMiB(mem.HeapAlloc), bytesToMiB(mem.HeapSys))
	o.Printf("Goroutines: %d | GOMAXPROCS: %d | GC cycles: %d | Last GC: %s", runtime.NumGoroutine(), runtime.GOMAXPROCS(0), mem.NumGC, lastGC)
}

var (
	cpuSampleMu       sync.Mutex
	cpuSampleLastTime time.Time
	cpuSampleLastUsed float64
)

func sampleAverageCPULoad() (float64, bool) {
	samples := []metrics.Sample{
		{Name: "/sched/cpu_seconds_total"},
	}
	metrics.Read(samples)
	if samples[0].Value.Kind() != metrics.KindFloat64 {
		return 0, false
	}
	total := samples[0].Value.Float64()
	now := time.Now()

	cpuSampleMu.Lock()
	defer cpuSampleMu.Unlock()

	ready := !cpuSampleLastTime.IsZero()
	deltaTime := now.Sub(cpuSampleLastTime).Seconds()
	deltaUsed := total - cpuSampleLastUsed

	cpuSampleLastTime = now
	cpuSampleLastUsed = total

	if !ready || deltaTime <= 0 || deltaUsed < 0 {
		return 0, false
	}
	usage := (deltaUsed / deltaTime / float64(runtime.NumCPU())) * 100
	return min(max(usage, 0), 100), true
}
