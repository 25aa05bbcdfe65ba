package workers

import (
	"chat-relay/contract"
	"chat-relay/relay"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*StatsWorker)(nil)

// StatsProvider reports the current relay occupancy.
type StatsProvider interface {
	Stats() relay.Stats
}

type StatsWorker struct {
	log      *slog.Logger
	stats    StatsProvider
	interval time.Duration
}

func NewStatsWorker(log *slog.Logger, stats StatsProvider, interval time.Duration) *StatsWorker {
	return &StatsWorker{log: log, stats: stats, interval: interval}
}

// Run logs process health (CPU, RAM) and relay occupancy at every interval.
func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *StatsWorker) report(p *process.Process) {
	stats := w.stats.Stats()
	rss, cpu, err := selfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
		w.log.Info("Relay heartbeat", "scopes", stats.Scopes, "participants", stats.Participants)
		return
	}
	w.log.Info("Relay heartbeat",
		"scopes", stats.Scopes,
		"participants", stats.Participants,
		"rss_bytes", rss,
		"cpu_percent", cpu)
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
