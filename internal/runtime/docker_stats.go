package runtime

import (
	"context"
	"encoding/json"
	goruntime "runtime"
	"time"

	"github.com/docker/docker/api/types/container"

	"sandboxcore/internal/apierr"
)

// Stats implements Adapter.Stats. CPU percent = (Δtotal_cpu / Δsystem_cpu)
// × core_count × 100; 0 when either delta is ≤ 0 (spec.md §4.A).
func (d *DockerAdapter) Stats(ctx context.Context, sb *Sandbox) (*Stats, error) {
	reader, err := d.cli.ContainerStats(ctx, sb.ID, false)
	if err != nil {
		return nil, apierr.NewInternalError(err)
	}
	defer reader.Body.Close()

	var resp container.StatsResponse
	if err := json.NewDecoder(reader.Body).Decode(&resp); err != nil {
		return nil, apierr.NewInternalError(err)
	}

	cpuPct := cpuPercent(&resp)

	return &Stats{
		MemMB:      float64(resp.MemoryStats.Usage) / (1024 * 1024),
		MemLimitMB: float64(resp.MemoryStats.Limit) / (1024 * 1024),
		CPUPercent: cpuPct,
		Ts:         time.Now().UTC(),
	}, nil
}

func cpuPercent(s *container.StatsResponse) float64 {
	deltaTotal := float64(s.CPUStats.CPUUsage.TotalUsage) - float64(s.PreCPUStats.CPUUsage.TotalUsage)
	deltaSystem := float64(s.CPUStats.SystemUsage) - float64(s.PreCPUStats.SystemUsage)
	if deltaTotal <= 0 || deltaSystem <= 0 {
		return 0
	}

	cores := len(s.CPUStats.CPUUsage.PercpuUsage)
	if cores == 0 {
		cores = goruntime.NumCPU()
	}

	return (deltaTotal / deltaSystem) * float64(cores) * 100
}
