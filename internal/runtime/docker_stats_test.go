package runtime

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
)

func TestCPUPercent_ComputesDeltaRatioScaledByCores(t *testing.T) {
	s := &container.StatsResponse{}
	s.CPUStats.CPUUsage.TotalUsage = 2000
	s.CPUStats.CPUUsage.PercpuUsage = []uint64{0, 0}
	s.CPUStats.SystemUsage = 10000
	s.PreCPUStats.CPUUsage.TotalUsage = 1000
	s.PreCPUStats.SystemUsage = 9000

	got := cpuPercent(s)

	// deltaTotal=1000, deltaSystem=1000, cores=2 -> (1000/1000)*2*100 = 200
	assert.InDelta(t, 200.0, got, 0.001)
}

func TestCPUPercent_ZeroWhenDeltaTotalNonPositive(t *testing.T) {
	s := &container.StatsResponse{}
	s.CPUStats.CPUUsage.TotalUsage = 1000
	s.CPUStats.SystemUsage = 10000
	s.PreCPUStats.CPUUsage.TotalUsage = 1000
	s.PreCPUStats.SystemUsage = 9000

	assert.Equal(t, 0.0, cpuPercent(s))
}

func TestCPUPercent_ZeroWhenDeltaSystemNonPositive(t *testing.T) {
	s := &container.StatsResponse{}
	s.CPUStats.CPUUsage.TotalUsage = 2000
	s.CPUStats.SystemUsage = 9000
	s.PreCPUStats.CPUUsage.TotalUsage = 1000
	s.PreCPUStats.SystemUsage = 9000

	assert.Equal(t, 0.0, cpuPercent(s))
}

func TestCPUPercent_FallsBackToRuntimeNumCPUWhenPercpuEmpty(t *testing.T) {
	s := &container.StatsResponse{}
	s.CPUStats.CPUUsage.TotalUsage = 2000
	s.CPUStats.SystemUsage = 10000
	s.PreCPUStats.CPUUsage.TotalUsage = 1000
	s.PreCPUStats.SystemUsage = 9000

	got := cpuPercent(s)
	assert.Greater(t, got, 0.0)
}
