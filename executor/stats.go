// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// samplingInterval is the cadence at which a running child is polled for
// CPU and RSS.
const samplingInterval = 10 * time.Millisecond

// CpuStats calculates the percentage of CPU consumed by a process
// between two observations of its cumulative CPU time.
type CpuStats struct {
	prevCpuTime float64
	prevTime    time.Time
}

func NewCpuStats() *CpuStats {
	return &CpuStats{}
}

// Percent calculates the CPU usage percentage based on the cumulative
// CPU time in nanoseconds observed now versus the previous call. The
// first observation returns 0.
func (c *CpuStats) Percent(cpuTime float64) float64 {
	now := time.Now()

	if c.prevCpuTime == 0.0 {
		// invoked first time
		c.prevCpuTime = cpuTime
		c.prevTime = now
		return 0.0
	}

	timeDelta := now.Sub(c.prevTime).Nanoseconds()
	ret := c.calculatePercent(c.prevCpuTime, cpuTime, timeDelta)
	c.prevCpuTime = cpuTime
	c.prevTime = now
	return ret
}

func (c *CpuStats) calculatePercent(t1, t2 float64, timeDelta int64) float64 {
	vDelta := t2 - t1
	if timeDelta <= 0 || vDelta <= 0.0 {
		return 0.0
	}
	return (vDelta / float64(timeDelta)) * 100.0
}

// sampler polls a child process at samplingInterval and retains the peak
// CPU percent and RSS observed. Sampling is best-effort: a race with
// child exit yields whatever peaks were observed so far, and missing
// samples default to 0. Only monotonicity of the reported peaks is
// guaranteed.
type sampler struct {
	pid int
	cpu *CpuStats

	lock    sync.Mutex
	peakCPU float64
	peakRSS uint64
}

func newSampler(pid int) *sampler {
	return &sampler{pid: pid, cpu: NewCpuStats()}
}

func (s *sampler) run(done <-chan struct{}) {
	p, err := process.NewProcess(int32(s.pid))
	if err != nil {
		return
	}

	ticker := time.NewTicker(samplingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			// one final best-effort observation before the child is
			// forgotten
			s.observe(p)
			return
		case <-ticker.C:
			if !s.observe(p) {
				return
			}
		}
	}
}

func (s *sampler) observe(p *process.Process) bool {
	times, err := p.Times()
	if err != nil {
		return false
	}
	pct := s.cpu.Percent(times.Total() * float64(time.Second))

	var rss uint64
	if memInfo, err := p.MemoryInfo(); err == nil {
		rss = memInfo.RSS
	}

	s.lock.Lock()
	if pct > s.peakCPU {
		s.peakCPU = pct
	}
	if rss > s.peakRSS {
		s.peakRSS = rss
	}
	s.lock.Unlock()
	return true
}

func (s *sampler) peaks() (float64, uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.peakCPU, s.peakRSS
}
