package safewalk

import "time"

const bytesPerMB = 1024 * 1024

// governor caps sustained throughput with virtual time: given the cumulative
// bytes accepted since start, it computes the wall time that volume should
// have taken at the configured rate and sleeps for the shortfall. Unlike a
// token bucket it has no burst allowance; average throughput approaches the
// ceiling in steady state and never exceeds it.
type governor struct {
	maxBytesPerSec float64
	now            func() time.Time
	sleep          func(time.Duration)
}

func newGovernor(maxRateMBPerSec float64) *governor {
	return &governor{
		maxBytesPerSec: maxRateMBPerSec * bytesPerMB,
		now:            time.Now,
		sleep:          time.Sleep,
	}
}

// pace blocks until cumulativeBytes is permitted given the elapsed time
// since start. Callers must exclude non-positive file sizes themselves;
// pace only looks at the running total.
func (g *governor) pace(start time.Time, cumulativeBytes int64) {
	target := time.Duration(float64(cumulativeBytes) / g.maxBytesPerSec * float64(time.Second))
	elapsed := g.now().Sub(start)
	if elapsed < target {
		g.sleep(target - elapsed)
	}
}
