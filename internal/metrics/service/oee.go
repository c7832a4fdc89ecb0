package service

import (
	"github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
)

// ComputeOEE derives the OEE decomposition from window sums.
//
//	availability = runtime / planned time
//	performance  = ideal production time / runtime
//	quality      = good count / total count
//
// Each component is clamped to [0,1]. A missing denominator forces the
// component to zero and marks the summary incomplete rather than returning an
// error: dashboards render partial windows all the time.
func ComputeOEE(s domain.WindowSums) domain.OEESummary {
	out := domain.OEESummary{
		EquipmentCode: s.EquipmentCode,
		GoodCount:     s.GoodCount,
		TotalCount:    s.TotalCount,
		Complete:      true,
	}

	if s.PlannedTimeMin > 0 {
		out.Availability = clamp01(s.RuntimeMin / s.PlannedTimeMin)
	} else {
		out.Complete = false
	}

	if s.RuntimeMin > 0 && s.IdealCycleSec > 0 {
		idealMin := s.IdealCycleSec * s.TotalCount / 60
		out.Performance = clamp01(idealMin / s.RuntimeMin)
	} else {
		out.Complete = false
	}

	if s.TotalCount > 0 {
		out.Quality = clamp01(s.GoodCount / s.TotalCount)
	} else {
		out.Complete = false
	}

	out.OEE = out.Availability * out.Performance * out.Quality
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
