package domain

import (
	"errors"
	"time"
)

var ErrNoData = errors.New("no metric data in window")

// Canonical metric names. Counters and durations feed the OEE computation;
// anything else is stored and queried as-is.
const (
	MetricGoodCount      = "good_count"
	MetricTotalCount     = "total_count"
	MetricRuntimeMin     = "runtime_min"
	MetricPlannedTimeMin = "planned_time_min"
	MetricIdealCycleSec  = "ideal_cycle_sec"
)

// MetricPoint is one timeseries sample for one equipment unit.
type MetricPoint struct {
	EquipmentCode string            `json:"equipment_code"`
	Time          time.Time         `json:"time"`
	Name          string            `json:"name"`
	Value         float64           `json:"value"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// WindowSums aggregates the OEE inputs for one equipment unit over a window.
type WindowSums struct {
	EquipmentCode  string
	GoodCount      float64
	TotalCount     float64
	RuntimeMin     float64
	PlannedTimeMin float64
	IdealCycleSec  float64 // average over the window
	Points         int
}

// OEESummary is the computed OEE decomposition for a window. Ratios are
// fractions in [0,1]. Complete is false when a denominator was missing and
// the affected component was forced to zero.
type OEESummary struct {
	EquipmentCode string    `json:"equipment_code"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	Availability  float64   `json:"availability"`
	Performance   float64   `json:"performance"`
	Quality       float64   `json:"quality"`
	OEE           float64   `json:"oee"`
	GoodCount     float64   `json:"good_count"`
	TotalCount    float64   `json:"total_count"`
	Complete      bool      `json:"complete"`
}

// WindowStat is a per-equipment, per-metric aggregate used by alert rules.
type WindowStat struct {
	EquipmentCode string
	Name          string
	Avg           float64
	Min           float64
	Max           float64
	Last          float64
	Count         int
}

// Rollup is one persisted hourly OEE aggregate.
type Rollup struct {
	EquipmentCode string    `json:"equipment_code"`
	HourStart     time.Time `json:"hour_start"`
	Availability  float64   `json:"availability"`
	Performance   float64   `json:"performance"`
	Quality       float64   `json:"quality"`
	OEE           float64   `json:"oee"`
	GoodCount     float64   `json:"good_count"`
	TotalCount    float64   `json:"total_count"`
}
