package model

// ScalingStatistic describes the distribution of scaled/original value
// ratios for one attribute at one target resolution.
//
// All fields are pointers because "no evidence" is a valid, storable
// result: when no ratio survived inference every field is nil, which is
// distinct from a legitimate statistic of zero.
type ScalingStatistic struct {
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	StdDev *float64 `json:"std_dev"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// Valid reports whether the statistic carries evidence.
func (s ScalingStatistic) Valid() bool {
	return s.Mean != nil
}

// Report is the per-resolution summary artifact: filename → attribute →
// statistics, serialized as JSON on demand.
type Report struct {
	Resolution  string                                 `json:"resolution"`
	RunID       string                                 `json:"run_id"`
	GeneratedAt string                                 `json:"generated_at"`
	Files       map[string]map[string]ScalingStatistic `json:"files"`
}
