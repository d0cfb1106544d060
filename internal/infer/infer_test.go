package infer

import (
	"math"
	"testing"

	"github.com/pdxtools/guiscale/internal/extract"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestInfer_UniformRatio(t *testing.T) {
	original := extract.Result{"x": {10, 20}}
	scaled := extract.Result{"x": {12, 24}}

	stats := Infer(original, scaled)

	s, ok := stats["x"]
	if !ok {
		t.Fatal("expected statistic for x")
	}
	if !s.Valid() {
		t.Fatal("expected valid statistic")
	}
	if !approxEqual(*s.Mean, 1.2) {
		t.Errorf("mean = %v, want 1.2", *s.Mean)
	}
	if !approxEqual(*s.Median, 1.2) {
		t.Errorf("median = %v, want 1.2", *s.Median)
	}
	if !approxEqual(*s.StdDev, 0) {
		t.Errorf("std_dev = %v, want 0", *s.StdDev)
	}
	if !approxEqual(*s.Min, 1.2) || !approxEqual(*s.Max, 1.2) {
		t.Errorf("min/max = %v/%v, want 1.2/1.2", *s.Min, *s.Max)
	}
}

func TestInfer_LengthMismatchExcluded(t *testing.T) {
	original := extract.Result{"x": {10, 20}}
	scaled := extract.Result{"x": {12}}

	stats := Infer(original, scaled)
	if _, ok := stats["x"]; ok {
		t.Error("length mismatch must omit the attribute, not align by position")
	}
}

func TestInfer_MissingAttributeExcluded(t *testing.T) {
	original := extract.Result{"x": {10}, "y": {5}}
	scaled := extract.Result{"x": {20}}

	stats := Infer(original, scaled)
	if _, ok := stats["y"]; ok {
		t.Error("attribute absent from scaled side must be omitted")
	}
	if _, ok := stats["x"]; !ok {
		t.Error("expected statistic for x")
	}
}

func TestInfer_ZeroOriginalsExcluded(t *testing.T) {
	original := extract.Result{"x": {0, 10}}
	scaled := extract.Result{"x": {0, 12}}

	stats := Infer(original, scaled)
	s, ok := stats["x"]
	if !ok || !s.Valid() {
		t.Fatal("expected valid statistic for x")
	}
	if !approxEqual(*s.Mean, 1.2) {
		t.Errorf("mean = %v, want 1.2 (zero pair excluded)", *s.Mean)
	}
	if !approxEqual(*s.Min, 1.2) || !approxEqual(*s.Max, 1.2) {
		t.Errorf("min/max = %v/%v, want 1.2/1.2", *s.Min, *s.Max)
	}
}

func TestInfer_AllZeroOriginalsYieldNullStatistic(t *testing.T) {
	original := extract.Result{"x": {0, 0}}
	scaled := extract.Result{"x": {5, 7}}

	stats := Infer(original, scaled)
	s, ok := stats["x"]
	if !ok {
		t.Fatal("no-evidence result must still be present")
	}
	if s.Valid() {
		t.Error("expected all-null statistic, got values")
	}
	if s.Mean != nil || s.Median != nil || s.StdDev != nil || s.Min != nil || s.Max != nil {
		t.Error("all fields must be nil when no ratio survives")
	}
}

func TestInfer_MixedRatios(t *testing.T) {
	original := extract.Result{"width": {10, 20, 40}}
	scaled := extract.Result{"width": {15, 40, 40}}

	stats := Infer(original, scaled)
	s := stats["width"]
	if !s.Valid() {
		t.Fatal("expected valid statistic")
	}

	// Ratios: 1.5, 2.0, 1.0
	if !approxEqual(*s.Mean, 1.5) {
		t.Errorf("mean = %v, want 1.5", *s.Mean)
	}
	if !approxEqual(*s.Median, 1.5) {
		t.Errorf("median = %v, want 1.5", *s.Median)
	}
	if !approxEqual(*s.Min, 1.0) {
		t.Errorf("min = %v, want 1.0", *s.Min)
	}
	if !approxEqual(*s.Max, 2.0) {
		t.Errorf("max = %v, want 2.0", *s.Max)
	}
	want := math.Sqrt((0.25 + 0.25 + 0.0) / 3)
	if !approxEqual(*s.StdDev, want) {
		t.Errorf("std_dev = %v, want %v", *s.StdDev, want)
	}
}

func TestInfer_NegativeAndFractionalValues(t *testing.T) {
	original := extract.Result{"x": {-10, 0.5}}
	scaled := extract.Result{"x": {-20, 1.0}}

	stats := Infer(original, scaled)
	s := stats["x"]
	if !s.Valid() {
		t.Fatal("negative and fractional originals must participate")
	}
	if !approxEqual(*s.Mean, 2.0) {
		t.Errorf("mean = %v, want 2.0", *s.Mean)
	}
}

func TestInfer_IndependentResolutions(t *testing.T) {
	original := extract.Result{"x": {10}}

	stats2k := Infer(original, extract.Result{"x": {15}})
	stats4k := Infer(original, extract.Result{"x": {20}})

	if !approxEqual(*stats2k["x"].Mean, 1.5) {
		t.Errorf("2K mean = %v, want 1.5", *stats2k["x"].Mean)
	}
	if !approxEqual(*stats4k["x"].Mean, 2.0) {
		t.Errorf("4K mean = %v, want 2.0", *stats4k["x"].Mean)
	}
}

func TestDescribe_EvenSampleMedian(t *testing.T) {
	s := Describe([]float64{1.0, 2.0, 3.0, 4.0})
	if !approxEqual(*s.Median, 2.5) {
		t.Errorf("median = %v, want 2.5", *s.Median)
	}
}

func TestDescribe_DoesNotMutateInput(t *testing.T) {
	ratios := []float64{3, 1, 2}
	Describe(ratios)
	if ratios[0] != 3 || ratios[1] != 1 || ratios[2] != 2 {
		t.Errorf("input mutated: %v", ratios)
	}
}
