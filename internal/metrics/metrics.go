// Package metrics accumulates per-feature counters and wall-clock timings
// across explications and renders the free-form human-readable report
// (spec §4.5). Not a stable API: Report.Log's wording is meant to be read
// by a human at the end of a run, not parsed.
package metrics

import (
	"log"
	"time"
)

// Metrics is mutated by a single driver goroutine across a batch of
// explications (spec §5: "the aggregated metrics struct is mutated by the
// single driver"). Holds the richer of the two schemas the original source's
// two metric-initialization dictionaries disagreed on (see SPEC_FULL.md).
type Metrics struct {
	AccumulatedTimeWithBox    time.Duration
	AccumulatedTimeWithoutBox time.Duration
	AccumulatedBoxTime        time.Duration

	IrrelevantByBox    int
	IrrelevantBySolver int

	ContinuousVars int
	BinaryVars     int
	Constraints    int

	nWithBox    int
	nWithoutBox int
}

// AddContinuousVars records n freshly declared continuous decision
// variables (encoder size bookkeeping, not per-run).
func (m *Metrics) AddContinuousVars(n int) { m.ContinuousVars += n }

// AddBinaryVars records n freshly declared binary decision variables.
func (m *Metrics) AddBinaryVars(n int) { m.BinaryVars += n }

// AddConstraints records n freshly added constraints.
func (m *Metrics) AddConstraints(n int) { m.Constraints += n }

// RecordBoxDrop marks one feature confirmed irrelevant by the box
// propagator alone (no solver call needed for that feature).
func (m *Metrics) RecordBoxDrop() { m.IrrelevantByBox++ }

// RecordSolverDrop marks one feature confirmed irrelevant by an infeasible
// MILP probe.
func (m *Metrics) RecordSolverDrop() { m.IrrelevantBySolver++ }

// RecordExplication folds one input's elapsed wall-clock time into the
// running accumulators. boxTime is the cumulative time spent inside box
// checks for this input; it is meaningful only when useBox is true.
func (m *Metrics) RecordExplication(total, boxTime time.Duration, useBox bool) {
	if useBox {
		m.AccumulatedTimeWithBox += total
		m.AccumulatedBoxTime += boxTime
		m.nWithBox++
	} else {
		m.AccumulatedTimeWithoutBox += total
		m.nWithoutBox++
	}
}

// Merge folds other's counters and accumulators into m. Used to combine
// per-worker metrics after a parallel batch of explications (spec §5: the
// aggregated struct is mutated by a single driver, so each worker keeps its
// own Metrics and the driver merges them once all workers are done, rather
// than synchronizing every Record*/Add* call).
func (m *Metrics) Merge(other *Metrics) {
	m.AccumulatedTimeWithBox += other.AccumulatedTimeWithBox
	m.AccumulatedTimeWithoutBox += other.AccumulatedTimeWithoutBox
	m.AccumulatedBoxTime += other.AccumulatedBoxTime
	m.IrrelevantByBox += other.IrrelevantByBox
	m.IrrelevantBySolver += other.IrrelevantBySolver
	m.ContinuousVars += other.ContinuousVars
	m.BinaryVars += other.BinaryVars
	m.Constraints += other.Constraints
	m.nWithBox += other.nWithBox
	m.nWithoutBox += other.nWithoutBox
}

// Report is the derived, read-only snapshot computed at the end of a batch.
type Report struct {
	AvgTimeWithBox    time.Duration
	AvgTimeWithoutBox time.Duration
	AvgBoxTime        time.Duration

	PctDroppedByBox    float64
	PctDroppedBySolver float64

	ContinuousVars int
	BinaryVars     int
	Constraints    int

	IrrelevantByBox    int
	IrrelevantBySolver int
	nFeatures          int
}

// Prepare computes the derived averages and percentages. nExecutions is the
// number of (x, c) explications run; nFeatures is the feature count.
// PctDroppedByBox/PctDroppedBySolver are each dropped feature's share of
// all dropped features (irrelevant_by_box / (irrelevant_by_box +
// irrelevant_by_solver), matching original_source's prepare_metrics), so
// the two percentages sum to 100.
func (m *Metrics) Prepare(nExecutions, nFeatures int) Report {
	r := Report{
		ContinuousVars:     m.ContinuousVars,
		BinaryVars:         m.BinaryVars,
		Constraints:        m.Constraints,
		IrrelevantByBox:    m.IrrelevantByBox,
		IrrelevantBySolver: m.IrrelevantBySolver,
		nFeatures:          nFeatures,
	}
	if m.nWithBox > 0 {
		r.AvgTimeWithBox = m.AccumulatedTimeWithBox / time.Duration(m.nWithBox)
		r.AvgBoxTime = m.AccumulatedBoxTime / time.Duration(m.nWithBox)
	}
	if m.nWithoutBox > 0 {
		r.AvgTimeWithoutBox = m.AccumulatedTimeWithoutBox / time.Duration(m.nWithoutBox)
	}
	totalDropped := m.IrrelevantByBox + m.IrrelevantBySolver
	if totalDropped > 0 {
		r.PctDroppedByBox = 100 * float64(m.IrrelevantByBox) / float64(totalDropped)
		r.PctDroppedBySolver = 100 * float64(m.IrrelevantBySolver) / float64(totalDropped)
	}
	return r
}

// Log emits the free-form human-readable summary, including a direct
// box-vs-no-box timing comparison in the "better/worse by N seconds"
// phrasing the original source used.
func (r Report) Log(logger *log.Logger) {
	logger.Printf("encoder size: %d continuous vars, %d binary vars, %d constraints",
		r.ContinuousVars, r.BinaryVars, r.Constraints)
	logger.Printf("dropped by box: %d (%.1f%%), dropped by solver: %d (%.1f%%)",
		r.IrrelevantByBox, r.PctDroppedByBox, r.IrrelevantBySolver, r.PctDroppedBySolver)
	logger.Printf("avg time with box: %s, avg box-only time: %s, avg time without box: %s",
		r.AvgTimeWithBox, r.AvgBoxTime, r.AvgTimeWithoutBox)

	if r.AvgTimeWithBox == 0 || r.AvgTimeWithoutBox == 0 {
		return
	}
	diff := r.AvgTimeWithoutBox - r.AvgTimeWithBox
	if diff >= 0 {
		logger.Printf("running with box was better than without box by %s", diff)
	} else {
		logger.Printf("running with box was worse than without box by %s", -diff)
	}
}
