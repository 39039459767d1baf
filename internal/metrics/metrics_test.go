package metrics

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrepare_Averages(t *testing.T) {
	m := &Metrics{}
	m.RecordExplication(10*time.Millisecond, 2*time.Millisecond, true)
	m.RecordExplication(20*time.Millisecond, 4*time.Millisecond, true)
	m.RecordExplication(50*time.Millisecond, 0, false)

	r := m.Prepare(3, 2)
	assert.Equal(t, 15*time.Millisecond, r.AvgTimeWithBox)
	assert.Equal(t, 3*time.Millisecond, r.AvgBoxTime)
	assert.Equal(t, 50*time.Millisecond, r.AvgTimeWithoutBox)
}

func TestPrepare_DropPercentages(t *testing.T) {
	m := &Metrics{}
	m.RecordBoxDrop()
	m.RecordBoxDrop()
	m.RecordSolverDrop()

	r := m.Prepare(1, 4) // 3 features dropped total: 2 by box, 1 by solver
	assert.InDelta(t, 200.0/3.0, r.PctDroppedByBox, 1e-9)
	assert.InDelta(t, 100.0/3.0, r.PctDroppedBySolver, 1e-9)
	assert.InDelta(t, 100.0, r.PctDroppedByBox+r.PctDroppedBySolver, 1e-9)
}

func TestAddCounters(t *testing.T) {
	m := &Metrics{}
	m.AddContinuousVars(3)
	m.AddBinaryVars(1)
	m.AddConstraints(5)
	r := m.Prepare(1, 1)
	assert.Equal(t, 3, r.ContinuousVars)
	assert.Equal(t, 1, r.BinaryVars)
	assert.Equal(t, 5, r.Constraints)
}

func TestReport_LogDoesNotPanicWithoutComparison(t *testing.T) {
	m := &Metrics{}
	m.RecordExplication(10*time.Millisecond, 1*time.Millisecond, true)
	r := m.Prepare(1, 1)
	assert.NotPanics(t, func() { r.Log(log.Default()) })
}

func TestMerge_CombinesCountersAndAverages(t *testing.T) {
	a := &Metrics{}
	a.RecordBoxDrop()
	a.RecordExplication(10*time.Millisecond, 2*time.Millisecond, true)
	a.AddConstraints(3)

	b := &Metrics{}
	b.RecordSolverDrop()
	b.RecordExplication(30*time.Millisecond, 0, false)
	b.AddConstraints(4)

	a.Merge(b)

	r := a.Prepare(2, 1)
	assert.Equal(t, 1, r.IrrelevantByBox)
	assert.Equal(t, 1, r.IrrelevantBySolver)
	assert.Equal(t, 7, r.Constraints)
	assert.Equal(t, 10*time.Millisecond, r.AvgTimeWithBox)
	assert.Equal(t, 30*time.Millisecond, r.AvgTimeWithoutBox)
	assert.InDelta(t, 50.0, r.PctDroppedByBox, 1e-9)
	assert.InDelta(t, 50.0, r.PctDroppedBySolver, 1e-9)
}

func TestReport_LogReportsBetterWhenBoxFaster(t *testing.T) {
	m := &Metrics{}
	m.RecordExplication(5*time.Millisecond, 1*time.Millisecond, true)
	m.RecordExplication(50*time.Millisecond, 0, false)
	r := m.Prepare(2, 1)
	assert.Greater(t, r.AvgTimeWithoutBox, r.AvgTimeWithBox)
	var buf bytes.Buffer
	assert.NotPanics(t, func() { r.Log(log.New(&buf, "", 0)) })
	assert.Contains(t, buf.String(), "running with box was better than without box")
}
