package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestAverageAllAbsent(t *testing.T) {
	assert.Equal(t, 0.0, Average(nil))
	assert.Equal(t, 0.0, Average([]*float64{}))
	assert.Equal(t, 0.0, Average([]*float64{nil, nil, nil, nil}))
}

func TestAverageIgnoresAbsentPositions(t *testing.T) {
	a := Average([]*float64{ptr(8), nil, ptr(6), nil})
	b := Average([]*float64{nil, ptr(8), ptr(6), nil})
	assert.Equal(t, a, b)
	assert.Equal(t, 7.0, a)
}

func TestAverageRounding(t *testing.T) {
	// 10/3 rounds half-away-from-zero to 3.33
	assert.Equal(t, 3.33, Average([]*float64{ptr(10), ptr(0), ptr(0)}))
	// 8.5/2 = 4.25 exact
	assert.Equal(t, 4.25, Average([]*float64{ptr(8.5), ptr(0)}))
	// 7.375 rounds up to 7.38, not to even
	assert.Equal(t, 7.38, Average([]*float64{ptr(7.37), ptr(7.38)}))
}

func TestFinalGrade(t *testing.T) {
	tests := []struct {
		name             string
		task, exam, pres float64
		want             float64
	}{
		{"all tens", 10, 10, 10, 10.00},
		{"all zero", 0, 0, 0, 0.00},
		{"weighted mix", 8, 6, 10, 7.60},
		{"tasks only", 10, 0, 0, 4.00},
		{"presentations weigh less", 0, 0, 10, 2.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FinalGrade(tt.task, tt.exam, tt.pres), 1e-9)
		})
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		grade float64
		label string
		tier  Tier
	}{
		{10.0, "Excellent", TierExcellent},
		{9.0, "Excellent", TierExcellent},
		{8.99, "Good", TierGood},
		{7.0, "Good", TierGood},
		{6.99, "Acceptable", TierAcceptable},
		{5.0, "Acceptable", TierAcceptable},
		{4.99, "Insufficient", TierInsufficient},
		{0.0, "Insufficient", TierInsufficient},
	}
	for _, tt := range tests {
		got := Classify(tt.grade)
		assert.Equal(t, tt.label, got.Label, "grade %v", tt.grade)
		assert.Equal(t, tt.tier, got.Tier, "grade %v", tt.grade)
	}
}

func TestSummarize(t *testing.T) {
	tasks := []*float64{ptr(8), ptr(8), nil, nil}
	exams := []*float64{ptr(6), nil, nil}
	presentations := []*float64{ptr(10), nil, nil}

	summary := Summarize(tasks, exams, presentations)
	assert.Equal(t, 8.0, summary.TaskAverage)
	assert.Equal(t, 6.0, summary.ExamAverage)
	assert.Equal(t, 10.0, summary.PresentationAverage)
	assert.InDelta(t, 7.60, summary.FinalGrade, 1e-9)
	assert.Equal(t, "Good", summary.Status.Label)
}

func TestSummarizeEmptyGrid(t *testing.T) {
	summary := Summarize(make([]*float64, TaskSlots), make([]*float64, ExamSlots), make([]*float64, PresentationSlots))
	assert.Equal(t, 0.0, summary.FinalGrade)
	assert.Equal(t, "Insufficient", summary.Status.Label)
}
