package grading

import "math"

// Slot counts per category. The grade grid has a fixed shape: four task
// slots, three exam slots and three presentation slots per period.
const (
	TaskSlots         = 4
	ExamSlots         = 3
	PresentationSlots = 3
)

// Final grade weights. Fixed by school policy, not configurable at runtime.
const (
	TaskWeight         = 0.4
	ExamWeight         = 0.4
	PresentationWeight = 0.2
)

// Tier orders status labels from worst to best.
type Tier int

const (
	TierInsufficient Tier = iota
	TierAcceptable
	TierGood
	TierExcellent
)

// Status labels a final grade qualitatively.
type Status struct {
	Label string `json:"label"`
	Tier  Tier   `json:"tier"`
}

var (
	statusExcellent    = Status{Label: "Excellent", Tier: TierExcellent}
	statusGood         = Status{Label: "Good", Tier: TierGood}
	statusAcceptable   = Status{Label: "Acceptable", Tier: TierAcceptable}
	statusInsufficient = Status{Label: "Insufficient", Tier: TierInsufficient}
)

// Average returns the arithmetic mean of the present values rounded to two
// decimals, ignoring nil entries. An empty or all-absent sequence averages
// to zero. Rounding is half-away-from-zero so that a displayed value never
// depends on the parity of the digit before it.
func Average(values []*float64) float64 {
	var sum float64
	var count int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		count++
	}
	if count == 0 {
		return 0
	}
	return round2(sum / float64(count))
}

// FinalGrade combines the three category averages into the weighted final
// grade, rounded to two decimals.
func FinalGrade(taskAvg, examAvg, presentationAvg float64) float64 {
	return round2(taskAvg*TaskWeight + examAvg*ExamWeight + presentationAvg*PresentationWeight)
}

// Classify maps a final grade onto the status ladder. Intervals are
// closed-open and evaluated highest first: a boundary value belongs to the
// higher tier.
func Classify(final float64) Status {
	switch {
	case final >= 9.0:
		return statusExcellent
	case final >= 7.0:
		return statusGood
	case final >= 5.0:
		return statusAcceptable
	default:
		return statusInsufficient
	}
}

// Summary aggregates one period of a subject's grades.
type Summary struct {
	TaskAverage         float64 `json:"task_average"`
	ExamAverage         float64 `json:"exam_average"`
	PresentationAverage float64 `json:"presentation_average"`
	FinalGrade          float64 `json:"final_grade"`
	Status              Status  `json:"status"`
}

// Summarize composes Average, FinalGrade and Classify over a full slot
// grid. Every view that shows a period's grade goes through here.
func Summarize(tasks, exams, presentations []*float64) Summary {
	taskAvg := Average(tasks)
	examAvg := Average(exams)
	presentationAvg := Average(presentations)
	final := FinalGrade(taskAvg, examAvg, presentationAvg)
	return Summary{
		TaskAverage:         taskAvg,
		ExamAverage:         examAvg,
		PresentationAverage: presentationAvg,
		FinalGrade:          final,
		Status:              Classify(final),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
