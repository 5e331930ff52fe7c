package models

import "time"

// GradeCategory partitions a period's grades into the three weighted
// groups.
type GradeCategory string

const (
	CategoryTasks         GradeCategory = "tasks"
	CategoryExams         GradeCategory = "exams"
	CategoryPresentations GradeCategory = "presentations"
)

// Grade is one filled slot. The composite key
// (subject_id, year, period, category, slot_index) is unique at the store
// level: at most one value may exist per slot. An empty slot has no row.
type Grade struct {
	ID        string        `db:"id" json:"id"`
	SubjectID string        `db:"subject_id" json:"subject_id"`
	Year      string        `db:"year" json:"year"`
	Period    string        `db:"period" json:"period"`
	Category  GradeCategory `db:"category" json:"category"`
	SlotIndex int           `db:"slot_index" json:"slot_index"`
	Value     float64       `db:"value" json:"value"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// GradeGrid is the full fixed-shape slot layout for one subject period.
// A nil entry means the slot is empty.
type GradeGrid struct {
	Tasks         []*float64 `json:"tasks"`
	Exams         []*float64 `json:"exams"`
	Presentations []*float64 `json:"presentations"`
}

// GradePeriod identifies one grading term of a subject.
type GradePeriod struct {
	Year   string `db:"year" json:"year"`
	Period string `db:"period" json:"period"`
}
