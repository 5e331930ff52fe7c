package models

import "github.com/aulalink/gradebook-api/internal/grading"

// SubjectReport is one subject's aggregated result for a period.
type SubjectReport struct {
	SubjectID   string          `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	Summary     grading.Summary `json:"summary"`
}

// ReportCard aggregates every subject of a student for one grading term.
type ReportCard struct {
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	GradeLevel  string          `json:"grade_level,omitempty"`
	Year        string          `json:"year"`
	Period      string          `json:"period"`
	Subjects    []SubjectReport `json:"subjects"`
}
