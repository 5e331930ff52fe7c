package models

import "time"

// Role tags an authenticated principal. Authorization decisions switch on
// this value at the routing boundary, never on ad-hoc strings.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// Admin represents a row in the admins table.
type Admin struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Teacher represents a row in the teachers table. A teacher with
// Active=false cannot authenticate even with correct credentials.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Student represents a row in the students table. TeacherID is the sole
// authorization linkage from student to owning teacher; usernames never
// contain "@" so they stay distinguishable from email credentials at login.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	GradeLevel   string    `db:"grade_level" json:"grade_level"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherOverview augments a teacher row with roster counts for the admin
// panel listing.
type TeacherOverview struct {
	Teacher
	StudentCount int `db:"student_count" json:"student_count"`
}
