package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Class struct {
	ID          int64     `db:"id" json:"id"`
	TeacherID   int64     `db:"teacher_id" json:"teacher_id"`
	Name        string    `db:"name" json:"name"`
	Subject     string    `db:"subject" json:"subject"`
	GradeLevel  int       `db:"grade_level" json:"grade_level"`
	Section     string    `db:"section" json:"section"`
	SchoolYear  string    `db:"school_year" json:"school_year"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Enrollments int       `db:"-" json:"enrollments"`
}

type Enrollment struct {
	ID         int64     `db:"id" json:"id"`
	ClassID    int64     `db:"class_id" json:"class_id"`
	ChildID    int64     `db:"child_id" json:"child_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	Child      *Child    `db:"-" json:"child,omitempty"`
}

type GradeCategory string

const (
	WrittenWork         GradeCategory = "written_work"
	PerformanceTask     GradeCategory = "performance_task"
	QuarterlyAssessment GradeCategory = "quarterly_assessment"
)

func (c GradeCategory) Valid() bool {
	switch c {
	case WrittenWork, PerformanceTask, QuarterlyAssessment:
		return true
	}
	return false
}

// GradeItem is a scored assignment of one child in one class.
type GradeItem struct {
	ID        int64           `db:"id" json:"id"`
	ClassID   int64           `db:"class_id" json:"class_id"`
	ChildID   int64           `db:"child_id" json:"child_id"`
	Quarter   Quarter         `db:"quarter" json:"quarter"`
	Category  GradeCategory   `db:"category" json:"category"`
	Title     string          `db:"title" json:"title"`
	Score     decimal.Decimal `db:"score" json:"score"`
	MaxScore  decimal.Decimal `db:"max_score" json:"max_score"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`

	ChildName string `db:"-" json:"child_name,omitempty"`
	ClassName string `db:"-" json:"class_name,omitempty"`
}

// GradeWeight is the share (in percent) of a category in a class's final grade.
type GradeWeight struct {
	ClassID  int64           `db:"class_id" json:"class_id"`
	Category GradeCategory   `db:"category" json:"category"`
	Weight   decimal.Decimal `db:"weight" json:"weight"`
}

type FinalGrade struct {
	ID        int64           `db:"id" json:"id"`
	ChildID   int64           `db:"child_id" json:"child_id"`
	ClassID   int64           `db:"class_id" json:"class_id"`
	Quarter   Quarter         `db:"quarter" json:"quarter"`
	Grade     decimal.Decimal `db:"grade" json:"grade"`
	Remarks   string          `db:"remarks" json:"remarks"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`

	ChildName string `db:"-" json:"child_name,omitempty"`
	ClassName string `db:"-" json:"class_name,omitempty"`
}

type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	Late    AttendanceStatus = "late"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case Present, Absent, Late:
		return true
	}
	return false
}

type Attendance struct {
	ID         int64            `db:"id" json:"id"`
	ChildID    int64            `db:"child_id" json:"child_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Remarks    string           `db:"remarks" json:"remarks"`
	RecordedBy int64            `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`

	ChildName string `db:"-" json:"child_name,omitempty"`
}
