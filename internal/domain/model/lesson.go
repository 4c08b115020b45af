package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LessonStatus represents the administrative status of a lesson
type LessonStatus string

const (
	LessonStatusOpen      LessonStatus = "OPEN"
	LessonStatusClosed    LessonStatus = "CLOSED"
	LessonStatusOngoing   LessonStatus = "ONGOING"
	LessonStatusCompleted LessonStatus = "COMPLETED"
)

// Lesson represents a capacity-limited swimming lesson. Lessons are owned by
// the scheduling admin; the enrollment flow only reads capacity, price and
// the date window.
type Lesson struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string          `gorm:"not null;size:200" json:"title"`
	StartDate  time.Time       `gorm:"not null" json:"start_date"`
	EndDate    time.Time       `gorm:"not null" json:"end_date"`
	TimeSlot   string          `gorm:"size:50" json:"time_slot"`
	Instructor *string         `gorm:"size:100" json:"instructor,omitempty"`
	Capacity   int             `gorm:"not null" json:"capacity"`
	Price      decimal.Decimal `gorm:"type:decimal(12,0);not null" json:"price"`
	Status     LessonStatus    `gorm:"size:20;not null;default:'OPEN';index" json:"status"`
	CreatedAt  time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Lesson) TableName() string {
	return "lessons"
}

// TotalDays returns the number of calendar days the lesson spans,
// used by the refund pro-ration.
func (l *Lesson) TotalDays() int {
	days := int(l.EndDate.Sub(l.StartDate).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Enrollable reports whether new enrollments may be created for the lesson.
func (l *Lesson) Enrollable() bool {
	return l.Status == LessonStatusOpen
}
