package models

import (
	"time"

	"gorm.io/gorm"
)

type Assessment struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	CourseID     uint    `json:"course_id" gorm:"not null;index" validate:"required"`
	Title        string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description  *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	TotalMarks   float64 `json:"total_marks" gorm:"not null" validate:"gt=0"`
	PassingMarks float64 `json:"passing_marks" gorm:"not null" validate:"gte=0"`
	MaxAttempts  int     `json:"max_attempts" gorm:"default:1" validate:"min=1,max=10"`
	TimeLimit    int     `json:"time_limit" gorm:"default:0" validate:"min=0,max=600"` // minutes, 0 means unlimited

	RandomizeQuestions bool `json:"randomize_questions" gorm:"default:false"`
	IsActive           bool `json:"is_active" gorm:"not null;index"`

	// Availability window
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Course    *Course    `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// IsOpenAt reports whether t falls inside the optional start/end window.
func (a *Assessment) IsOpenAt(t time.Time) bool {
	if a.StartDate != nil && t.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && t.After(*a.EndDate) {
		return false
	}
	return true
}

// AssessmentPatch carries a partial update. Absent fields are left untouched;
// present pointer fields set to nil clear the stored value.
type AssessmentPatch struct {
	Title              Optional[string]     `json:"title"`
	Description        Optional[*string]    `json:"description"`
	TotalMarks         Optional[float64]    `json:"total_marks"`
	PassingMarks       Optional[float64]    `json:"passing_marks"`
	MaxAttempts        Optional[int]        `json:"max_attempts"`
	TimeLimit          Optional[int]        `json:"time_limit"`
	RandomizeQuestions Optional[bool]       `json:"randomize_questions"`
	IsActive           Optional[bool]       `json:"is_active"`
	StartDate          Optional[*time.Time] `json:"start_date"`
	EndDate            Optional[*time.Time] `json:"end_date"`
}

// Apply merges the present fields of p into a.
func (p AssessmentPatch) Apply(a *Assessment) {
	p.Title.ApplyTo(&a.Title)
	p.Description.ApplyTo(&a.Description)
	p.TotalMarks.ApplyTo(&a.TotalMarks)
	p.PassingMarks.ApplyTo(&a.PassingMarks)
	p.MaxAttempts.ApplyTo(&a.MaxAttempts)
	p.TimeLimit.ApplyTo(&a.TimeLimit)
	p.RandomizeQuestions.ApplyTo(&a.RandomizeQuestions)
	p.IsActive.ApplyTo(&a.IsActive)
	p.StartDate.ApplyTo(&a.StartDate)
	p.EndDate.ApplyTo(&a.EndDate)
}

// IsEmpty reports whether no field is present.
func (p AssessmentPatch) IsEmpty() bool {
	return !p.Title.Present && !p.Description.Present && !p.TotalMarks.Present &&
		!p.PassingMarks.Present && !p.MaxAttempts.Present && !p.TimeLimit.Present &&
		!p.RandomizeQuestions.Present && !p.IsActive.Present &&
		!p.StartDate.Present && !p.EndDate.Present
}
