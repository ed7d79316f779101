package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "IN_PROGRESS"
	SubmissionCompleted  SubmissionStatus = "COMPLETED"
	SubmissionAbandoned  SubmissionStatus = "ABANDONED"
	SubmissionTimeUp     SubmissionStatus = "TIME_UP"
)

// ResultPendingReview is reported to students until a reviewer approves the submission.
const ResultPendingReview = "PENDING_REVIEW"

type Submission struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	AssessmentID  uint             `json:"assessment_id" gorm:"not null;index;uniqueIndex:idx_submission_attempt"`
	UserID        string           `json:"user_id" gorm:"not null;index;size:255;uniqueIndex:idx_submission_attempt"`
	AttemptNumber int              `json:"attempt_number" gorm:"not null;uniqueIndex:idx_submission_attempt"`
	Status        SubmissionStatus `json:"status" gorm:"not null;default:IN_PROGRESS;index;size:20"`

	// Scoring
	TotalMarks    float64 `json:"total_marks" gorm:"not null"`
	ObtainedMarks float64 `json:"obtained_marks" gorm:"default:0"`
	Percentage    float64 `json:"percentage" gorm:"default:0"`
	IsPassed      bool    `json:"is_passed" gorm:"default:false"`

	// Timing
	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`
	TimeSpent int        `json:"time_spent"` // seconds

	// Review gate
	IsCheckedByTeacher bool       `json:"is_checked_by_teacher" gorm:"default:false;index"`
	CheckedBy          *string    `json:"checked_by" gorm:"size:255"`
	CheckedAt          *time.Time `json:"checked_at"`

	// Question ids in the order they were served, frozen at attempt start
	QuestionOrder datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment *Assessment        `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	Answers    []SubmissionAnswer `json:"answers,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
}

func (Submission) TableName() string {
	return "submissions"
}

// FrozenOrder decodes QuestionOrder. A missing or corrupt column yields nil.
func (s *Submission) FrozenOrder() []uint {
	if len(s.QuestionOrder) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(s.QuestionOrder, &ids); err != nil {
		return nil
	}
	return ids
}

// SetFrozenOrder encodes ids into QuestionOrder.
func (s *Submission) SetFrozenOrder(ids []uint) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.QuestionOrder = datatypes.JSON(raw)
	return nil
}

type SubmissionAnswer struct {
	ID               uint    `json:"id" gorm:"primaryKey"`
	SubmissionID     uint    `json:"submission_id" gorm:"not null;uniqueIndex:idx_submission_question"`
	QuestionID       uint    `json:"question_id" gorm:"not null;uniqueIndex:idx_submission_question;index"`
	SelectedOptionID *uint   `json:"selected_option_id"`
	TextAnswer       *string `json:"text_answer" gorm:"type:text"`

	// Grading
	IsCorrect     bool       `json:"is_correct" gorm:"default:false"`
	MarksObtained float64    `json:"marks_obtained" gorm:"default:0"`
	IsGraded      bool       `json:"is_graded" gorm:"default:false;index"`
	GradedBy      *string    `json:"graded_by" gorm:"size:255"`
	GradedAt      *time.Time `json:"graded_at"`

	TimeSpent int `json:"time_spent"` // seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (SubmissionAnswer) TableName() string {
	return "submission_answers"
}

// HasText reports whether a free-text response was actually written.
func (a *SubmissionAnswer) HasText() bool {
	return a.TextAnswer != nil && *a.TextAnswer != ""
}
