package services

import (
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// ===== COURSE =====

type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type EnrollRequest struct {
	UserID string `json:"user_id" validate:"required,max=255"`
}

// ===== ASSESSMENT =====

type CreateAssessmentRequest struct {
	CourseID           uint       `json:"course_id" validate:"required"`
	Title              string     `json:"title" validate:"required,min=1,max=200"`
	Description        *string    `json:"description" validate:"omitempty,max=1000"`
	TotalMarks         float64    `json:"total_marks" validate:"gt=0"`
	PassingMarks       float64    `json:"passing_marks" validate:"gte=0"`
	MaxAttempts        int        `json:"max_attempts" validate:"min=1,max=10"`
	TimeLimit          int        `json:"time_limit" validate:"min=0,max=600"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	IsActive           *bool      `json:"is_active"` // defaults to true
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
}

// ===== QUESTION =====

type OptionInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

type CreateQuestionRequest struct {
	Text    string              `json:"text" validate:"required,min=1"`
	Type    models.QuestionType `json:"type" validate:"required,question_type"`
	Marks   float64             `json:"marks" validate:"gt=0"`
	Order   *int                `json:"order"` // appended after the last question when absent
	Options []OptionInput       `json:"options" validate:"omitempty,dive"`
}

// ===== ATTEMPT =====

// OptionView is what a student sees of an option: never its correctness.
type OptionView struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type QuestionView struct {
	ID      uint                `json:"id"`
	Text    string              `json:"text"`
	Type    models.QuestionType `json:"type"`
	Marks   float64             `json:"marks"`
	Options []OptionView        `json:"options,omitempty"`
}

type SavedAnswerView struct {
	QuestionID       uint    `json:"question_id"`
	SelectedOptionID *uint   `json:"selected_option_id,omitempty"`
	TextAnswer       *string `json:"text_answer,omitempty"`
	TimeSpent        int     `json:"time_spent"`
}

type AttemptResponse struct {
	SubmissionID  uint                    `json:"submission_id"`
	AssessmentID  uint                    `json:"assessment_id"`
	AttemptNumber int                     `json:"attempt_number"`
	Status        models.SubmissionStatus `json:"status"`
	StartTime     time.Time               `json:"start_time"`
	Deadline      *time.Time              `json:"deadline,omitempty"`
	Resumed       bool                    `json:"resumed"`
	Questions     []QuestionView          `json:"questions"`
	SavedAnswers  []SavedAnswerView       `json:"saved_answers,omitempty"`
}

type SaveAnswerRequest struct {
	SubmissionID     uint    `json:"-" validate:"required"`
	QuestionID       uint    `json:"-" validate:"required"`
	SelectedOptionID *uint   `json:"selected_option_id"`
	TextAnswer       *string `json:"text_answer" validate:"omitempty,max=20000"`
	TimeSpent        int     `json:"time_spent" validate:"gte=0"`
}

type AnswerResponse struct {
	AnswerID         uint      `json:"answer_id"`
	SubmissionID     uint      `json:"submission_id"`
	QuestionID       uint      `json:"question_id"`
	SelectedOptionID *uint     `json:"selected_option_id,omitempty"`
	TextAnswer       *string   `json:"text_answer,omitempty"`
	TimeSpent        int       `json:"time_spent"`
	SavedAt          time.Time `json:"saved_at"`
}

type SubmitRequest struct {
	AssessmentID uint `json:"assessment_id" validate:"required"`
}

// SubmitResponse carries the provisional score. Status is always PENDING_REVIEW.
type SubmitResponse struct {
	SubmissionID  uint      `json:"submission_id"`
	Status        string    `json:"status"`
	ObtainedMarks float64   `json:"obtained_marks"`
	TotalMarks    float64   `json:"total_marks"`
	Percentage    float64   `json:"percentage"`
	IsPassed      bool      `json:"is_passed"`
	TimeSpent     int       `json:"time_spent"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ===== GRADING =====

type GradeAnswerRequest struct {
	MarksObtained *float64 `json:"marks_obtained" validate:"required"`
}

type GradeResponse struct {
	AnswerID      uint    `json:"answer_id"`
	SubmissionID  uint    `json:"submission_id"`
	MarksObtained float64 `json:"marks_obtained"`
	IsCorrect     bool    `json:"is_correct"`

	// Recomputed submission aggregate
	ObtainedMarks float64 `json:"obtained_marks"`
	TotalMarks    float64 `json:"total_marks"`
	Percentage    float64 `json:"percentage"`
	IsPassed      bool    `json:"is_passed"`
}

type PendingAnswer struct {
	AnswerID     uint                `json:"answer_id"`
	SubmissionID uint                `json:"submission_id"`
	QuestionID   uint                `json:"question_id"`
	QuestionText string              `json:"question_text"`
	QuestionType models.QuestionType `json:"question_type"`
	MaxMarks     float64             `json:"max_marks"`
	TextAnswer   string              `json:"text_answer"`
}

// ===== REVIEW =====

type ReviewResponse struct {
	SubmissionID uint      `json:"submission_id"`
	CheckedBy    string    `json:"checked_by"`
	CheckedAt    time.Time `json:"checked_at"`
}

type AnswerDetail struct {
	QuestionID       uint                `json:"question_id"`
	QuestionText     string              `json:"question_text"`
	QuestionType     models.QuestionType `json:"question_type"`
	MaxMarks         float64             `json:"max_marks"`
	SelectedOptionID *uint               `json:"selected_option_id,omitempty"`
	CorrectOptionID  *uint               `json:"correct_option_id,omitempty"`
	TextAnswer       *string             `json:"text_answer,omitempty"`
	IsCorrect        bool                `json:"is_correct"`
	MarksObtained    float64             `json:"marks_obtained"`
	IsGraded         bool                `json:"is_graded"`
}

// ResultResponse is the single result shape. Withheld fields stay nil while
// the result is pending review for the viewer.
type ResultResponse struct {
	SubmissionID  uint           `json:"submission_id"`
	AssessmentID  uint           `json:"assessment_id"`
	UserID        string         `json:"user_id"`
	AttemptNumber int            `json:"attempt_number"`
	Status        string         `json:"status"` // submission status, or PENDING_REVIEW when withheld
	Released      bool           `json:"released"`
	ObtainedMarks *float64       `json:"obtained_marks,omitempty"`
	TotalMarks    *float64       `json:"total_marks,omitempty"`
	Percentage    *float64       `json:"percentage,omitempty"`
	IsPassed      *bool          `json:"is_passed,omitempty"`
	CheckedBy     *string        `json:"checked_by,omitempty"`
	CheckedAt     *time.Time     `json:"checked_at,omitempty"`
	Answers       []AnswerDetail `json:"answers,omitempty"`
}
