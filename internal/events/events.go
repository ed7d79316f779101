package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the assessment lifecycle transitions that are published
type EventType string

const (
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventAnswerGraded     EventType = "answer.graded"
	EventReviewApproved   EventType = "review.approved"
)

const (
	eventSource  = "lms-service"
	eventVersion = "1.0"
)

// Event is the envelope for every published lifecycle event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type AttemptStartedEvent struct {
	SubmissionID    uint      `json:"submission_id"`
	AssessmentID    uint      `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	UserID          string    `json:"user_id"`
	AttemptNumber   int       `json:"attempt_number"`
	StartedAt       time.Time `json:"started_at"`
	TimeLimit       *int      `json:"time_limit,omitempty"` // minutes
}

type AttemptSubmittedEvent struct {
	SubmissionID    uint      `json:"submission_id"`
	AssessmentID    uint      `json:"assessment_id"`
	UserID          string    `json:"user_id"`
	SubmittedAt     time.Time `json:"submitted_at"`
	ObtainedMarks   float64   `json:"obtained_marks"`
	TotalMarks      float64   `json:"total_marks"`
	GradingRequired bool      `json:"grading_required"`
}

type AnswerGradedEvent struct {
	AnswerID      uint      `json:"answer_id"`
	SubmissionID  uint      `json:"submission_id"`
	QuestionID    uint      `json:"question_id"`
	GraderID      string    `json:"grader_id"`
	MarksObtained float64   `json:"marks_obtained"`
	GradedAt      time.Time `json:"graded_at"`
}

type ReviewApprovedEvent struct {
	SubmissionID  uint      `json:"submission_id"`
	AssessmentID  uint      `json:"assessment_id"`
	UserID        string    `json:"user_id"`
	ReviewerID    string    `json:"reviewer_id"`
	ApprovedAt    time.Time `json:"approved_at"`
	ObtainedMarks float64   `json:"obtained_marks"`
	Percentage    float64   `json:"percentage"`
	Passed        bool      `json:"passed"`
}

// Event factory functions

func newEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewAttemptStartedEvent(data AttemptStartedEvent) *Event {
	return newEvent(EventAttemptStarted, data)
}

func NewAttemptSubmittedEvent(data AttemptSubmittedEvent) *Event {
	return newEvent(EventAttemptSubmitted, data)
}

func NewAnswerGradedEvent(data AnswerGradedEvent) *Event {
	return newEvent(EventAnswerGraded, data)
}

func NewReviewApprovedEvent(data ReviewApprovedEvent) *Event {
	return newEvent(EventReviewApproved, data)
}
