package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
)

// EventNotifier turns committed state changes into lifecycle events.
// Publishing is best effort: failures are logged and never undo the change.
type EventNotifier struct {
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewEventNotifier(publisher events.EventPublisher, logger *slog.Logger) *EventNotifier {
	return &EventNotifier{
		publisher: publisher,
		logger:    logger,
	}
}

func (n *EventNotifier) publish(ctx context.Context, event *events.Event) {
	if n == nil || n.publisher == nil {
		return
	}
	if err := n.publisher.PublishEvent(ctx, event); err != nil {
		n.logger.Warn("Failed to publish lifecycle event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
	}
}

func (n *EventNotifier) AttemptStarted(ctx context.Context, submission *models.Submission, assessment *models.Assessment) {
	var timeLimit *int
	if assessment.TimeLimit > 0 {
		limit := assessment.TimeLimit
		timeLimit = &limit
	}
	n.publish(ctx, events.NewAttemptStartedEvent(events.AttemptStartedEvent{
		SubmissionID:    submission.ID,
		AssessmentID:    assessment.ID,
		AssessmentTitle: assessment.Title,
		UserID:          submission.UserID,
		AttemptNumber:   submission.AttemptNumber,
		StartedAt:       submission.StartTime,
		TimeLimit:       timeLimit,
	}))
}

func (n *EventNotifier) AttemptSubmitted(ctx context.Context, submission *models.Submission, gradingRequired bool) {
	submittedAt := time.Now()
	if submission.EndTime != nil {
		submittedAt = *submission.EndTime
	}
	n.publish(ctx, events.NewAttemptSubmittedEvent(events.AttemptSubmittedEvent{
		SubmissionID:    submission.ID,
		AssessmentID:    submission.AssessmentID,
		UserID:          submission.UserID,
		SubmittedAt:     submittedAt,
		ObtainedMarks:   submission.ObtainedMarks,
		TotalMarks:      submission.TotalMarks,
		GradingRequired: gradingRequired,
	}))
}

func (n *EventNotifier) AnswerGraded(ctx context.Context, answer *models.SubmissionAnswer, graderID string, gradedAt time.Time) {
	n.publish(ctx, events.NewAnswerGradedEvent(events.AnswerGradedEvent{
		AnswerID:      answer.ID,
		SubmissionID:  answer.SubmissionID,
		QuestionID:    answer.QuestionID,
		GraderID:      graderID,
		MarksObtained: answer.MarksObtained,
		GradedAt:      gradedAt,
	}))
}

func (n *EventNotifier) ReviewApproved(ctx context.Context, submission *models.Submission, reviewerID string, approvedAt time.Time) {
	n.publish(ctx, events.NewReviewApprovedEvent(events.ReviewApprovedEvent{
		SubmissionID:  submission.ID,
		AssessmentID:  submission.AssessmentID,
		UserID:        submission.UserID,
		ReviewerID:    reviewerID,
		ApprovedAt:    approvedAt,
		ObtainedMarks: submission.ObtainedMarks,
		Percentage:    submission.Percentage,
		Passed:        submission.IsPassed,
	}))
}
