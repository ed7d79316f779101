package postgres

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db         *gorm.DB
	course     repositories.CourseRepository
	assessment repositories.AssessmentRepository
	question   repositories.QuestionRepository
	submission repositories.SubmissionRepository
	answer     repositories.AnswerRepository
	audit      repositories.AuditRepository
}

// NewRepository wires every gorm repository onto one database handle.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:         db,
		course:     NewCoursePostgreSQL(db),
		assessment: NewAssessmentPostgreSQL(db),
		question:   NewQuestionPostgreSQL(db),
		submission: NewSubmissionPostgreSQL(db),
		answer:     NewAnswerPostgreSQL(db),
		audit:      NewAuditPostgreSQL(db),
	}
}

func (r *repository) Course() repositories.CourseRepository         { return r.course }
func (r *repository) Assessment() repositories.AssessmentRepository { return r.assessment }
func (r *repository) Question() repositories.QuestionRepository     { return r.question }
func (r *repository) Submission() repositories.SubmissionRepository { return r.submission }
func (r *repository) Answer() repositories.AnswerRepository         { return r.answer }
func (r *repository) Audit() repositories.AuditRepository           { return r.audit }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
