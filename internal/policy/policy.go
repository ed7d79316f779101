// Package policy decides which roles may invoke which operations. Handlers
// consult it once per route; services receive an already-authorised caller.
package policy

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

type Capability string

const (
	ManageCourses         Capability = "manage_courses"
	ManageEnrollments     Capability = "manage_enrollments"
	ManageAssessments     Capability = "manage_assessments"
	ViewAssessment        Capability = "view_assessment"
	ManageQuestions       Capability = "manage_questions"
	ViewQuestionBank      Capability = "view_question_bank"
	StartTakingAssessment Capability = "start_taking_assessment"
	AnswerQuestions       Capability = "answer_questions"
	SubmitAssessment      Capability = "submit_assessment"
	ViewResults           Capability = "view_results"
	GiveGradeToQuestions  Capability = "give_grade_to_questions"
	ApproveReview         Capability = "approve_review"
	ExportResults         Capability = "export_results"
	ViewAnalytics         Capability = "view_analytics"
)

// ErrDenied is wrapped by every error Check returns.
var ErrDenied = errors.New("capability denied")

type Policy struct {
	grants map[models.UserRole]map[Capability]bool
}

// Default returns the built-in role table. Admins hold every capability.
func Default() *Policy {
	p := &Policy{grants: make(map[models.UserRole]map[Capability]bool)}

	p.Grant(models.RoleStudent,
		ViewAssessment,
		StartTakingAssessment,
		AnswerQuestions,
		SubmitAssessment,
		ViewResults,
	)
	p.Grant(models.RoleTeacher,
		ManageCourses,
		ManageEnrollments,
		ManageAssessments,
		ViewAssessment,
		ManageQuestions,
		ViewQuestionBank,
		ViewResults,
		GiveGradeToQuestions,
		ApproveReview,
		ExportResults,
		ViewAnalytics,
	)
	p.Grant(models.RoleAdmin, All()...)

	return p
}

// All lists every known capability.
func All() []Capability {
	return []Capability{
		ManageCourses, ManageEnrollments, ManageAssessments, ViewAssessment,
		ManageQuestions, ViewQuestionBank, StartTakingAssessment, AnswerQuestions,
		SubmitAssessment, ViewResults, GiveGradeToQuestions, ApproveReview, ExportResults,
		ViewAnalytics,
	}
}

func (p *Policy) Grant(role models.UserRole, caps ...Capability) {
	set, ok := p.grants[role]
	if !ok {
		set = make(map[Capability]bool)
		p.grants[role] = set
	}
	for _, c := range caps {
		set[c] = true
	}
}

func (p *Policy) Allows(role models.UserRole, c Capability) bool {
	return p.grants[role][c]
}

func (p *Policy) Check(caller models.Caller, c Capability) error {
	if !p.Allows(caller.Role, c) {
		return fmt.Errorf("%w: role %q lacks %s", ErrDenied, caller.Role, c)
	}
	return nil
}
