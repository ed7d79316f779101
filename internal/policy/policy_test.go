package policy

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	tests := []struct {
		name  string
		role  models.UserRole
		cap   Capability
		allow bool
	}{
		{"student starts attempt", models.RoleStudent, StartTakingAssessment, true},
		{"student submits", models.RoleStudent, SubmitAssessment, true},
		{"student cannot grade", models.RoleStudent, GiveGradeToQuestions, false},
		{"student cannot approve", models.RoleStudent, ApproveReview, false},
		{"student cannot see question bank", models.RoleStudent, ViewQuestionBank, false},
		{"teacher grades", models.RoleTeacher, GiveGradeToQuestions, true},
		{"teacher approves", models.RoleTeacher, ApproveReview, true},
		{"teacher does not take assessments", models.RoleTeacher, StartTakingAssessment, false},
		{"admin exports", models.RoleAdmin, ExportResults, true},
		{"unknown role", models.UserRole("guest"), ViewAssessment, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allow, p.Allows(tt.role, tt.cap))
		})
	}
}

func TestPolicy_AdminHoldsEverything(t *testing.T) {
	p := Default()
	for _, c := range All() {
		assert.True(t, p.Allows(models.RoleAdmin, c), string(c))
	}
}

func TestPolicy_Check(t *testing.T) {
	p := Default()

	err := p.Check(models.Caller{ID: "s1", Role: models.RoleStudent}, ApproveReview)
	assert.True(t, errors.Is(err, ErrDenied))

	assert.NoError(t, p.Check(models.Caller{ID: "t1", Role: models.RoleTeacher}, ApproveReview))
}

func TestPolicy_Grant(t *testing.T) {
	p := Default()
	p.Grant(models.RoleTeacher, StartTakingAssessment)
	assert.True(t, p.Allows(models.RoleTeacher, StartTakingAssessment))
}
