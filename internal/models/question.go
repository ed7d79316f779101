package models

import "time"

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	TrueFalse    QuestionType = "true_false"
	ShortAnswer  QuestionType = "short_answer"
	LongAnswer   QuestionType = "long_answer"
)

// IsObjective reports whether answers of this type are graded on save.
func (t QuestionType) IsObjective() bool {
	return t == SingleChoice || t == TrueFalse
}

// IsFreeText reports whether answers of this type need a reviewer.
func (t QuestionType) IsFreeText() bool {
	return t == ShortAnswer || t == LongAnswer
}

type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	AssessmentID uint         `json:"assessment_id" gorm:"not null;index"`
	Text         string       `json:"text" gorm:"not null;type:text" validate:"required,min=1"`
	Type         QuestionType `json:"type" gorm:"not null;size:20" validate:"required,question_type"`
	Marks        float64      `json:"marks" gorm:"not null" validate:"gt=0"`
	Order        int          `json:"order" gorm:"column:sort_order;not null;default:0"`
	IsActive     bool         `json:"is_active" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"not null;type:text" validate:"required"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	Order      int    `json:"order" gorm:"column:sort_order;not null;default:0"`
}

func (Option) TableName() string {
	return "question_options"
}

// FindOption returns the option with the given id, or nil.
func (q *Question) FindOption(id uint) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// CorrectOption returns the first option flagged correct, or nil.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

type QuestionPatch struct {
	Text     Optional[string]   `json:"text"`
	Marks    Optional[float64]  `json:"marks"`
	Order    Optional[int]      `json:"order"`
	IsActive Optional[bool]     `json:"is_active"`
	Options  Optional[[]Option] `json:"options"` // replaces the whole option set
}

// Apply merges the present scalar fields into q. Options are replaced by the
// repository since they live in their own table.
func (p QuestionPatch) Apply(q *Question) {
	p.Text.ApplyTo(&q.Text)
	p.Marks.ApplyTo(&q.Marks)
	p.Order.ApplyTo(&q.Order)
	p.IsActive.ApplyTo(&q.IsActive)
	p.Options.ApplyTo(&q.Options)
}
