package models

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	IsActive    bool    `json:"is_active" gorm:"not null"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Assessments []Assessment `json:"assessments,omitempty" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "courses"
}

type Enrollment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CourseID   uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_course_user"`
	UserID     string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_course_user;index"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
