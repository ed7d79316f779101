package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CoursePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewCoursePostgreSQL(db *gorm.DB) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := c.helpers.conn(ctx, tx).Omit(clause.Associations).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	var course models.Course
	if err := c.helpers.conn(ctx, tx).First(&course, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return &course, nil
}

func (c *CoursePostgreSQL) Enroll(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	err := c.helpers.conn(ctx, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(enrollment).Error
	if err != nil {
		return fmt.Errorf("failed to enroll user: %w", err)
	}
	return nil
}

func (c *CoursePostgreSQL) IsEnrolled(ctx context.Context, tx *gorm.DB, courseID uint, userID string) (bool, error) {
	var count int64
	if err := c.helpers.conn(ctx, tx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}
