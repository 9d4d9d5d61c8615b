package repositories

import (
	"context"
	"strings"

	"github.com/yigit/studentregistry/internal/app/models"
)

// studentsTable and studentColumns are shared by the SQL backends
const studentsTable = "students"

var studentColumns = []string{
	"id", "name", "date_birth", "date_admission", "course",
	"course_type", "location", "parent", "created_at", "updated_at",
}

func joinColumns() string {
	return strings.Join(studentColumns, ", ")
}

// StudentRepository is the ordered keyed container behind the registry.
// Implementations return apperrors.ErrStudentNotFound for a missing key and
// apperrors.ErrStudentIDAlreadyExists when Create hits an existing key.
// List returns records in ascending id order.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context) ([]*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	// Delete removes the record and returns it as it was just before removal
	Delete(ctx context.Context, id string) (*models.Student, error)
}
