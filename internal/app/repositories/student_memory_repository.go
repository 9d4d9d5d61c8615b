package repositories

import (
	"context"
	"slices"
	"sync"

	"github.com/yigit/studentregistry/internal/app/models"
	"github.com/yigit/studentregistry/internal/pkg/apperrors"
)

// MemoryStudentRepository keeps students in process memory, ordered by id.
// Values are copied on the way in and out so no caller aliases stored state.
type MemoryStudentRepository struct {
	mu       sync.RWMutex
	keys     []string // sorted ascending
	students map[string]models.Student
}

// NewMemoryStudentRepository creates an empty MemoryStudentRepository
func NewMemoryStudentRepository() *MemoryStudentRepository {
	return &MemoryStudentRepository{
		students: make(map[string]models.Student),
	}
}

// Create inserts a new student
func (r *MemoryStudentRepository) Create(ctx context.Context, student *models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, found := slices.BinarySearch(r.keys, student.ID)
	if found {
		return apperrors.ErrStudentIDAlreadyExists
	}
	r.keys = slices.Insert(r.keys, idx, student.ID)
	r.students[student.ID] = *student.Clone()
	return nil
}

// GetByID retrieves a student by ID
func (r *MemoryStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	student, ok := r.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return student.Clone(), nil
}

// List retrieves all students in ascending id order
func (r *MemoryStudentRepository) List(ctx context.Context) ([]*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	students := make([]*models.Student, 0, len(r.keys))
	for _, id := range r.keys {
		student := r.students[id]
		students = append(students, student.Clone())
	}
	return students, nil
}

// Update replaces an existing student
func (r *MemoryStudentRepository) Update(ctx context.Context, student *models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[student.ID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	r.students[student.ID] = *student.Clone()
	return nil
}

// Delete removes a student by ID and returns it
func (r *MemoryStudentRepository) Delete(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	student, ok := r.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	if idx, found := slices.BinarySearch(r.keys, id); found {
		r.keys = slices.Delete(r.keys, idx, idx+1)
	}
	delete(r.students, id)
	return student.Clone(), nil
}

var _ StudentRepository = (*MemoryStudentRepository)(nil)
