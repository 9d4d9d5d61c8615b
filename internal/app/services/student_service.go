package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/studentregistry/internal/app/models"
	"github.com/yigit/studentregistry/internal/app/repositories"
	"github.com/yigit/studentregistry/internal/pkg/apperrors"
	"github.com/yigit/studentregistry/internal/pkg/helpers"
	"github.com/yigit/studentregistry/internal/pkg/metrics"
)

// Operation names used in logs and metrics
const (
	opCreate    = "create"
	opGetByID   = "get_by_id"
	opGetByName = "get_by_name"
	opList      = "list_all"
	opUpdate    = "update"
	opDelete    = "delete"
)

// maxIDAttempts bounds the retries when a freshly generated id already exists
const maxIDAttempts = 3

// StudentService defines the registry operations on students
type StudentService interface {
	CreateStudent(ctx context.Context, payload models.StudentPayload) (*models.Student, error)
	GetStudentByID(ctx context.Context, id string) (*models.Student, error)
	// GetStudentByName returns the first student, in ascending id order,
	// whose name equals name ignoring case
	GetStudentByName(ctx context.Context, name string) (*models.Student, error)
	GetAllStudents(ctx context.Context) ([]*models.Student, error)
	UpdateStudent(ctx context.Context, id string, payload models.StudentPayload) (*models.Student, error)
	DeleteStudent(ctx context.Context, id string) (*models.Student, error)
}

// EventPublisher receives every committed change. Publish must not block.
type EventPublisher interface {
	Publish(event models.StudentEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.StudentEvent) {}

// StudentServiceOption customises a student service
type StudentServiceOption func(*studentServiceImpl)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) StudentServiceOption {
	return func(s *studentServiceImpl) {
		s.now = now
	}
}

// WithIDGenerator overrides the identifier source
func WithIDGenerator(newID func() string) StudentServiceOption {
	return func(s *studentServiceImpl) {
		s.newID = newID
	}
}

// WithEventPublisher sends committed changes to publisher
func WithEventPublisher(publisher EventPublisher) StudentServiceOption {
	return func(s *studentServiceImpl) {
		s.events = publisher
	}
}

// studentServiceImpl implements the StudentService interface.
// Every operation holds mu for its whole duration, so operations never interleave.
type studentServiceImpl struct {
	mu       sync.Mutex
	repo     repositories.StudentRepository
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
	events   EventPublisher
}

// NewStudentService creates a new student service instance
func NewStudentService(repo repositories.StudentRepository, lgr zerolog.Logger, opts ...StudentServiceOption) StudentService {
	s := &studentServiceImpl{
		repo:     repo,
		validate: newPayloadValidator(),
		logger:   lgr.With().Str("component", "student_service").Logger(),
		now:      helpers.NowMicro,
		newID:    uuid.NewString,
		events:   noopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newPayloadValidator reads the `validate` tags and reports json field names
func newPayloadValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validatePayload returns a validation error naming every missing or blank field
func (s *studentServiceImpl) validatePayload(payload models.StudentPayload, message string) error {
	err := s.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewValidationError(message)
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, fieldErr.Field())
	}
	return apperrors.NewValidationError(message).WithDetails(map[string]interface{}{"fields": fields})
}

// storageFault logs the cause and hides it behind a generic operation message
func (s *studentServiceImpl) storageFault(err error, op, message string) error {
	s.logger.Error().Err(err).Str("operation", op).Msg(message)
	return apperrors.NewStorageFault(message)
}

// observe records the outcome of op
func observe(op string, err error) {
	switch {
	case err == nil:
		metrics.ObserveOperation(op, metrics.OutcomeOK)
	case errors.Is(err, apperrors.ErrValidationFailed):
		metrics.ObserveOperation(op, metrics.OutcomeValidation)
	case errors.Is(err, apperrors.ErrResourceNotFound):
		metrics.ObserveOperation(op, metrics.OutcomeNotFound)
	default:
		metrics.ObserveOperation(op, metrics.OutcomeStorage)
	}
}

// publish emits a snapshot of student; called with mu held so events follow commit order
func (s *studentServiceImpl) publish(eventType models.StudentEventType, student *models.Student) {
	s.events.Publish(models.StudentEvent{
		Type:      eventType,
		Student:   student.Clone(),
		Timestamp: s.now(),
	})
}

func notFoundByID(id string) error {
	return apperrors.NewCustomError(apperrors.ErrStudentNotFound, fmt.Sprintf("student with id=%s not found", id)).
		WithDetails(map[string]interface{}{"id": id})
}

// CreateStudent validates the payload and stores a new student under a fresh id
func (s *studentServiceImpl) CreateStudent(ctx context.Context, payload models.StudentPayload) (student *models.Student, err error) {
	defer func() { observe(opCreate, err) }()

	if err := s.validatePayload(payload, "invalid payload properties for creating a student"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	student = &models.Student{CreatedAt: s.now()}
	payload.Apply(student)

	for attempt := 1; ; attempt++ {
		student.ID = s.newID()
		err = s.repo.Create(ctx, student)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrStudentIDAlreadyExists) || attempt >= maxIDAttempts {
			return nil, s.storageFault(err, opCreate, "error creating a student")
		}
		s.logger.Warn().Str("studentID", student.ID).Int("attempt", attempt).Msg("Generated student ID already exists, retrying")
	}

	s.publish(models.StudentCreated, student)
	s.logger.Info().Str("studentID", student.ID).Msg("Student created")
	return student, nil
}

// GetStudentByID retrieves a student by ID
func (s *studentServiceImpl) GetStudentByID(ctx context.Context, id string) (student *models.Student, err error) {
	defer func() { observe(opGetByID, err) }()

	if id == "" {
		return nil, apperrors.NewValidationError("invalid ID for getting a student")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	student, err = s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return nil, notFoundByID(id)
		}
		return nil, s.storageFault(err, opGetByID, "error retrieving student by ID")
	}
	return student, nil
}

// GetStudentByName scans the ordered store for a case-insensitive exact name match
func (s *studentServiceImpl) GetStudentByName(ctx context.Context, name string) (student *models.Student, err error) {
	defer func() { observe(opGetByName, err) }()

	if name == "" {
		return nil, apperrors.NewValidationError("invalid name for getting a student")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.storageFault(err, opGetByName, "error retrieving student by name")
	}

	for _, candidate := range students {
		if strings.EqualFold(candidate.Name, name) {
			return candidate, nil
		}
	}

	return nil, apperrors.NewCustomError(apperrors.ErrStudentNotFound, fmt.Sprintf("student with name=%q not found", name)).
		WithDetails(map[string]interface{}{"name": name})
}

// GetAllStudents retrieves every student in ascending id order
func (s *studentServiceImpl) GetAllStudents(ctx context.Context) (students []*models.Student, err error) {
	defer func() { observe(opList, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err = s.repo.List(ctx)
	if err != nil {
		return nil, s.storageFault(err, opList, "error retrieving all students")
	}
	return students, nil
}

// UpdateStudent replaces every business field of an existing student
func (s *studentServiceImpl) UpdateStudent(ctx context.Context, id string, payload models.StudentPayload) (student *models.Student, err error) {
	defer func() { observe(opUpdate, err) }()

	const invalidMessage = "invalid ID or payload properties for updating a student"
	if id == "" {
		return nil, apperrors.NewValidationError(invalidMessage).WithDetails(map[string]interface{}{"fields": []string{"id"}})
	}
	if err := s.validatePayload(payload, invalidMessage); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	student, err = s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return nil, notFoundByID(id)
		}
		return nil, s.storageFault(err, opUpdate, "error updating student")
	}

	payload.Apply(student)
	updatedAt := s.now()
	if updatedAt.Before(student.CreatedAt) {
		updatedAt = student.CreatedAt
	}
	student.UpdatedAt = &updatedAt

	if err = s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return nil, notFoundByID(id)
		}
		return nil, s.storageFault(err, opUpdate, "error updating student")
	}

	s.publish(models.StudentUpdated, student)
	s.logger.Info().Str("studentID", id).Msg("Student updated")
	return student, nil
}

// DeleteStudent removes a student and returns it as it was before removal
func (s *studentServiceImpl) DeleteStudent(ctx context.Context, id string) (student *models.Student, err error) {
	defer func() { observe(opDelete, err) }()

	if id == "" {
		return nil, apperrors.NewValidationError("invalid ID for deleting a student")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	student, err = s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return nil, notFoundByID(id)
		}
		return nil, s.storageFault(err, opDelete, "error deleting student")
	}

	s.publish(models.StudentDeleted, student)
	s.logger.Info().Str("studentID", id).Msg("Student deleted")
	return student, nil
}
