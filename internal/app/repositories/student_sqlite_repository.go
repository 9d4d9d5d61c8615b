package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/studentregistry/internal/app/models"
	"github.com/yigit/studentregistry/internal/pkg/apperrors"
	"github.com/yigit/studentregistry/internal/pkg/dberrors"
	"github.com/yigit/studentregistry/internal/pkg/logger"
)

// SQLiteStudentRepository persists students in an embedded SQLite file.
// Timestamps are stored as UTC unix microseconds.
type SQLiteStudentRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// NewSQLiteStudentRepository creates a new SQLiteStudentRepository
func NewSQLiteStudentRepository(db *sql.DB) *SQLiteStudentRepository {
	return &SQLiteStudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func toMicros(value time.Time) int64 {
	return value.UTC().UnixMicro()
}

func fromMicros(value int64) time.Time {
	return time.UnixMicro(value).UTC()
}

func nullMicros(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMicros(*value), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteStudent(row rowScanner) (*models.Student, error) {
	var (
		student   models.Student
		createdAt int64
		updatedAt sql.NullInt64
	)
	err := row.Scan(
		&student.ID, &student.Name, &student.DateBirth, &student.DateAdmission, &student.Course,
		&student.CourseType, &student.Location, &student.Parent, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	student.CreatedAt = fromMicros(createdAt)
	if updatedAt.Valid {
		t := fromMicros(updatedAt.Int64)
		student.UpdatedAt = &t
	}
	return &student, nil
}

// Create inserts a new student
func (r *SQLiteStudentRepository) Create(ctx context.Context, student *models.Student) error {
	query, args, err := r.sb.Insert(studentsTable).
		Columns(studentColumns...).
		Values(
			student.ID, student.Name, student.DateBirth, student.DateAdmission, student.Course,
			student.CourseType, student.Location, student.Parent, toMicros(student.CreatedAt), nullMicros(student.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if dberrors.IsDuplicateKeyError(err) {
			return apperrors.ErrStudentIDAlreadyExists
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error executing create student query")
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

// GetByID retrieves a student by ID
func (r *SQLiteStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	query, args, err := r.sb.Select(studentColumns...).
		From(studentsTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanSQLiteStudent(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Str("studentID", id).Msg("Error scanning student row")
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return student, nil
}

// List retrieves all students in ascending id order
func (r *SQLiteStudentRepository) List(ctx context.Context) ([]*models.Student, error) {
	query, args, err := r.sb.Select(studentColumns...).
		From(studentsTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list students query")
		return nil, fmt.Errorf("error querying students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		student, err := scanSQLiteStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}

// Update replaces the business fields and updated_at of an existing student
func (r *SQLiteStudentRepository) Update(ctx context.Context, student *models.Student) error {
	query, args, err := r.sb.Update(studentsTable).
		SetMap(map[string]interface{}{
			"name":           student.Name,
			"date_birth":     student.DateBirth,
			"date_admission": student.DateAdmission,
			"course":         student.Course,
			"course_type":    student.CourseType,
			"location":       student.Location,
			"parent":         student.Parent,
			"updated_at":     nullMicros(student.UpdatedAt),
		}).
		Where(squirrel.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error executing update student query")
		return fmt.Errorf("error updating student: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// Delete removes a student by ID and returns the removed row
func (r *SQLiteStudentRepository) Delete(ctx context.Context, id string) (*models.Student, error) {
	query, args, err := r.sb.Delete(studentsTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete student query: %w", err)
	}

	student, err := scanSQLiteStudent(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Str("studentID", id).Msg("Error executing delete student query")
		return nil, fmt.Errorf("error deleting student: %w", err)
	}
	return student, nil
}

var _ StudentRepository = (*SQLiteStudentRepository)(nil)
