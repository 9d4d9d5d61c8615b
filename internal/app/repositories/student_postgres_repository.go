package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentregistry/internal/app/models"
	"github.com/yigit/studentregistry/internal/pkg/apperrors"
	"github.com/yigit/studentregistry/internal/pkg/dberrors"
	"github.com/yigit/studentregistry/internal/pkg/logger"
)

// studentsPkeyConstraint is the constraint PostgreSQL reports for a duplicate id
const studentsPkeyConstraint = "students_pkey"

// PostgresStudentRepository handles student database operations on PostgreSQL
type PostgresStudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPostgresStudentRepository creates a new PostgresStudentRepository
func NewPostgresStudentRepository(db *pgxpool.Pool) *PostgresStudentRepository {
	return &PostgresStudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanPostgresStudent(row pgx.Row) (*models.Student, error) {
	student := &models.Student{}
	err := row.Scan(
		&student.ID, &student.Name, &student.DateBirth, &student.DateAdmission, &student.Course,
		&student.CourseType, &student.Location, &student.Parent, &student.CreatedAt, &student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	student.CreatedAt = student.CreatedAt.UTC()
	if student.UpdatedAt != nil {
		updatedAt := student.UpdatedAt.UTC()
		student.UpdatedAt = &updatedAt
	}
	return student, nil
}

// Create inserts a new student
func (r *PostgresStudentRepository) Create(ctx context.Context, student *models.Student) error {
	sql, args, err := r.sb.Insert(studentsTable).
		Columns(studentColumns...).
		Values(
			student.ID, student.Name, student.DateBirth, student.DateAdmission, student.Course,
			student.CourseType, student.Location, student.Parent, student.CreatedAt, student.UpdatedAt,
		).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create student SQL")
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, studentsPkeyConstraint) {
			return apperrors.ErrStudentIDAlreadyExists
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error executing create student query")
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

// GetByID retrieves a student by ID
func (r *PostgresStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From(studentsTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get student by ID SQL")
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanPostgresStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Str("studentID", id).Msg("Error scanning student row")
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return student, nil
}

// List retrieves all students in ascending id order
func (r *PostgresStudentRepository) List(ctx context.Context) ([]*models.Student, error) {
	// Byte-wise ordering keeps the key order identical to the other backends.
	sql, args, err := r.sb.Select(studentColumns...).
		From(studentsTable).
		OrderBy(`id COLLATE "C" ASC`).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list students SQL")
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list students query")
		return nil, fmt.Errorf("error querying students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		student, err := scanPostgresStudent(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning student row during list")
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating student rows")
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}

// Update replaces the business fields and updated_at of an existing student
func (r *PostgresStudentRepository) Update(ctx context.Context, student *models.Student) error {
	sql, args, err := r.sb.Update(studentsTable).
		SetMap(map[string]interface{}{
			"name":           student.Name,
			"date_birth":     student.DateBirth,
			"date_admission": student.DateAdmission,
			"course":         student.Course,
			"course_type":    student.CourseType,
			"location":       student.Location,
			"parent":         student.Parent,
			"updated_at":     student.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update student SQL")
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error executing update student query")
		return fmt.Errorf("error updating student: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// Delete removes a student by ID and returns the removed row
func (r *PostgresStudentRepository) Delete(ctx context.Context, id string) (*models.Student, error) {
	sql, args, err := r.sb.Delete(studentsTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete student SQL")
		return nil, fmt.Errorf("failed to build delete student query: %w", err)
	}

	student, err := scanPostgresStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Str("studentID", id).Msg("Error executing delete student query")
		return nil, fmt.Errorf("error deleting student: %w", err)
	}
	return student, nil
}

var _ StudentRepository = (*PostgresStudentRepository)(nil)
