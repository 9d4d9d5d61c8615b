package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/yigit/studentregistry/internal/app/models"
	"github.com/yigit/studentregistry/internal/app/services"
	"gopkg.in/yaml.v3"
)

// studentFixture mirrors StudentPayload with YAML keys
type studentFixture struct {
	Name          string `yaml:"name"`
	DateBirth     string `yaml:"dateBirth"`
	DateAdmission string `yaml:"dateAdmission"`
	Course        string `yaml:"course"`
	CourseType    string `yaml:"courseType"`
	Location      string `yaml:"location"`
	Parent        string `yaml:"parent"`
	ParentNumber  uint64 `yaml:"parentNumber"`
}

type fixtureFile struct {
	Students []studentFixture `yaml:"students"`
}

// LoadFixtures parses the students listed in a YAML fixture file
func LoadFixtures(path string) ([]models.StudentPayload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	payloads := make([]models.StudentPayload, 0, len(file.Students))
	for _, f := range file.Students {
		payloads = append(payloads, models.StudentPayload{
			Name:          f.Name,
			DateBirth:     f.DateBirth,
			DateAdmission: f.DateAdmission,
			Course:        f.Course,
			CourseType:    f.CourseType,
			Location:      f.Location,
			Parent:        f.Parent,
			ParentNumber:  f.ParentNumber,
		})
	}
	return payloads, nil
}

// CreateDefaultData creates the fixture students whose names are not registered yet.
// Individual failures are logged and joined; the remaining fixtures are still processed.
func CreateDefaultData(ctx context.Context, svc services.StudentService, path string, lgr zerolog.Logger) error {
	payloads, err := LoadFixtures(path)
	if err != nil {
		return err
	}

	lgr.Info().Str("file", path).Int("count", len(payloads)).Msg("Checking/Creating seed students...")
	var finalErr error
	created := 0
	for _, payload := range payloads {
		if _, err := svc.GetStudentByName(ctx, payload.Name); err == nil {
			continue
		}

		if _, err := svc.CreateStudent(ctx, payload); err != nil {
			lgr.Error().Err(err).Str("name", payload.Name).Msg("Error creating seed student")
			finalErr = errors.Join(finalErr, fmt.Errorf("seed student %q: %w", payload.Name, err))
			continue
		}
		created++
	}

	lgr.Info().Int("created", created).Msg("Seed students processed")
	return finalErr
}
