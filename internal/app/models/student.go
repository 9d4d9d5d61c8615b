package models

import "time"

// Student is one enrolled student held by the registry
type Student struct {
	ID            string     `json:"id" db:"id" example:"3f1c2a9e-2b6d-4d1e-9c55-1f0e3a7b8c9d"`
	Name          string     `json:"name" db:"name" example:"Alice"`
	DateBirth     string     `json:"dateBirth" db:"date_birth" example:"2010-01-01"`
	DateAdmission string     `json:"dateAdmission" db:"date_admission" example:"2020-01-01"`
	Course        string     `json:"course" db:"course" example:"Math"`
	CourseType    string     `json:"courseType" db:"course_type" example:"Full"`
	Location      string     `json:"location" db:"location" example:"Campus A"`
	Parent        string     `json:"parent" db:"parent" example:"Bob"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty" db:"updated_at"` // nil until the first update
}

// StudentPayload carries the caller-supplied fields for create and update.
// Text fields must hold more than whitespace. ParentNumber is only a
// required-field signal and is never stored.
type StudentPayload struct {
	Name          string `json:"name" validate:"required,notblank" example:"Alice"`
	DateBirth     string `json:"dateBirth" validate:"required,notblank" example:"2010-01-01"`
	DateAdmission string `json:"dateAdmission" validate:"required,notblank" example:"2020-01-01"`
	Course        string `json:"course" validate:"required,notblank" example:"Math"`
	CourseType    string `json:"courseType" validate:"required,notblank" example:"Full"`
	Location      string `json:"location" validate:"required,notblank" example:"Campus A"`
	Parent        string `json:"parent" validate:"required,notblank" example:"Bob"`
	ParentNumber  uint64 `json:"parentNumber" validate:"required" example:"12345"`
}

// Apply copies the business fields of the payload onto the student
func (p StudentPayload) Apply(s *Student) {
	s.Name = p.Name
	s.DateBirth = p.DateBirth
	s.DateAdmission = p.DateAdmission
	s.Course = p.Course
	s.CourseType = p.CourseType
	s.Location = p.Location
	s.Parent = p.Parent
}

// Clone returns a deep copy so callers never alias stored state
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	if s.UpdatedAt != nil {
		updatedAt := *s.UpdatedAt
		c.UpdatedAt = &updatedAt
	}
	return &c
}
