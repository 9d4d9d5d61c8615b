package models

import "time"

// StudentEventType names a change made to the registry
type StudentEventType string

const (
	StudentCreated StudentEventType = "student.created"
	StudentUpdated StudentEventType = "student.updated"
	StudentDeleted StudentEventType = "student.deleted"
)

// StudentEvent describes one committed change. Student holds the record
// after the change, or as it was before removal for deletions.
type StudentEvent struct {
	Type      StudentEventType `json:"type" example:"student.created"`
	Student   *Student         `json:"student"`
	Timestamp time.Time        `json:"timestamp"`
}
