package dto

import "github.com/yigit/studentregistry/internal/app/models"

// StudentRequest is the body accepted by create and update
type StudentRequest = models.StudentPayload
