package models

import (
	"github.com/google/uuid"
)

// NewRunID identifies one training, prediction or pattern analysis run.
// The id is carried in logs and in the persisted report.
func NewRunID() string {
	return uuid.NewString()
}
