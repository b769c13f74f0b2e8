package content

import (
	"github.com/google/uuid"

	"github.com/gyoansoft/gyoan-backend/pkg/db/models"
)

// IsOwner reports whether userID owns the row. It reads only its arguments,
// so callers decide what a failed check means.
func IsOwner(row *models.Content, userID uuid.UUID) bool {
	if row == nil || userID == uuid.Nil {
		return false
	}
	return row.UserID == userID
}
