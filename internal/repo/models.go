package repo

import (
	"time"

	"github.com/google/uuid"
)

// Citizen is a registered complainant.
type Citizen struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Active    bool
	CreatedAt time.Time
}
