package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Address struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Street    string
	City      string
	District  string
	Country   string
	CreatedAt time.Time
}

// Validate checks the required fields. Country may be empty; the caller fills in the default.
func (a *Address) Validate() error {
	if strings.TrimSpace(a.Street) == "" {
		return Validationf("shipping address street is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return Validationf("shipping address city is required")
	}
	if strings.TrimSpace(a.District) == "" {
		return Validationf("shipping address district is required")
	}
	return nil
}
