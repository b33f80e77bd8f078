package domain

import (
	"strings"
	"time"
)

type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

type Staff struct {
	ID          string
	Name        string
	Email       string
	Designation string
	CreatedAt   time.Time
}

func validateParty(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	return nil
}

func (c Customer) Validate() error {
	return validateParty(c.Name, c.Email)
}

func (s Staff) Validate() error {
	return validateParty(s.Name, s.Email)
}
