// Package models maps the Postgres schema onto gorm structs.
package models

import "github.com/google/uuid"

// assignID backs every BeforeCreate hook so rows built in Go carry their
// primary key before the INSERT, which sqlite has no default for.
func assignID(id *uuid.UUID) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	return nil
}
