// Package models - unit.go defines the Unit model for the school's branch offices.
package models

import "time"

// Unit represents a branch office of the school
type Unit struct {
	Key       string // stable identifier used in user records and claims
	Name      string // display name
	Active    bool
	CreatedAt time.Time
}
