package db

import (
	"time"

	"gorm.io/gorm"
)

// InstanceRecord stores one instance. Document is the TOML form of the
// instance and is authoritative; Name, Playtime and LastPlayed are copies
// kept for queries.
type InstanceRecord struct {
	gorm.Model
	Name       string `gorm:"index"` // not unique, names are unique by convention only
	Document   string
	Playtime   time.Duration
	LastPlayed *time.Time
}

// SessionRecord is one finished play session of an instance.
type SessionRecord struct {
	gorm.Model
	InstanceID uint `gorm:"index"` // References InstanceRecord.ID
	StartedAt  time.Time
	Duration   time.Duration
	ExitCode   int
}
