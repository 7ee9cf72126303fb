package models

import "time"

// RawDocument is the normalized result of a single source fetch.
type RawDocument struct {
	SourceURL   string
	Source      string
	Body        []byte
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}
