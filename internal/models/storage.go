package models

// Storage is the persistence envelope for the engine snapshot file.
// History is present only when the memory-backed history store is in use.
type Storage struct {
	Products    map[string]*TrackedProduct     `json:"products"`
	Alerts      map[string]*Alert              `json:"alerts"`
	History     map[string][]PricePoint        `json:"history,omitempty"`
	Comparisons map[string]*ComparisonSnapshot `json:"comparisons,omitempty"`
}
