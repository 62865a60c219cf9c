package pollen

import (
	"time"
)

// RegionCatalog maps region ids to display names.
type RegionCatalog map[string]string

// PollenTypeCatalog maps pollen type ids to display names.
type PollenTypeCatalog map[string]string

// LevelDefinitionCatalog maps numeric severity levels to human descriptions.
type LevelDefinitionCatalog map[int]string

// ForecastPayload is the normalized result of a single forecast fetch:
// the validity window, the free-form forecast text, and today's severity
// level per pollen type id.
type ForecastPayload struct {
	StartDate string
	EndDate   string
	Text      string
	Levels    map[string]int
}

// Snapshot is the atomic unit of truth produced by one successful refresh
// cycle. The catalogs are denormalized into it so a reader never needs a
// second fetch to interpret the levels. A Snapshot is never mutated after
// publication; the coordinator replaces it wholesale.
type Snapshot struct {
	RegionID         string                 `json:"region_id"`
	StartDate        string                 `json:"start_date"`
	EndDate          string                 `json:"end_date"`
	Text             string                 `json:"text"`
	Levels           map[string]int         `json:"levels"`
	PollenTypes      PollenTypeCatalog      `json:"pollen_types"`
	LevelDefinitions LevelDefinitionCatalog `json:"level_definitions"`
	FetchedAt        time.Time              `json:"fetched_at"` // always UTC
}
