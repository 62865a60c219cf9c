package pollen

import (
	"fmt"
	"sort"
)

// Availability states exposed by the forecast view.
const (
	AvailabilityUnavailable = "unavailable"
	AvailabilityActive      = "active"
	AvailabilityNoData      = "no_data"
)

// ForecastEntry is one pollen type's level in the current forecast.
type ForecastEntry struct {
	TypeName    string `json:"type"`
	TypeID      string `json:"type_id"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// ForecastView is a read-only projection of the coordinator's current
// snapshot. It performs no I/O and never blocks.
type ForecastView struct {
	coordinator *Coordinator
	regionName  string
}

// NewForecastView creates a forecast view. regionName is the display name of
// the configured region; pass the region id when the name is unknown.
func NewForecastView(co *Coordinator, regionName string) *ForecastView {
	return &ForecastView{coordinator: co, regionName: regionName}
}

// Availability reports "unavailable" before the first successful refresh,
// "active" when today's forecast has at least one level, and "no_data"
// otherwise.
func (v *ForecastView) Availability() string {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return AvailabilityUnavailable
	}
	if len(snap.Levels) > 0 {
		return AvailabilityActive
	}
	return AvailabilityNoData
}

// RegionName returns the display name of the configured region.
func (v *ForecastView) RegionName() string {
	return v.regionName
}

// Summary returns the free-form forecast text, empty when no snapshot exists.
func (v *ForecastView) Summary() string {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return ""
	}
	return snap.Text
}

// ValidityWindow returns the forecast's start and end dates.
func (v *ForecastView) ValidityWindow() (start, end string) {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return "", ""
	}
	return snap.StartDate, snap.EndDate
}

// Entries returns one entry per pollen type in today's forecast, sorted by
// type name.
func (v *ForecastView) Entries() []ForecastEntry {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return nil
	}

	entries := make([]ForecastEntry, 0, len(snap.Levels))
	for id, level := range snap.Levels {
		entries = append(entries, ForecastEntry{
			TypeName:    typeName(snap.PollenTypes, id),
			TypeID:      id,
			Level:       level,
			Description: levelDescription(snap.LevelDefinitions, level),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TypeName < entries[j].TypeName
	})
	return entries
}

// MeasurementView projects one configured pollen type out of the current
// snapshot. Like ForecastView it performs no I/O.
type MeasurementView struct {
	coordinator *Coordinator
	typeID      string
	regionName  string
}

// NewMeasurementView creates a measurement view for a pollen type id.
func NewMeasurementView(co *Coordinator, typeID, regionName string) *MeasurementView {
	return &MeasurementView{coordinator: co, typeID: typeID, regionName: regionName}
}

// TypeID returns the pollen type id this view is bound to.
func (v *MeasurementView) TypeID() string {
	return v.typeID
}

// Available reports whether any snapshot exists. Stale data served in the
// degraded state still counts as available.
func (v *MeasurementView) Available() bool {
	return v.coordinator.Snapshot() != nil
}

// Level returns the severity level for this pollen type, or nil when the
// type is absent from today's forecast.
func (v *MeasurementView) Level() *int {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return nil
	}
	level, ok := snap.Levels[v.typeID]
	if !ok {
		return nil
	}
	return &level
}

// TypeName returns the display name of the pollen type, falling back to the
// id while the catalog is unavailable.
func (v *MeasurementView) TypeName() string {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return v.typeID
	}
	return typeName(snap.PollenTypes, v.typeID)
}

// RegionName returns the display name of the configured region.
func (v *MeasurementView) RegionName() string {
	return v.regionName
}

// Description returns the severity description for the current level, empty
// when the type is absent from today's forecast.
func (v *MeasurementView) Description() string {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return ""
	}
	level, ok := snap.Levels[v.typeID]
	if !ok {
		return ""
	}
	return levelDescription(snap.LevelDefinitions, level)
}

// ValidityWindow returns the forecast's start and end dates.
func (v *MeasurementView) ValidityWindow() (start, end string) {
	snap := v.coordinator.Snapshot()
	if snap == nil {
		return "", ""
	}
	return snap.StartDate, snap.EndDate
}

func typeName(types PollenTypeCatalog, id string) string {
	if name, ok := types[id]; ok {
		return name
	}
	return id
}

func levelDescription(defs LevelDefinitionCatalog, level int) string {
	if name, ok := defs[level]; ok {
		return name
	}
	return fmt.Sprintf("okänd nivå %d", level)
}
