package pollen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publish installs a snapshot directly, bypassing the refresh cycle, so view
// behavior can be tested without an upstream.
func publish(co *Coordinator, snap *Snapshot, state State) {
	co.mu.Lock()
	co.snapshot = snap
	co.state = state
	co.mu.Unlock()
}

func emptyCoordinator() *Coordinator {
	return NewCoordinator(CoordinatorConfig{})
}

func TestForecastViewAvailability(t *testing.T) {
	co := emptyCoordinator()
	view := NewForecastView(co, "Stockholm")

	assert.Equal(t, AvailabilityUnavailable, view.Availability())

	publish(co, &Snapshot{Levels: map[string]int{}}, StateReady)
	assert.Equal(t, AvailabilityNoData, view.Availability())

	publish(co, &Snapshot{Levels: map[string]int{"1": 3}}, StateReady)
	assert.Equal(t, AvailabilityActive, view.Availability())
}

func TestForecastViewEntriesSortedByTypeName(t *testing.T) {
	co := emptyCoordinator()
	publish(co, &Snapshot{
		Levels: map[string]int{"1": 3, "2": 1, "9": 5},
		PollenTypes: PollenTypeCatalog{
			"1": "Björk",
			"2": "Al",
			// "9" missing from the catalog on purpose.
		},
		LevelDefinitions: LevelDefinitionCatalog{
			1: "Låga halter",
			3: "Måttliga halter",
		},
	}, StateReady)

	entries := NewForecastView(co, "Stockholm").Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, []ForecastEntry{
		{TypeName: "9", TypeID: "9", Level: 5, Description: "okänd nivå 5"},
		{TypeName: "Al", TypeID: "2", Level: 1, Description: "Låga halter"},
		{TypeName: "Björk", TypeID: "1", Level: 3, Description: "Måttliga halter"},
	}, entries)
}

func TestForecastViewSummaryAndWindow(t *testing.T) {
	co := emptyCoordinator()
	view := NewForecastView(co, "Stockholm")

	assert.Empty(t, view.Summary())
	start, end := view.ValidityWindow()
	assert.Empty(t, start)
	assert.Empty(t, end)

	publish(co, &Snapshot{
		StartDate: "2026-04-20",
		EndDate:   "2026-04-26",
		Text:      "Höga halter av björkpollen.",
	}, StateReady)

	assert.Equal(t, "Höga halter av björkpollen.", view.Summary())
	start, end = view.ValidityWindow()
	assert.Equal(t, "2026-04-20", start)
	assert.Equal(t, "2026-04-26", end)
}

func TestMeasurementViewLevel(t *testing.T) {
	co := emptyCoordinator()
	birch := NewMeasurementView(co, "1", "Stockholm")
	grass := NewMeasurementView(co, "2", "Stockholm")

	assert.Nil(t, birch.Level(), "no snapshot yet")
	assert.False(t, birch.Available())

	publish(co, &Snapshot{
		Levels:           map[string]int{"1": 3},
		PollenTypes:      PollenTypeCatalog{"1": "Björk", "2": "Gräs"},
		LevelDefinitions: LevelDefinitionCatalog{3: "Måttliga halter"},
	}, StateReady)

	require.NotNil(t, birch.Level())
	assert.Equal(t, 3, *birch.Level())
	assert.Equal(t, "Björk", birch.TypeName())
	assert.Equal(t, "Måttliga halter", birch.Description())

	assert.Nil(t, grass.Level(), "absent type must be nil, not zero")
	assert.Empty(t, grass.Description())
	assert.True(t, grass.Available())
}

func TestMeasurementViewAvailableWhileDegraded(t *testing.T) {
	co := emptyCoordinator()
	publish(co, &Snapshot{Levels: map[string]int{"1": 2}}, StateDegraded)

	view := NewMeasurementView(co, "1", "Stockholm")
	assert.True(t, view.Available(), "stale data still counts as available")
	require.NotNil(t, view.Level())
	assert.Equal(t, 2, *view.Level())
}

func TestMeasurementViewFallbacks(t *testing.T) {
	co := emptyCoordinator()
	view := NewMeasurementView(co, "7", "Stockholm")

	// Before any snapshot the id stands in for the name.
	assert.Equal(t, "7", view.TypeName())

	publish(co, &Snapshot{
		Levels:      map[string]int{"7": 8},
		PollenTypes: PollenTypeCatalog{},
	}, StateReady)

	assert.Equal(t, "7", view.TypeName())
	assert.Equal(t, "okänd nivå 8", view.Description())
}
