package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLLEN_REGION_ID", "17")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "17", cfg.RegionID)
	assert.Equal(t, 3, cfg.FetchIntervalHours)
	assert.Equal(t, 3*time.Hour, cfg.FetchInterval())
	assert.Equal(t, "https://api.pollenrapporten.se", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.PollenTypes)
}

func TestLoadPollenTypes(t *testing.T) {
	t.Setenv("POLLEN_REGION_ID", "17")
	t.Setenv("POLLEN_TYPES", "1, 2 ,,5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "5"}, cfg.PollenTypes)
}

func TestLoadRequiresRegion(t *testing.T) {
	t.Setenv("POLLEN_REGION_ID", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadIntervalBounds(t *testing.T) {
	cases := []struct {
		interval string
		wantErr  bool
	}{
		{"1", false},
		{"24", false},
		{"0", true},
		{"25", true},
	}

	for _, tc := range cases {
		t.Run(tc.interval, func(t *testing.T) {
			t.Setenv("POLLEN_REGION_ID", "17")
			t.Setenv("FETCH_INTERVAL_HOURS", tc.interval)

			_, err := Load()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadInvalidTimeout(t *testing.T) {
	t.Setenv("POLLEN_REGION_ID", "17")
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
