package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

func TestDefaultDetectionSettings_Valid(t *testing.T) {
	s := domain.DefaultDetectionSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, 2, s.RequiredHits)
	assert.Equal(t, 15*time.Minute, s.HitWindow)
	assert.Equal(t, 45*time.Minute, s.EndVisitAfter)
	assert.Equal(t, 60*time.Minute, s.CandidateStale)
}

func TestDetectionSettings_Validate_MaxRadiusBelowMin(t *testing.T) {
	s := domain.DefaultDetectionSettings()
	s.MinRadiusMeters = 100
	s.MaxRadiusMeters = 50

	assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
}

func TestDetectionSettings_Validate_SearchRadiusBelowMax(t *testing.T) {
	s := domain.DefaultDetectionSettings()
	s.MaxSearchRadiusMeters = s.MaxRadiusMeters - 1

	assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
}

func TestDetectionSettings_Validate_ZeroHits(t *testing.T) {
	s := domain.DefaultDetectionSettings()
	s.RequiredHits = 0

	assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
}

func TestDetectionSettings_Validate_AccuracyRejectDisabled(t *testing.T) {
	s := domain.DefaultDetectionSettings()
	s.AccuracyRejectMeters = 0 // 0 means the gate is off, not invalid

	assert.NoError(t, s.Validate())
}

// ---- EffectiveRadius -------------------------------------------------------

// The effective radius must always land inside [MinRadiusMeters,
// MaxRadiusMeters] no matter what accuracy the device reports.
func TestEffectiveRadius_Clamping(t *testing.T) {
	s := domain.DefaultDetectionSettings() // min 35, max 150, multiplier 2.0

	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		accuracy *float64
		want     float64
	}{
		{"unknown accuracy uses min radius", nil, 35},
		{"zero accuracy clamps to min", ptr(0), 35},
		{"small accuracy clamps to min", ptr(10), 35},
		{"mid accuracy scales by multiplier", ptr(50), 100},
		{"large accuracy clamps to max", ptr(500), 150},
		{"huge accuracy clamps to max", ptr(1e9), 150},
		{"negative accuracy clamps to min", ptr(-40), 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.EffectiveRadius(tt.accuracy)

			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, s.MinRadiusMeters)
			assert.LessOrEqual(t, got, s.MaxRadiusMeters)
		})
	}
}
