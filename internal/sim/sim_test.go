package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_ChannelNamesSorted(t *testing.T) {
	snap := Snapshot{
		Channels: map[string]float64{
			"speed_kmh":   50.0,
			"fuel_l":      2.0,
			"odometer_km": 100.0,
		},
	}

	assert.Equal(t, []string{"fuel_l", "odometer_km", "speed_kmh"}, snap.ChannelNames())
}

func TestSnapshot_Triggered(t *testing.T) {
	tests := []struct {
		name        string
		diagnostics []Diagnostic
		want        bool
	}{
		{"no diagnostics", nil, false},
		{"all clear", []Diagnostic{{Triggered: false}, {Triggered: false}}, false},
		{"one fired", []Diagnostic{{Triggered: false}, {Triggered: true}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{Diagnostics: tt.diagnostics}
			assert.Equal(t, tt.want, snap.Triggered())
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.5, clamp(0.3, 0.5, 1.0))
	assert.Equal(t, 1.0, clamp(1.2, 0.5, 1.0))
	assert.Equal(t, 0.7, clamp(0.7, 0.5, 1.0))
}
