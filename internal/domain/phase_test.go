package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPhase(t *testing.T) {
	tests := []struct {
		name    string
		current Phase
		event   PhaseEvent
		want    Phase
		wantErr bool
	}{
		{"none to plan", PhaseNone, EventPlanCreated, PhasePlanCreated, false},
		{"zero value to plan", "", EventPlanCreated, PhasePlanCreated, false},
		{"plan to packing", PhasePlanCreated, EventPackingSet, PhasePackingSet, false},
		{"packing to placement", PhasePackingSet, EventPlacementConfirmed, PhasePlacementConfirmed, false},
		{"placement to transport", PhasePlacementConfirmed, EventTransportConfirmed, PhaseTransportConfirmed, false},
		{"replayed event is absorbed", PhasePlacementConfirmed, EventPlanCreated, PhasePlacementConfirmed, false},
		{"same event is absorbed", PhaseTransportConfirmed, EventTransportConfirmed, PhaseTransportConfirmed, false},
		{"skip is rejected", PhaseNone, EventPackingSet, PhaseNone, true},
		{"long skip is rejected", PhasePlanCreated, EventTransportConfirmed, PhasePlanCreated, true},
		{"unknown current", Phase("shipped"), EventPlanCreated, Phase("shipped"), true},
		{"unknown event", PhaseNone, PhaseEvent("bogus"), PhaseNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPhase(tt.current, tt.event)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhase_AtLeast(t *testing.T) {
	assert.True(t, PhasePackingSet.AtLeast(PhasePlanCreated))
	assert.True(t, PhasePackingSet.AtLeast(PhasePackingSet))
	assert.False(t, PhasePlanCreated.AtLeast(PhasePlacementConfirmed))
	assert.True(t, Phase("").AtLeast(PhaseNone))
	assert.False(t, Phase("").AtLeast(PhasePlanCreated))
}
