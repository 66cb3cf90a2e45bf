package application

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/domain"
)

func TestInteractivePolicy(t *testing.T) {
	placements := []domain.PlacementOption{{ID: "pl-1"}, {ID: "pl-2"}}
	transports := []domain.TransportOption{
		{ID: "to-1", ShipmentID: "sh-1"},
		{ID: "to-2", ShipmentID: "sh-2"},
	}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	windows := []domain.DeliveryWindowOption{
		{ID: "dw-1", ShipmentID: "sh-1", StartDate: day.AddDate(0, 0, 3)},
		{ID: "dw-2", ShipmentID: "sh-1", StartDate: day},
	}

	t.Run("missing choices ask for one", func(t *testing.T) {
		p := InteractivePolicy{}

		_, err := p.Placement(placements)
		assert.ErrorIs(t, err, ErrChoiceRequired)

		_, err = p.Transport("sh-1", transports)
		assert.ErrorIs(t, err, ErrChoiceRequired)
	})

	t.Run("known choices are returned", func(t *testing.T) {
		p := InteractivePolicy{
			PlacementOptionID:     "pl-2",
			TransportChoices:      map[string]string{"sh-1": "to-1"},
			DeliveryWindowChoices: map[string]string{"sh-1": "dw-1"},
		}

		placement, err := p.Placement(placements)
		require.NoError(t, err)
		assert.Equal(t, "pl-2", placement.ID)

		transport, err := p.Transport("sh-1", transports)
		require.NoError(t, err)
		assert.Equal(t, "to-1", transport.ID)

		window, err := p.DeliveryWindow("sh-1", windows)
		require.NoError(t, err)
		assert.Equal(t, "dw-1", window.ID)
	})

	t.Run("unknown choices are rejected", func(t *testing.T) {
		p := InteractivePolicy{
			PlacementOptionID: "pl-9",
			TransportChoices:  map[string]string{"sh-1": "to-2"},
		}

		var bad *InvalidChoiceError
		_, err := p.Placement(placements)
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, "placement", bad.Kind)

		// to-2 exists but belongs to another shipment
		_, err = p.Transport("sh-1", transports)
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, "sh-1", bad.ShipmentID)
	})

	t.Run("delivery window falls back to the earliest", func(t *testing.T) {
		window, err := InteractivePolicy{}.DeliveryWindow("sh-1", windows)
		require.NoError(t, err)
		assert.Equal(t, "dw-2", window.ID)
	})
}

func TestIsAlreadyConfirmed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", fmt.Errorf("confirm: %w", domain.ErrAlreadyConfirmed), true},
		{"conflict status", &domain.RemoteCallError{Operation: "confirmPlacementOption", StatusCode: http.StatusConflict}, true},
		{
			"rejected operation wording",
			&domain.RemoteRejectionError{Problems: []domain.Problem{{Message: "Placement option has already been confirmed"}}},
			true,
		},
		{
			"cannot be processed",
			&domain.RemoteRejectionError{Problems: []domain.Problem{{Message: "The request cannot be processed in the current state"}}},
			true,
		},
		{
			"call error wording",
			&domain.RemoteCallError{StatusCode: http.StatusBadRequest, Problems: []domain.Problem{{Message: "Option already accepted"}}},
			true,
		},
		{
			"other rejection",
			&domain.RemoteRejectionError{Problems: []domain.Problem{{Message: "sku MUG-RED is not eligible"}}},
			false,
		},
		{"server error", &domain.RemoteCallError{StatusCode: http.StatusInternalServerError}, false},
		{"plain error", errors.New("already confirmed elsewhere"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAlreadyConfirmed(tt.err))
		})
	}
}
