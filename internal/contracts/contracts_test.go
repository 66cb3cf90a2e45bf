package contracts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/domain"
)

func TestEventValidator_CoversEveryEvent(t *testing.T) {
	v, err := NewEventValidator()
	require.NoError(t, err)

	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	events := []domain.DomainEvent{
		&domain.PlanCreatedEvent{ShipmentID: "S-1", PlanID: "wf-1", CreatedAt: now},
		&domain.PackingSetEvent{ShipmentID: "S-1", PlanID: "wf-1", PackingOptionID: "po-1", SetAt: now},
		&domain.PlacementConfirmedEvent{ShipmentID: "S-1", PlanID: "wf-1", PlacementOptionID: "pl-1", RemoteShipmentIDs: []string{"sh-1"}, ConfirmedAt: now},
		&domain.TransportConfirmedEvent{ShipmentID: "S-1", PlanID: "wf-1", RemoteShipmentIDs: []string{"sh-1"}, SubmittedAt: now},
		&domain.PhaseFailedEvent{ShipmentID: "S-1", Phase: "set_packing", OperationID: "op-1", Error: "boom", FailedAt: now},
		&domain.LabelsReadyEvent{ShipmentID: "S-1", RemoteShipmentID: "sh-1", LabelURL: "https://labels/sh-1.pdf", ReadyAt: now},
	}

	assert.Len(t, v.SupportedEventTypes(), len(events))
	for _, e := range events {
		t.Run(e.EventType(), func(t *testing.T) {
			assert.NoError(t, v.ValidateData(e.EventType(), e))
		})
	}
}

func TestEventValidator_RejectsMissingFields(t *testing.T) {
	v, err := NewEventValidator()
	require.NoError(t, err)

	err = v.ValidateData("wms.inbound.labels-ready", map[string]any{"shipmentId": "S-1"})

	assert.Error(t, err)
}

func TestRequestValidator(t *testing.T) {
	v, err := NewRequestValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		wantErr bool
	}{
		{"known run phase", http.MethodPost, "/api/v1/shipments/S-1/run", `{"phase":"all"}`, false},
		{"unknown run phase", http.MethodPost, "/api/v1/shipments/S-1/run", `{"phase":"everything"}`, true},
		{"draft shipment", http.MethodPost, "/api/v1/shipments", `{"shipmentId":"S-1","items":[{"sku":"A","quantity":1}]}`, false},
		{"shipment without id", http.MethodPost, "/api/v1/shipments", `{"items":[{"sku":"A","quantity":1}]}`, true},
		{"zero quantity", http.MethodPost, "/api/v1/shipments", `{"shipmentId":"S-1","items":[{"sku":"A","quantity":0}]}`, true},
		{"labels without body", http.MethodPost, "/api/v1/shipments/S-1/labels", "", false},
		{"read shipment", http.MethodGet, "/api/v1/shipments/S-1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			err := v.ValidateRequest(context.Background(), req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
