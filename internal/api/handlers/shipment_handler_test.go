package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/internal/contracts"
	"github.com/wms-platform/inbound-service/internal/infrastructure/memory"
	"github.com/wms-platform/inbound-service/internal/infrastructure/sandbox"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/middleware"
)

type mockStarter struct {
	mock.Mock
}

func (m *mockStarter) StartSubmission(ctx context.Context, shipmentID string) (string, string, error) {
	args := m.Called(ctx, shipmentID)
	return args.String(0), args.String(1), args.Error(2)
}

func setupRouter(t *testing.T, starter application.SubmissionStarter) (*gin.Engine, *sandbox.Network) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewNop()
	network := sandbox.NewNetwork(sandbox.DefaultConfig())
	shipments := memory.NewShipmentStore()
	splits := memory.NewSplitStore()
	clock := application.SystemClock{}

	poller := application.NewOperationPoller(network, clock, nil, logger, nil)
	executor := application.NewPhaseExecutor(network, shipments, splits, poller, clock, nil, logger, nil)
	orchestrator := application.NewOrchestrator(shipments, splits, network, executor, clock, nil, logger, nil)

	svc := application.NewShipmentService(shipments, splits, starter, logger, nil)

	contract, err := contracts.NewRequestValidator()
	require.NoError(t, err)

	router := gin.New()
	middleware.Setup(router, &middleware.Config{Logger: logger, Contract: contract, ServiceName: "inbound-service"})
	NewShipmentHandler(svc, orchestrator).RegisterRoutes(router)
	return router, network
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// assertMatchesContract checks a recorded response against the documented one
func assertMatchesContract(t *testing.T, method, path string, w *httptest.ResponseRecorder) {
	t.Helper()
	validator, err := contracts.NewRequestValidator()
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, nil)
	assert.NoError(t, validator.ValidateResponse(context.Background(), req, w.Code, w.Header(), w.Body.Bytes()))
}

func completeShipment(id string) map[string]any {
	return map[string]any{
		"shipmentId": id,
		"name":       "May restock",
		"sourceWarehouse": map[string]any{
			"warehouseId": "WH-RNO",
			"name":        "Reno",
			"address": map[string]any{
				"name":                "Reno Warehouse",
				"addressLine1":        "1 Dock Rd",
				"city":                "Reno",
				"stateOrProvinceCode": "NV",
				"postalCode":          "89502",
				"countryCode":         "US",
				"phone":               "+1-775-555-0100",
			},
		},
		"items": []map[string]any{{"sku": "MUG-RED", "quantity": 30}},
		"boxes": []map[string]any{{
			"boxId":      "B1",
			"dimensions": map[string]any{"length": 20, "width": 16, "height": 12, "unit": "IN"},
			"weight":     map[string]any{"value": 18, "unit": "LB"},
			"items":      []map[string]any{{"sku": "MUG-RED", "quantity": 30}},
		}},
	}
}

func TestShipmentHandler_FullRun(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := do(t, router, http.MethodPost, "/api/v1/shipments", completeShipment("S-100"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assertMatchesContract(t, http.MethodPost, "/api/v1/shipments", w)
	created := decode[application.ShipmentDTO](t, w)
	assert.Equal(t, "none", created.Workflow.Phase)

	w = do(t, router, http.MethodPost, "/api/v1/shipments/S-100/run", map[string]any{"phase": "all"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assertMatchesContract(t, http.MethodPost, "/api/v1/shipments/S-100/run", w)
	result := decode[application.RunResultDTO](t, w)
	assert.Equal(t, "transport_confirmed", result.Phase)

	w = do(t, router, http.MethodGet, "/api/v1/shipments/S-100/splits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	splits := decode[[]application.SplitDTO](t, w)
	require.Len(t, splits, 1)

	w = do(t, router, http.MethodPost, "/api/v1/shipments/S-100/labels", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assertMatchesContract(t, http.MethodPost, "/api/v1/shipments/S-100/labels", w)
	labels := decode[application.LabelsResultDTO](t, w)
	require.Len(t, labels.Results, 1)
	assert.Equal(t, application.LabelResultReady, labels.Results[0].Status)
	assert.NotEmpty(t, labels.Results[0].LabelURL)
}

func TestShipmentHandler_Errors(t *testing.T) {
	router, _ := setupRouter(t, nil)

	t.Run("duplicate shipment", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/v1/shipments", completeShipment("S-dup")).Code)

		w := do(t, router, http.MethodPost, "/api/v1/shipments", completeShipment("S-dup"))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", decode[middleware.APIErrorResponse](t, w).Code)
	})

	t.Run("unknown shipment", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/v1/shipments/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "RESOURCE_NOT_FOUND", decode[middleware.APIErrorResponse](t, w).Code)
	})

	t.Run("phase outside the contract", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/shipments/S-dup/run", map[string]any{"phase": "everything"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[middleware.APIErrorResponse](t, w).Code)
	})

	t.Run("incomplete draft fails at plan time", func(t *testing.T) {
		draft := map[string]any{"shipmentId": "S-draft", "items": []map[string]any{{"sku": "MUG-RED", "quantity": 5}}}
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/v1/shipments", draft).Code)

		w := do(t, router, http.MethodPost, "/api/v1/shipments/S-draft/run", map[string]any{"phase": "create_plan"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decode[middleware.APIErrorResponse](t, w)
		assert.Equal(t, "PRECONDITION_FAILED", body.Code)
		assert.NotEmpty(t, body.Details)
	})

	t.Run("labels before a plan exists", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/shipments/S-dup/labels", map[string]any{"pageType": "PackageLabel_Thermal"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("submission without a workflow engine", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/shipments/S-dup/submissions", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestShipmentHandler_InteractivePlacement(t *testing.T) {
	router, _ := setupRouter(t, nil)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/v1/shipments", completeShipment("S-200")).Code)
	for _, phase := range []string{"create_plan", "set_packing"} {
		w := do(t, router, http.MethodPost, "/api/v1/shipments/S-200/run", map[string]any{"phase": phase})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(t, router, http.MethodPost, "/api/v1/shipments/S-200/run", map[string]any{"phase": "get_placement_options"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	offered := decode[application.RunResultDTO](t, w)
	require.NotEmpty(t, offered.PlacementOptions)
	assert.True(t, offered.AwaitingChoice)

	w = do(t, router, http.MethodPost, "/api/v1/shipments/S-200/run", map[string]any{"phase": "select_placement"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "an option id is required")

	w = do(t, router, http.MethodPost, "/api/v1/shipments/S-200/run", map[string]any{
		"phase":             "select_placement",
		"placementOptionId": offered.PlacementOptions[0].PlacementOptionID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "placement_confirmed", decode[application.RunResultDTO](t, w).Phase)
}

func TestShipmentHandler_StartSubmission(t *testing.T) {
	starter := &mockStarter{}
	starter.On("StartSubmission", mock.Anything, "S-300").Return("inbound-submission-S-300", "run-1", nil)
	router, _ := setupRouter(t, starter)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/v1/shipments", completeShipment("S-300")).Code)

	w := do(t, router, http.MethodPost, "/api/v1/shipments/S-300/submissions", nil)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	submission := decode[application.SubmissionDTO](t, w)
	assert.Equal(t, "inbound-submission-S-300", submission.WorkflowID)
	assert.Equal(t, "run-1", submission.RunID)
	starter.AssertExpectations(t)
}
