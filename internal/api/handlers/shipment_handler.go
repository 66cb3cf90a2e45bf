package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/pkg/middleware"
)

// ShipmentHandler serves the shipment endpoints
type ShipmentHandler struct {
	service      *application.ShipmentService
	orchestrator *application.Orchestrator
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(service *application.ShipmentService, orchestrator *application.Orchestrator) *ShipmentHandler {
	return &ShipmentHandler{service: service, orchestrator: orchestrator}
}

// RegisterRoutes mounts the shipment endpoints under /api/v1
func (h *ShipmentHandler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1/shipments")
	v1.POST("", h.CreateShipment)
	v1.GET("/:id", h.GetShipment)
	v1.GET("/:id/splits", h.ListSplits)
	v1.POST("/:id/run", h.Run)
	v1.POST("/:id/labels", h.RequestLabels)
	v1.POST("/:id/submissions", h.StartSubmission)
}

// fail hands err to the error middleware
func fail(c *gin.Context, err error) {
	_ = c.Error(application.ToAppError(err))
}

// CreateShipment handles POST /api/v1/shipments
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	var req CreateShipmentRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		fail(c, appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]string{"shipment.id": req.ShipmentID})

	shipment, err := h.service.CreateShipment(c.Request.Context(), req.toCommand())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, shipment)
}

// GetShipment handles GET /api/v1/shipments/:id
func (h *ShipmentHandler) GetShipment(c *gin.Context) {
	shipment, err := h.service.GetShipment(c.Request.Context(), application.GetShipmentQuery{ShipmentID: c.Param("id")})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

// ListSplits handles GET /api/v1/shipments/:id/splits
func (h *ShipmentHandler) ListSplits(c *gin.Context) {
	splits, err := h.service.ListSplits(c.Request.Context(), application.GetShipmentQuery{ShipmentID: c.Param("id")})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, splits)
}

// Run handles POST /api/v1/shipments/:id/run
func (h *ShipmentHandler) Run(c *gin.Context) {
	var req RunRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		fail(c, appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]string{
		"inbound.run_phase":           req.Phase,
		"inbound.placement_option_id": req.PlacementOptionID,
	})

	result, err := h.orchestrator.Run(c.Request.Context(), application.RunCommand{
		ShipmentID:            c.Param("id"),
		Phase:                 application.RunPhase(req.Phase),
		PlacementOptionID:     req.PlacementOptionID,
		TransportChoices:      req.TransportChoices,
		DeliveryWindowChoices: req.DeliveryWindowChoices,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RequestLabels handles POST /api/v1/shipments/:id/labels. The body is optional.
func (h *ShipmentHandler) RequestLabels(c *gin.Context) {
	var req LabelsRequest
	if c.Request.ContentLength > 0 {
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			fail(c, appErr)
			return
		}
	}

	result, err := h.orchestrator.RequestLabels(c.Request.Context(), application.RequestLabelsCommand{
		ShipmentID:       c.Param("id"),
		RemoteShipmentID: req.RemoteShipmentID,
		PageType:         req.PageType,
		LabelType:        req.LabelType,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StartSubmission handles POST /api/v1/shipments/:id/submissions
func (h *ShipmentHandler) StartSubmission(c *gin.Context) {
	submission, err := h.service.StartSubmission(c.Request.Context(), application.StartSubmissionCommand{ShipmentID: c.Param("id")})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, submission)
}
