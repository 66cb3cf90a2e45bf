package cloudevents

import (
	"time"
)

// Event types emitted by the inbound submission workflow
const (
	InboundPlanCreated        = "wms.inbound.plan-created"
	InboundPackingSet         = "wms.inbound.packing-set"
	InboundPlacementConfirmed = "wms.inbound.placement-confirmed"
	InboundTransportConfirmed = "wms.inbound.transport-confirmed"
	InboundPhaseFailed        = "wms.inbound.phase-failed"
	InboundLabelsReady        = "wms.inbound.labels-ready"
)

// SourceInbound is the CloudEvents source for this service
const SourceInbound = "/wms/inbound-service"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WorkflowID    string `json:"wmsworkflowid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}
