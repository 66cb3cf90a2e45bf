// Package contracts embeds the HTTP and event contracts of the inbound service
package contracts

import (
	_ "embed"

	"github.com/wms-platform/inbound-service/pkg/contracts/asyncapi"
	"github.com/wms-platform/inbound-service/pkg/contracts/openapi"
)

//go:embed openapi.yaml
var openAPISpec []byte

//go:embed asyncapi.yaml
var asyncAPISpec []byte

// OpenAPISpec returns the HTTP API document
func OpenAPISpec() []byte { return openAPISpec }

// AsyncAPISpec returns the event document
func AsyncAPISpec() []byte { return asyncAPISpec }

// NewRequestValidator builds the validator used by the contract middleware
func NewRequestValidator() (*openapi.Validator, error) {
	return openapi.NewValidatorFromBytes(openAPISpec)
}

// NewEventValidator builds the validator applied to outgoing event payloads
func NewEventValidator() (*asyncapi.EventValidator, error) {
	return asyncapi.NewEventValidatorFromBytes(asyncAPISpec)
}
