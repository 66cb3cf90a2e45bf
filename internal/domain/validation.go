package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var shipmentValidator = newShipmentValidator()

func newShipmentValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("bson"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateForPlan checks everything the plan phase needs before any remote
// call: a complete source address, at least one box holding at least one item,
// positive box dimensions and weight, and box contents that add up to the
// required quantity of every SKU.
func (s *Shipment) ValidateForPlan() error {
	var problems []FieldProblem

	if err := shipmentValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, FieldProblem{Field: fieldPath(fe), Message: describe(fe)})
		}
	}

	problems = append(problems, s.quantityProblems()...)

	if len(problems) > 0 {
		return &PreconditionError{Phase: PhasePlanCreated, Fields: problems}
	}
	return nil
}

// quantityProblems reconciles per-SKU box totals with required quantities
func (s *Shipment) quantityProblems() []FieldProblem {
	required := make(map[string]int, len(s.Items))
	for _, it := range s.Items {
		required[it.SKU] += it.Quantity
	}
	packed := make(map[string]int)
	for _, b := range s.Boxes {
		for _, it := range b.Items {
			packed[it.SKU] += it.Quantity
		}
	}

	var problems []FieldProblem
	for _, sku := range sortedKeys(required) {
		if packed[sku] != required[sku] {
			problems = append(problems, FieldProblem{
				Field:   "items[" + sku + "]",
				Message: fmt.Sprintf("boxes hold %d units, %d required", packed[sku], required[sku]),
			})
		}
	}
	for _, sku := range sortedKeys(packed) {
		if _, ok := required[sku]; !ok {
			problems = append(problems, FieldProblem{
				Field:   "boxes[" + sku + "]",
				Message: "is packed but not a line item",
			})
		}
	}
	return problems
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entry"
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must be " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
