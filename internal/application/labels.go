package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/errors"
)

// RequestLabels fetches labels for one split or for every split of the
// shipment. Each split is handled on its own; a failure is reported in that
// split's result and does not stop the others.
func (o *Orchestrator) RequestLabels(ctx context.Context, cmd RequestLabelsCommand) (*LabelsResultDTO, error) {
	shipment, err := o.shipments.FindByID(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	if shipment == nil {
		return nil, errors.ErrNotFoundWithID("shipment", cmd.ShipmentID)
	}
	if shipment.Workflow.PlanID == "" {
		return nil, fmt.Errorf("%w: shipment has no inbound plan", domain.ErrLabelsNotAvailable)
	}

	splits, err := o.splits.FindByShipmentID(ctx, shipment.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load splits: %w", err)
	}
	if cmd.RemoteShipmentID != "" {
		var selected []*domain.Split
		for _, s := range splits {
			if s.RemoteShipmentID == cmd.RemoteShipmentID {
				selected = append(selected, s)
			}
		}
		if len(selected) == 0 {
			return nil, domain.ErrSplitNotFound
		}
		splits = selected
	}

	pageType, labelType := cmd.PageType, cmd.LabelType
	if pageType == "" {
		pageType = DefaultPageType
	}
	if labelType == "" {
		labelType = DefaultLabelType
	}

	result := &LabelsResultDTO{ShipmentID: shipment.ShipmentID, Results: make([]LabelResultDTO, 0, len(splits))}
	for _, split := range splits {
		result.Results = append(result.Results, o.requestSplitLabels(ctx, shipment.Workflow.PlanID, split, pageType, labelType))
	}
	return result, nil
}

func (o *Orchestrator) requestSplitLabels(ctx context.Context, planID string, split *domain.Split, pageType, labelType string) LabelResultDTO {
	res := LabelResultDTO{RemoteShipmentID: split.RemoteShipmentID}
	log := o.logger.WithContext(ctx).WithShipment(split.ShipmentID)

	if !split.CanRequestLabels() {
		res.Status = LabelResultSkipped
		res.Error = fmt.Sprintf("split is %s; transport must be confirmed first", split.Status)
		return res
	}

	label, err := o.network.GetLabels(ctx, domain.LabelRequest{
		PlanID:           planID,
		RemoteShipmentID: split.RemoteShipmentID,
		PageType:         pageType,
		LabelType:        labelType,
	})
	if err == nil {
		err = split.LabelsReady(label.URL)
	}
	if err != nil {
		o.metrics.RecordLabelRequest(false)
		log.WithError(err).Warn("Label request failed", "remoteShipmentId", split.RemoteShipmentID)
		split.RecordFailure(err.Error())
		if saveErr := o.splits.Save(ctx, split); saveErr != nil {
			log.WithError(saveErr).Error("Failed to persist split error", "remoteShipmentId", split.RemoteShipmentID)
		}
		res.Status = LabelResultFailed
		res.Error = err.Error()
		return res
	}

	if err := o.splits.Save(ctx, split); err != nil {
		o.metrics.RecordLabelRequest(false)
		res.Status = LabelResultFailed
		res.Error = err.Error()
		return res
	}

	o.metrics.RecordLabelRequest(true)
	res.Status = LabelResultReady
	res.LabelURL = label.URL
	return res
}
