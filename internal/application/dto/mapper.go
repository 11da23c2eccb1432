package dto

import (
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// DateLayout formato de fechas de calendario (vencimiento).
const DateLayout = "2006-01-02"

// ToLocationResponse mapea la entidad a su salida.
func ToLocationResponse(l *entity.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		CompanyID: l.CompanyID,
		Code:      l.Code,
		Name:      l.Name,
		IsPrimary: l.IsPrimary,
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// ToItemResponse mapea la entidad a su salida.
func ToItemResponse(i *entity.Item) ItemResponse {
	out := ItemResponse{
		ID:             i.ID,
		CompanyID:      i.CompanyID,
		Code:           i.Code,
		Name:           i.Name,
		Description:    i.Description,
		Category:       i.Category,
		Unit:           i.Unit,
		MinLevel:       i.Defaults.MinLevel,
		MaxLevel:       i.Defaults.MaxLevel,
		UnitCost:       i.UnitCost,
		BatchID:        i.BatchID,
		Supplier:       i.Supplier,
		SupplierCode:   i.SupplierCode,
		AllowBackorder: i.AllowBackorder,
		Active:         i.Active,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
	if i.ExpiryDate != nil {
		out.ExpiryDate = i.ExpiryDate.Format(DateLayout)
	}
	if len(i.Thresholds) > 0 {
		out.Thresholds = make(map[string]ThresholdDTO, len(i.Thresholds))
		for locID, t := range i.Thresholds {
			out.Thresholds[locID] = ThresholdDTO{MinLevel: t.MinLevel, MaxLevel: t.MaxLevel}
		}
	}
	return out
}

// ToMovementResponse mapea una fila del libro.
func ToMovementResponse(m *entity.Movement) MovementResponse {
	out := MovementResponse{
		ID:                m.ID,
		TransferID:        m.TransferID,
		ItemID:            m.ItemID,
		LocationID:        m.LocationID,
		CounterLocationID: m.CounterLocationID,
		Delta:             m.Delta,
		Type:              m.Type,
		UnitCost:          m.UnitCost,
		ActorID:           m.ActorID,
		Notes:             m.Notes,
		Sequence:          m.Sequence,
		CreatedAt:         m.CreatedAt,
	}
	if m.Reference != nil {
		out.Reference = &ReferenceDTO{Kind: m.Reference.Kind, ID: m.Reference.ID}
	}
	return out
}

// ToNotificationResponse mapea una alerta.
func ToNotificationResponse(n *entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		ItemID:         n.ItemID,
		LocationID:     n.LocationID,
		Kind:           n.Kind,
		Priority:       n.Priority,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
		AcknowledgedAt: n.AcknowledgedAt,
		ResolvedAt:     n.ResolvedAt,
	}
}

// ToNotificationEvent arma el mensaje del stream.
func ToNotificationEvent(event string, n *entity.Notification) NotificationEvent {
	return NotificationEvent{Event: event, CompanyID: n.CompanyID, Notification: ToNotificationResponse(n)}
}
