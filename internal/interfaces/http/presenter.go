package http

import (
	"github.com/jhoicas/inventario-kardex/internal/application/dto"
	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

func movementResponse(r *app.MovementResult) dto.MovementResponse {
	m := r.Movement
	out := dto.MovementResponse{
		ID:             m.ID,
		ArticleID:      m.ArticleID,
		WarehouseID:    m.WarehouseID,
		Unit:           m.Unit,
		Quantity:       m.Quantity,
		BaseQuantity:   m.BaseQuantity,
		Direction:      string(m.Direction),
		Reason:         string(m.Reason),
		DocumentType:   m.DocumentType,
		DocumentID:     m.DocumentID,
		IdempotencyKey: m.IdempotencyKey,
		Override:       m.Override,
		CreatedAt:      m.CreatedAt,
		CreatedBy:      m.CreatedBy,
		Replayed:       r.Replayed,
	}
	if r.Balance != nil {
		out.Balance = r.Balance.Quantity
	}
	return out
}

func movementsResponse(saleID string, results []*app.MovementResult) dto.SaleMovementsResponse {
	out := dto.SaleMovementsResponse{SaleID: saleID, Movements: make([]dto.MovementResponse, 0, len(results))}
	for _, r := range results {
		out.Movements = append(out.Movements, movementResponse(r))
	}
	return out
}

func fulfillmentResponse(res *app.FulfillmentResult) dto.FulfillmentResponse {
	out := dto.FulfillmentResponse{OK: res.OK, Lines: make([]dto.LineAvailabilityDTO, 0, len(res.Lines))}
	for _, l := range res.Lines {
		line := dto.LineAvailabilityDTO{
			Index:       l.Index,
			ArticleID:   l.ArticleID,
			Fulfillable: l.Fulfillable,
			Reason:      l.Reason,
			Required:    l.Required,
			Available:   l.Available,
			Shortage:    l.Shortage,
		}
		for _, c := range l.Components {
			line.Components = append(line.Components, dto.ComponentAvailabilityDTO{
				ArticleID:   c.ArticleID,
				Required:    c.Required,
				Available:   c.Available,
				Shortage:    c.Shortage,
				Fulfillable: c.Fulfillable,
			})
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func kardexResponse(h *app.History) dto.KardexResponse {
	out := dto.KardexResponse{
		ArticleID:       h.ArticleID,
		WarehouseID:     h.WarehouseID,
		StartingBalance: h.StartingBalance,
		CurrentBalance:  h.CurrentBalance,
		Rows:            make([]dto.KardexRowDTO, 0, len(h.Rows)),
		Page:            h.Page,
		PageSize:        h.PageSize,
		Total:           h.Total,
	}
	for _, r := range h.Rows {
		out.Rows = append(out.Rows, dto.KardexRowDTO{
			MovementID:     r.MovementID,
			Timestamp:      r.Timestamp,
			WarehouseID:    r.WarehouseID,
			DocumentType:   r.DocumentType,
			DocumentID:     r.DocumentID,
			Reason:         string(r.Reason),
			Unit:           r.Unit,
			Quantity:       r.Quantity,
			BaseQuantity:   r.BaseQuantity,
			Direction:      string(r.Direction),
			RunningBalance: r.RunningBalance,
		})
	}
	return out
}

func estimateResponse(e *app.Estimate) dto.EstimateResponse {
	out := dto.EstimateResponse{
		ArticleID:       e.ArticleID,
		SKU:             e.SKU,
		Name:            e.Name,
		WindowUsed:      int(e.WindowUsed),
		AvgDaily:        e.AvgDaily,
		Volatility:      e.Volatility,
		OnHand:          e.OnHand,
		OnOrder:         e.OnOrder,
		DaysOfStock:     e.DaysOfStock,
		ReorderPoint:    e.ReorderPoint,
		SuggestedQty:    e.SuggestedQty,
		Signal:          string(e.Signal),
		LeadTimeDays:    e.LeadTimeDays,
		SafetyStockDays: e.SafetyStockDays,
		CoverageDays:    e.CoverageDays,
		SettingsScope:   e.SettingsScope,
		StatsCached:     e.StatsCached,
		LastSaleAt:      e.LastSaleAt,
	}
	if e.ProjectedStockoutDate != nil {
		d := e.ProjectedStockoutDate.Format(dateLayout)
		out.ProjectedStockoutDate = &d
	}
	return out
}

func settingsResponse(s *entity.EstimatorSettings) dto.EstimatorSettingsResponse {
	out := dto.EstimatorSettingsResponse{
		Scope:           s.Scope(),
		SupplierID:      s.SupplierID,
		LeadTimeDays:    s.LeadTimeDays,
		SafetyStockDays: s.SafetyStockDays,
		CoverageDays:    s.CoverageDays,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}
