package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest movimiento manual o ajuste.
type RegisterMovementRequest struct {
	ArticleID      string          `json:"article_id"`
	WarehouseID    *string         `json:"warehouse_id"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	Direction      string          `json:"direction"` // IN | OUT
	Reason         string          `json:"reason"`    // MANUAL | ADJUSTMENT_IN | ADJUSTMENT_OUT
	DocumentID     string          `json:"document_id"`
	Override       bool            `json:"override"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// MovementResponse movimiento registrado (o reproducido) con el saldo resultante.
type MovementResponse struct {
	ID             string          `json:"id"`
	ArticleID      string          `json:"article_id"`
	WarehouseID    *string         `json:"warehouse_id,omitempty"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	BaseQuantity   decimal.Decimal `json:"base_quantity"`
	Direction      string          `json:"direction"`
	Reason         string          `json:"reason"`
	DocumentType   string          `json:"document_type"`
	DocumentID     string          `json:"document_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Override       bool            `json:"override"`
	CreatedAt      time.Time       `json:"created_at"`
	CreatedBy      string          `json:"created_by,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	Replayed       bool            `json:"replayed"`
}

// SaleLineRequest línea de venta.
type SaleLineRequest struct {
	ArticleID string          `json:"article_id"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// SaleRequest venta pagada o anulada que debe reflejarse en existencias.
type SaleRequest struct {
	WarehouseID  *string           `json:"warehouse_id"`
	DocumentType string            `json:"document_type"`
	Override     bool              `json:"override"`
	Lines        []SaleLineRequest `json:"lines"`
}

// SaleMovementsResponse movimientos generados por una venta.
type SaleMovementsResponse struct {
	SaleID    string             `json:"sale_id"`
	Movements []MovementResponse `json:"movements"`
}

// FulfillmentRequest líneas a verificar contra el saldo de la bodega.
type FulfillmentRequest struct {
	WarehouseID *string           `json:"warehouse_id"`
	Lines       []SaleLineRequest `json:"lines"`
}

// ComponentAvailabilityDTO disponibilidad de un componente de combo.
type ComponentAvailabilityDTO struct {
	ArticleID   string          `json:"article_id"`
	Required    decimal.Decimal `json:"required"`
	Available   decimal.Decimal `json:"available"`
	Shortage    decimal.Decimal `json:"shortage"`
	Fulfillable bool            `json:"fulfillable"`
}

// LineAvailabilityDTO resultado por línea.
type LineAvailabilityDTO struct {
	Index       int                        `json:"index"`
	ArticleID   string                     `json:"article_id"`
	Fulfillable bool                       `json:"fulfillable"`
	Reason      string                     `json:"reason,omitempty"`
	Required    decimal.Decimal            `json:"required"`
	Available   decimal.Decimal            `json:"available"`
	Shortage    decimal.Decimal            `json:"shortage"`
	Components  []ComponentAvailabilityDTO `json:"components,omitempty"`
}

// FulfillmentResponse OK solo si todas las líneas son despachables.
type FulfillmentResponse struct {
	OK    bool                  `json:"ok"`
	Lines []LineAvailabilityDTO `json:"lines"`
}

// KardexRowDTO fila del kardex.
type KardexRowDTO struct {
	MovementID     string          `json:"movement_id"`
	Timestamp      time.Time       `json:"timestamp"`
	WarehouseID    string          `json:"warehouse_id,omitempty"`
	DocumentType   string          `json:"document_type"`
	DocumentID     string          `json:"document_id,omitempty"`
	Reason         string          `json:"reason"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	BaseQuantity   decimal.Decimal `json:"base_quantity"`
	Direction      string          `json:"direction"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// KardexResponse página del kardex.
type KardexResponse struct {
	ArticleID       string          `json:"article_id"`
	WarehouseID     *string         `json:"warehouse_id,omitempty"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	Rows            []KardexRowDTO  `json:"rows"`
	Page            int             `json:"page"`
	PageSize        int             `json:"page_size"`
	Total           int             `json:"total"`
}

// EstimateResponse proyección de reposición.
type EstimateResponse struct {
	ArticleID             string          `json:"article_id"`
	SKU                   string          `json:"sku"`
	Name                  string          `json:"name"`
	WindowUsed            int             `json:"window_used"`
	AvgDaily              decimal.Decimal `json:"avg_daily"`
	Volatility            decimal.Decimal `json:"volatility"`
	OnHand                decimal.Decimal `json:"on_hand"`
	OnOrder               decimal.Decimal `json:"on_order"`
	DaysOfStock           decimal.Decimal `json:"days_of_stock"`
	ReorderPoint          decimal.Decimal `json:"reorder_point"`
	SuggestedQty          decimal.Decimal `json:"suggested_qty"`
	ProjectedStockoutDate *string         `json:"projected_stockout_date"`
	Signal                string          `json:"signal"`
	LeadTimeDays          int             `json:"lead_time_days"`
	SafetyStockDays       int             `json:"safety_stock_days"`
	CoverageDays          int             `json:"coverage_days"`
	SettingsScope         string          `json:"settings_scope"`
	StatsCached           bool            `json:"stats_cached"`
	LastSaleAt            *time.Time      `json:"last_sale_at,omitempty"`
}

// EstimatorSettingsRequest actualización de configuración.
type EstimatorSettingsRequest struct {
	Scope           string  `json:"scope"` // company | supplier
	SupplierID      *string `json:"supplier_id"`
	LeadTimeDays    int     `json:"lead_time_days"`
	SafetyStockDays int     `json:"safety_stock_days"`
	CoverageDays    int     `json:"coverage_days"`
}

// EstimatorSettingsResponse configuración vigente para el alcance pedido.
type EstimatorSettingsResponse struct {
	Scope           string     `json:"scope"`
	SupplierID      *string    `json:"supplier_id,omitempty"`
	LeadTimeDays    int        `json:"lead_time_days"`
	SafetyStockDays int        `json:"safety_stock_days"`
	CoverageDays    int        `json:"coverage_days"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// VerifyBalanceRequest clave de saldo a conciliar contra el ledger.
type VerifyBalanceRequest struct {
	ArticleID   string  `json:"article_id"`
	WarehouseID *string `json:"warehouse_id"`
}

// ErrorResponse cuerpo de error HTTP. Code es estable (VALIDATION, CONFLICT, INSUFFICIENT_STOCK, BUSY, ...).
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
