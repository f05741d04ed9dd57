package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// MovementFilter filtro del ledger. WarehouseID nil con AllWarehouses=false apunta al saldo sin bodega;
// AllWarehouses=true agrega todas las bodegas del artículo.
// From es inclusivo y Before exclusivo. Orden siempre (created_at, seq): seq es el orden de inserción.
type MovementFilter struct {
	CompanyID     string
	ArticleID     string
	WarehouseID   *string
	AllWarehouses bool
	From          *time.Time
	Before        *time.Time
	Limit         int // 0 = sin límite
	Offset        int
}

// DailyConsumption consumo diario neto de ventas (excluye ventas revertidas).
type DailyConsumption struct {
	Day      time.Time
	Quantity decimal.Decimal
}

// StockMovementRepository puerto de persistencia del ledger. Solo inserta: no hay update ni delete.
type StockMovementRepository interface {
	// Create inserta el movimiento. Devuelve domain.ErrDuplicate si la clave de idempotencia ya existe.
	Create(ctx context.Context, movement *entity.StockMovement) error
	// GetByIdempotencyKey devuelve nil, nil si no existe.
	GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entity.StockMovement, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	Count(ctx context.Context, filter MovementFilter) (int, error)
	// SumSigned suma con signo las cantidades base de los movimientos que cumplen el filtro
	// (respetando Limit/Offset sobre el orden cronológico).
	SumSigned(ctx context.Context, filter MovementFilter) (decimal.Decimal, error)
	// ConsumptionSince consumo diario por ventas desde `since`, sin documentos revertidos.
	ConsumptionSince(ctx context.Context, companyID, articleID string, since time.Time) ([]DailyConsumption, error)
	// LastConsumptionAt fecha de la última venta no revertida, nil si nunca se vendió.
	LastConsumptionAt(ctx context.Context, companyID, articleID string) (*time.Time, error)
}
