package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// DemandStatsRepository caché de estadísticas de demanda. RebuildStats es el único escritor.
type DemandStatsRepository interface {
	Get(ctx context.Context, companyID, articleID string) (*entity.DemandStats, error)
	Upsert(ctx context.Context, stats *entity.DemandStats) error
}

// EstimatorSettingsRepository configuración del estimador por empresa y proveedor.
// Get devuelve nil, nil si no hay fila para el alcance pedido.
type EstimatorSettingsRepository interface {
	Get(ctx context.Context, companyID string, supplierID *string) (*entity.EstimatorSettings, error)
	Upsert(ctx context.Context, settings *entity.EstimatorSettings) error
}

// OnOrderRepository cantidades pedidas a proveedor y aún no recibidas (las mantiene compras).
type OnOrderRepository interface {
	OnOrder(ctx context.Context, companyID, articleID string, supplierID *string) (decimal.Decimal, error)
}
