package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

// DefaultSaleDocumentType tipo de documento cuando la venta no lo informa.
const DefaultSaleDocumentType = "SALE"

// plannedMovement movimiento derivado de una línea de venta (directo o de componente de combo).
type plannedMovement struct {
	line       int
	article    *entity.Article
	unit       string
	quantity   decimal.Decimal
	baseQty    decimal.Decimal
	reason     entity.Reason
	key        string
	consumeKey string // clave del consumo original; solo se usa al revertir
}

// ApplySaleConsumption descuenta el inventario de una venta pagada.
// Cada línea simple genera un SALE_OUT; cada línea de combo genera un COMBO_CONSUME por componente.
// Toda la venta se aplica en una transacción: si una línea falla no queda ningún movimiento.
// Reintentar con la misma venta es seguro: las claves son deterministas.
func (uc *LedgerUseCase) ApplySaleConsumption(ctx context.Context, sale *entity.Sale) (results []*MovementResult, err error) {
	ctx, span := tracer.Start(ctx, "ledger.ApplySaleConsumption", saleAttributes(sale))
	defer func() { endSpan(span, err) }()

	plan, err := uc.planSale(ctx, sale, domaininv.VerbConsume)
	if err != nil {
		return nil, err
	}
	results, err = uc.runSalePlan(ctx, sale, plan, false)
	if err != nil {
		uc.log.Warn().Err(err).Str("company_id", sale.CompanyID).Str("sale_id", sale.ID).Msg("consumo de venta rechazado")
		return nil, err
	}
	uc.logSale("consumo de venta aplicado", sale, results)
	return results, nil
}

// ApplySaleReversal devuelve al inventario lo consumido por una venta anulada.
// Cada movimiento de consumo encontrado se compensa con un IN por la misma cantidad base;
// las líneas sin consumo previo se omiten.
func (uc *LedgerUseCase) ApplySaleReversal(ctx context.Context, sale *entity.Sale) (results []*MovementResult, err error) {
	ctx, span := tracer.Start(ctx, "ledger.ApplySaleReversal", saleAttributes(sale))
	defer func() { endSpan(span, err) }()

	plan, err := uc.planSale(ctx, sale, domaininv.VerbRevert)
	if err != nil {
		return nil, err
	}
	results, err = uc.runSalePlan(ctx, sale, plan, true)
	if err != nil {
		uc.log.Warn().Err(err).Str("company_id", sale.CompanyID).Str("sale_id", sale.ID).Msg("reverso de venta rechazado")
		return nil, err
	}
	uc.logSale("reverso de venta aplicado", sale, results)
	return results, nil
}

func (uc *LedgerUseCase) runSalePlan(ctx context.Context, sale *entity.Sale, plan []plannedMovement, reversal bool) ([]*MovementResult, error) {
	var results []*MovementResult
	run := func() error {
		now := time.Now().UTC()
		return uc.txRunner.Run(ctx, func(
			movRepo repository.StockMovementRepository,
			balanceRepo repository.StockBalanceRepository,
			articleRepo repository.ArticleRepository,
		) error {
			results = make([]*MovementResult, 0, len(plan))
			for _, p := range plan {
				in, baseQty, skip, err := saleMovementInput(ctx, movRepo, sale, p, reversal)
				if err != nil {
					return err
				}
				if skip {
					continue
				}
				res, err := applyMovement(ctx, movRepo, balanceRepo, articleRepo, in, baseQty, now)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			return nil
		})
	}
	err := run()
	if errors.Is(err, domain.ErrDuplicate) {
		// Una entrega concurrente de la misma venta ganó la carrera; el reintento la ve y repite sus resultados.
		err = run()
	}
	return results, err
}

// saleMovementInput arma la entrada de applyMovement. En el reverso copia unidad y cantidades
// del consumo original para devolver exactamente lo que salió aunque el catálogo haya cambiado.
func saleMovementInput(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	sale *entity.Sale,
	p plannedMovement,
	reversal bool,
) (MovementInput, decimal.Decimal, bool, error) {
	in := MovementInput{
		CompanyID:      sale.CompanyID,
		ArticleID:      p.article.ID,
		WarehouseID:    sale.WarehouseID,
		Unit:           p.unit,
		Quantity:       p.quantity,
		Direction:      entity.DirectionOut,
		Reason:         p.reason,
		DocumentType:   saleDocumentType(sale),
		DocumentID:     sale.ID,
		Override:       sale.Override,
		IdempotencyKey: p.key,
		Actor:          sale.Actor,
	}
	if !reversal {
		return in, p.baseQty, false, nil
	}
	orig, err := movRepo.GetByIdempotencyKey(ctx, sale.CompanyID, p.consumeKey)
	if err != nil {
		return in, decimal.Zero, false, err
	}
	if orig == nil {
		return in, decimal.Zero, true, nil
	}
	in.ArticleID = orig.ArticleID
	in.WarehouseID = orig.WarehouseID
	in.Unit = orig.Unit
	in.Quantity = orig.Quantity
	in.Direction = entity.DirectionIn
	return in, orig.BaseQuantity, false, nil
}

// planSale valida la venta, carga el catálogo y deriva los movimientos con sus claves.
func (uc *LedgerUseCase) planSale(ctx context.Context, sale *entity.Sale, verb domaininv.KeyVerb) ([]plannedMovement, error) {
	if sale == nil || sale.ID == "" {
		return nil, domain.Invalid("venta sin identificador")
	}
	if sale.CompanyID == "" {
		return nil, domain.Invalid("company_id requerido")
	}
	if sale.WarehouseID != nil && *sale.WarehouseID == "" {
		return nil, domain.Invalid("warehouse_id vacío")
	}
	if len(sale.Lines) == 0 {
		return nil, domain.Invalid("la venta %s no tiene líneas", sale.ID)
	}

	catalog, err := uc.loadSaleCatalog(ctx, sale)
	if err != nil {
		return nil, err
	}
	lookup := func(id string) *entity.Article { return catalog[id] }

	directReason, componentReason := entity.ReasonSaleOut, entity.ReasonComboConsume
	if verb == domaininv.VerbRevert {
		directReason, componentReason = entity.ReasonReturnIn, entity.ReasonComboRevert
	}

	var plan []plannedMovement
	seen := make(map[string]bool)
	add := func(p plannedMovement) error {
		if len(p.key) > domaininv.MaxIdempotencyKeyLength {
			return domain.Invalid("clave de idempotencia demasiado larga para la venta %s", sale.ID)
		}
		if seen[p.key] {
			return domain.Invalid("componente repetido en la línea %d de la venta %s", p.line, sale.ID)
		}
		seen[p.key] = true
		plan = append(plan, p)
		return nil
	}

	for i, line := range sale.Lines {
		article := catalog[line.ArticleID]
		if article == nil {
			return nil, domain.Conflict("el artículo %s de la línea %d no existe", line.ArticleID, i)
		}
		switch {
		case article.IsService:
			continue
		case article.IsComposite():
			lineBase, err := domaininv.ToBaseUnit(article, line.Unit, line.Quantity)
			if err != nil {
				return nil, err
			}
			demands, err := domaininv.ExpandComposite(article, lineBase, lookup)
			if err != nil {
				return nil, err
			}
			for _, d := range demands {
				err := add(plannedMovement{
					line:       i,
					article:    d.Component,
					unit:       baseUnit(d.Component),
					quantity:   d.Required,
					baseQty:    d.Required,
					reason:     componentReason,
					key:        domaininv.ComponentKey(verb, sale.ID, i, d.Component.ID),
					consumeKey: domaininv.ComponentKey(domaininv.VerbConsume, sale.ID, i, d.Component.ID),
				})
				if err != nil {
					return nil, err
				}
			}
		case !article.StockControlled:
			continue
		default:
			base, err := domaininv.ToBaseUnit(article, line.Unit, line.Quantity)
			if err != nil {
				return nil, err
			}
			err = add(plannedMovement{
				line:       i,
				article:    article,
				unit:       domaininv.CanonicalUnit(line.Unit),
				quantity:   line.Quantity.Round(domaininv.QuantityScale),
				baseQty:    base,
				reason:     directReason,
				key:        domaininv.SaleLineKey(verb, sale.ID, i),
				consumeKey: domaininv.SaleLineKey(domaininv.VerbConsume, sale.ID, i),
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return plan, nil
}

func (uc *LedgerUseCase) loadSaleCatalog(ctx context.Context, sale *entity.Sale) (map[string]*entity.Article, error) {
	ids := make([]string, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		if l.ArticleID == "" {
			return nil, domain.Invalid("línea de venta sin artículo")
		}
		ids = append(ids, l.ArticleID)
	}
	return loadArticlesWithComponents(ctx, uc.articleRepo, sale.CompanyID, ids)
}

func baseUnit(a *entity.Article) string {
	if a.BaseUnit == "" {
		return domaininv.UnitPiece
	}
	return domaininv.CanonicalUnit(a.BaseUnit)
}

func saleDocumentType(sale *entity.Sale) string {
	if sale.DocumentType == "" {
		return DefaultSaleDocumentType
	}
	return sale.DocumentType
}

func saleAttributes(sale *entity.Sale) trace.SpanStartOption {
	if sale == nil {
		return trace.WithAttributes()
	}
	return trace.WithAttributes(
		attribute.String("company_id", sale.CompanyID),
		attribute.String("sale_id", sale.ID),
		attribute.Int("lines", len(sale.Lines)),
	)
}

func (uc *LedgerUseCase) logSale(msg string, sale *entity.Sale, results []*MovementResult) {
	replayed := 0
	for _, r := range results {
		if r.Replayed {
			replayed++
		}
	}
	uc.log.Info().
		Str("company_id", sale.CompanyID).
		Str("sale_id", sale.ID).
		Int("movements", len(results)).
		Int("replayed", replayed).
		Msg(msg)
}
