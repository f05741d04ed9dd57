package inventory

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

// Motivos por los que una línea no se puede despachar.
const (
	ReasonArticleNotFound   = "ARTICLE_NOT_FOUND"
	ReasonInsufficientStock = "INSUFFICIENT_STOCK"
	ReasonInvalidQuantity   = "INVALID_QUANTITY"
	ReasonInvalidComposite  = "INVALID_COMPOSITE"
)

// FulfillmentUseCase verifica si un pedido se puede despachar con el inventario actual.
// Solo lee: no bloquea filas ni escribe.
type FulfillmentUseCase struct {
	articleRepo repository.ArticleRepository
	balanceRepo repository.StockBalanceRepository
	log         zerolog.Logger
}

// NewFulfillmentUseCase construye el caso de uso.
func NewFulfillmentUseCase(articleRepo repository.ArticleRepository, balanceRepo repository.StockBalanceRepository, log zerolog.Logger) *FulfillmentUseCase {
	return &FulfillmentUseCase{
		articleRepo: articleRepo,
		balanceRepo: balanceRepo,
		log:         log.With().Str("component", "fulfillment").Logger(),
	}
}

// FulfillmentLine línea a verificar.
type FulfillmentLine struct {
	ArticleID string
	Unit      string
	Quantity  decimal.Decimal
}

// ComponentAvailability disponibilidad de un componente de combo.
type ComponentAvailability struct {
	ArticleID   string
	Required    decimal.Decimal
	Available   decimal.Decimal
	Shortage    decimal.Decimal
	Fulfillable bool
}

// LineAvailability resultado por línea. Para combos, Required/Available quedan en cero y el
// detalle va en Components.
type LineAvailability struct {
	Index       int
	ArticleID   string
	Fulfillable bool
	Reason      string
	Required    decimal.Decimal
	Available   decimal.Decimal
	Shortage    decimal.Decimal
	Components  []ComponentAvailability
}

// FulfillmentResult OK es true solo si todas las líneas son despachables.
type FulfillmentResult struct {
	OK    bool
	Lines []LineAvailability
}

// CanFulfill evalúa cada línea contra el saldo de la bodega. Nunca falla por motivos de negocio:
// artículos inexistentes o faltantes se reportan en el resultado.
// Cuando varias líneas (o componentes) usan el mismo artículo, cada una ve el saldo ya comprometido
// por las anteriores.
func (uc *FulfillmentUseCase) CanFulfill(ctx context.Context, companyID string, warehouseID *string, lines []FulfillmentLine) (res *FulfillmentResult, err error) {
	ctx, span := tracer.Start(ctx, "fulfillment.CanFulfill", trace.WithAttributes(
		attribute.String("company_id", companyID),
		attribute.Int("lines", len(lines)),
	))
	defer func() { endSpan(span, err) }()

	if companyID == "" {
		return nil, domain.Invalid("company_id requerido")
	}
	if warehouseID != nil && *warehouseID == "" {
		return nil, domain.Invalid("warehouse_id vacío")
	}

	catalog, err := uc.loadCatalog(ctx, companyID, lines)
	if err != nil {
		return nil, err
	}
	lookup := func(id string) *entity.Article { return catalog[id] }

	committed := make(map[string]decimal.Decimal)
	available := func(articleID string) (decimal.Decimal, error) {
		bal, err := uc.balanceRepo.Get(ctx, entity.BalanceKey{CompanyID: companyID, ArticleID: articleID, WarehouseID: warehouseID})
		if err != nil {
			return decimal.Zero, err
		}
		return bal.Quantity.Sub(committed[articleID]), nil
	}

	res = &FulfillmentResult{OK: true, Lines: make([]LineAvailability, 0, len(lines))}
	for i, line := range lines {
		la := LineAvailability{Index: i, ArticleID: line.ArticleID, Fulfillable: true}
		article := catalog[line.ArticleID]
		switch {
		case article == nil:
			la.Fulfillable, la.Reason = false, ReasonArticleNotFound
		case article.IsService:
		case article.IsComposite():
			if err := uc.checkComposite(&la, article, line, lookup, available, committed); err != nil {
				return nil, err
			}
		case !article.StockControlled:
		default:
			required, convErr := domaininv.ToBaseUnit(article, line.Unit, line.Quantity)
			if convErr != nil {
				la.Fulfillable, la.Reason = false, ReasonInvalidQuantity
				break
			}
			avail, err := available(article.ID)
			if err != nil {
				return nil, err
			}
			la.Required, la.Available = required, avail
			la.Shortage = shortage(required, avail)
			if la.Shortage.IsPositive() {
				la.Fulfillable, la.Reason = false, ReasonInsufficientStock
			}
			committed[article.ID] = committed[article.ID].Add(required)
		}
		if !la.Fulfillable {
			res.OK = false
		}
		res.Lines = append(res.Lines, la)
	}

	uc.log.Debug().Str("company_id", companyID).Bool("ok", res.OK).Int("lines", len(lines)).Msg("verificación de despacho")
	return res, nil
}

func (uc *FulfillmentUseCase) checkComposite(
	la *LineAvailability,
	combo *entity.Article,
	line FulfillmentLine,
	lookup func(string) *entity.Article,
	available func(string) (decimal.Decimal, error),
	committed map[string]decimal.Decimal,
) error {
	lineBase, err := domaininv.ToBaseUnit(combo, line.Unit, line.Quantity)
	if err != nil {
		la.Fulfillable, la.Reason = false, ReasonInvalidQuantity
		return nil
	}
	demands, err := domaininv.ExpandComposite(combo, lineBase, lookup)
	if err != nil {
		la.Fulfillable = false
		la.Reason = ReasonInvalidComposite
		if domain.KindOf(err) == domain.KindConflict {
			la.Reason = ReasonArticleNotFound
		}
		return nil
	}
	for _, d := range demands {
		avail, err := available(d.Component.ID)
		if err != nil {
			return err
		}
		ca := ComponentAvailability{
			ArticleID:   d.Component.ID,
			Required:    d.Required,
			Available:   avail,
			Shortage:    shortage(d.Required, avail),
			Fulfillable: true,
		}
		if ca.Shortage.IsPositive() {
			ca.Fulfillable = false
			la.Fulfillable, la.Reason = false, ReasonInsufficientStock
		}
		committed[d.Component.ID] = committed[d.Component.ID].Add(d.Required)
		la.Components = append(la.Components, ca)
	}
	return nil
}

func (uc *FulfillmentUseCase) loadCatalog(ctx context.Context, companyID string, lines []FulfillmentLine) (map[string]*entity.Article, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.ArticleID != "" {
			ids = append(ids, l.ArticleID)
		}
	}
	return loadArticlesWithComponents(ctx, uc.articleRepo, companyID, ids)
}

// loadArticlesWithComponents carga los artículos pedidos y, en una segunda lectura, los componentes
// de los combos que no estuvieran ya cargados. Nunca devuelve un mapa nil.
func loadArticlesWithComponents(ctx context.Context, repo repository.ArticleRepository, companyID string, ids []string) (map[string]*entity.Article, error) {
	catalog, err := repo.GetMany(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = make(map[string]*entity.Article)
	}
	var componentIDs []string
	for _, a := range catalog {
		for _, c := range a.Components {
			if _, ok := catalog[c.ArticleID]; !ok {
				componentIDs = append(componentIDs, c.ArticleID)
			}
		}
	}
	if len(componentIDs) == 0 {
		return catalog, nil
	}
	components, err := repo.GetMany(ctx, companyID, componentIDs)
	if err != nil {
		return nil, err
	}
	for id, a := range components {
		catalog[id] = a
	}
	return catalog, nil
}

func shortage(required, available decimal.Decimal) decimal.Decimal {
	return decimal.Max(required.Sub(available), decimal.Zero)
}
