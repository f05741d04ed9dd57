package http

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-kardex/internal/application/dto"
	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
)

const dateLayout = "2006-01-02"

// LedgerService operaciones de escritura del ledger.
type LedgerService interface {
	RegisterManualMovement(ctx context.Context, in app.MovementInput) (*app.MovementResult, error)
	ApplySaleConsumption(ctx context.Context, sale *entity.Sale) ([]*app.MovementResult, error)
	ApplySaleReversal(ctx context.Context, sale *entity.Sale) ([]*app.MovementResult, error)
}

// FulfillmentService verificación de despacho.
type FulfillmentService interface {
	CanFulfill(ctx context.Context, companyID string, warehouseID *string, lines []app.FulfillmentLine) (*app.FulfillmentResult, error)
}

// HistoryService kardex y conciliación.
type HistoryService interface {
	GetHistory(ctx context.Context, q app.HistoryQuery) (*app.History, error)
	ExportHistory(ctx context.Context, q app.HistoryQuery, format string) (*app.ExportFile, error)
	VerifyBalance(ctx context.Context, key entity.BalanceKey) error
}

// EstimatorService proyección de demanda y configuración.
type EstimatorService interface {
	Estimate(ctx context.Context, q app.EstimateQuery) (*app.Estimate, error)
	ListReorderSignals(ctx context.Context, companyID string, window domaininv.Window) ([]*app.Estimate, error)
	RebuildStats(ctx context.Context, companyID string) (int, error)
	GetSettings(ctx context.Context, companyID, scope string, supplierID *string) (*entity.EstimatorSettings, error)
	UpdateSettings(ctx context.Context, in app.SettingsInput) (*entity.EstimatorSettings, error)
}

// InventoryHandler maneja las peticiones HTTP de existencias, kardex y reposición (protegido).
type InventoryHandler struct {
	ledger      LedgerService
	fulfillment FulfillmentService
	history     HistoryService
	estimator   EstimatorService
	log         zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger LedgerService, fulfillment FulfillmentService, history HistoryService, estimator EstimatorService, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, fulfillment: fulfillment, history: history, estimator: estimator, log: log}
}

// RegisterMovement godoc
// @Summary      Registrar ajuste manual de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "article_id, unit, quantity, direction, reason"
// @Success      201   {object}  dto.MovementResponse
// @Success      200   {object}  dto.MovementResponse  "repetición idempotente"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	res, err := h.ledger.RegisterManualMovement(c.UserContext(), app.MovementInput{
		CompanyID:      GetCompanyID(c),
		ArticleID:      in.ArticleID,
		WarehouseID:    in.WarehouseID,
		Unit:           in.Unit,
		Quantity:       in.Quantity,
		Direction:      entity.Direction(strings.ToUpper(in.Direction)),
		Reason:         entity.Reason(strings.ToUpper(in.Reason)),
		DocumentID:     in.DocumentID,
		Override:       in.Override,
		IdempotencyKey: in.IdempotencyKey,
		Actor:          GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(movementResponse(res))
}

// ConsumeSale godoc
// @Summary      Descontar existencias de una venta pagada
// @Tags         inventory
// @Security     Bearer
// @Param        id    path  string           true  "ID de la venta"
// @Param        body  body  dto.SaleRequest  true  "líneas de la venta"
// @Success      200   {object}  dto.SaleMovementsResponse
// @Router       /api/inventory/sales/{id}/consume [post]
func (h *InventoryHandler) ConsumeSale(c *fiber.Ctx) error {
	return h.applySale(c, h.ledger.ApplySaleConsumption)
}

// RevertSale godoc
// @Summary      Reintegrar existencias de una venta anulada
// @Tags         inventory
// @Security     Bearer
// @Param        id    path  string           true  "ID de la venta"
// @Param        body  body  dto.SaleRequest  true  "líneas de la venta"
// @Success      200   {object}  dto.SaleMovementsResponse
// @Router       /api/inventory/sales/{id}/revert [post]
func (h *InventoryHandler) RevertSale(c *fiber.Ctx) error {
	return h.applySale(c, h.ledger.ApplySaleReversal)
}

func (h *InventoryHandler) applySale(c *fiber.Ctx, apply func(context.Context, *entity.Sale) ([]*app.MovementResult, error)) error {
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	sale := &entity.Sale{
		ID:           c.Params("id"),
		CompanyID:    GetCompanyID(c),
		WarehouseID:  in.WarehouseID,
		DocumentType: in.DocumentType,
		Actor:        GetUserID(c),
		Override:     in.Override,
		Lines:        make([]entity.SaleLine, 0, len(in.Lines)),
	}
	for _, l := range in.Lines {
		sale.Lines = append(sale.Lines, entity.SaleLine{ArticleID: l.ArticleID, Unit: l.Unit, Quantity: l.Quantity})
	}
	results, err := apply(c.UserContext(), sale)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(movementsResponse(sale.ID, results))
}

// CanFulfill godoc
// @Summary      Verificar si hay existencias para despachar
// @Tags         inventory
// @Security     Bearer
// @Param        body  body  dto.FulfillmentRequest  true  "bodega y líneas"
// @Success      200   {object}  dto.FulfillmentResponse
// @Router       /api/inventory/fulfillment [post]
func (h *InventoryHandler) CanFulfill(c *fiber.Ctx) error {
	var in dto.FulfillmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	lines := make([]app.FulfillmentLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, app.FulfillmentLine{ArticleID: l.ArticleID, Unit: l.Unit, Quantity: l.Quantity})
	}
	res, err := h.fulfillment.CanFulfill(c.UserContext(), GetCompanyID(c), in.WarehouseID, lines)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fulfillmentResponse(res))
}

// GetKardex godoc
// @Summary      Kardex de un artículo
// @Tags         inventory
// @Security     Bearer
// @Param        id            path   string  true   "ID del artículo"
// @Param        warehouse_id  query  string  false  "Bodega. Vacío = todas"
// @Param        date_from     query  string  false  "YYYY-MM-DD inclusivo"
// @Param        date_to       query  string  false  "YYYY-MM-DD inclusivo"
// @Param        page          query  int     false  "Página (desde 1)"
// @Param        page_size     query  int     false  "Tamaño de página (máx 500)"
// @Success      200  {object}  dto.KardexResponse
// @Router       /api/inventory/articles/{id}/kardex [get]
func (h *InventoryHandler) GetKardex(c *fiber.Ctx) error {
	q, err := historyQuery(c)
	if err != nil {
		return badRequest(c, "VALIDATION", err.Error())
	}
	hist, err := h.history.GetHistory(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(kardexResponse(hist))
}

// ExportKardex godoc
// @Summary      Exportar kardex completo
// @Tags         inventory
// @Security     Bearer
// @Param        id      path   string  true  "ID del artículo"
// @Param        format  query  string  true  "csv | json | xlsx | pdf"
// @Success      200
// @Router       /api/inventory/articles/{id}/kardex/export [get]
func (h *InventoryHandler) ExportKardex(c *fiber.Ctx) error {
	q, err := historyQuery(c)
	if err != nil {
		return badRequest(c, "VALIDATION", err.Error())
	}
	file, err := h.history.ExportHistory(c.UserContext(), q, c.Query("format", "csv"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Attachment(file.FileName)
	c.Set(fiber.HeaderContentType, file.ContentType)
	return c.Send(file.Data)
}

// VerifyBalance godoc
// @Summary      Conciliar saldo contra el ledger
// @Tags         inventory
// @Security     Bearer
// @Param        body  body  dto.VerifyBalanceRequest  true  "artículo y bodega"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/verify [post]
func (h *InventoryHandler) VerifyBalance(c *fiber.Ctx) error {
	var in dto.VerifyBalanceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	key := entity.BalanceKey{CompanyID: GetCompanyID(c), ArticleID: in.ArticleID, WarehouseID: in.WarehouseID}
	if err := h.history.VerifyBalance(c.UserContext(), key); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetEstimate godoc
// @Summary      Proyección de demanda y reposición de un artículo
// @Tags         inventory
// @Security     Bearer
// @Param        id           path   string  true   "ID del artículo"
// @Param        supplier_id  query  string  false  "Proveedor para lead time y pedidos en tránsito"
// @Param        window       query  string  false  "auto | 7 | 30 | 90"
// @Success      200  {object}  dto.EstimateResponse
// @Router       /api/inventory/articles/{id}/estimate [get]
func (h *InventoryHandler) GetEstimate(c *fiber.Ctx) error {
	window, err := parseWindow(c.Query("window"))
	if err != nil {
		return badRequest(c, "VALIDATION", err.Error())
	}
	est, err := h.estimator.Estimate(c.UserContext(), app.EstimateQuery{
		CompanyID:  GetCompanyID(c),
		ArticleID:  c.Params("id"),
		SupplierID: optionalQuery(c, "supplier_id"),
		Window:     window,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(estimateResponse(est))
}

// GetReorderSignals godoc
// @Summary      Semáforo de reposición de todos los artículos
// @Description  Ordenado ROJO, AMARILLO, VERDE y luego por días de inventario ascendentes.
// @Tags         inventory
// @Security     Bearer
// @Param        window  query  string  false  "auto | 7 | 30 | 90"
// @Success      200  {array}  dto.EstimateResponse
// @Router       /api/inventory/reorder-signals [get]
func (h *InventoryHandler) GetReorderSignals(c *fiber.Ctx) error {
	window, err := parseWindow(c.Query("window"))
	if err != nil {
		return badRequest(c, "VALIDATION", err.Error())
	}
	list, err := h.estimator.ListReorderSignals(c.UserContext(), GetCompanyID(c), window)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.EstimateResponse, 0, len(list))
	for _, e := range list {
		items = append(items, estimateResponse(e))
	}
	return c.JSON(fiber.Map{"total": len(items), "signals": items})
}

// RebuildStats godoc
// @Summary      Recalcular estadísticas de demanda de la empresa
// @Tags         inventory
// @Security     Bearer
// @Success      200  {object}  map[string]int
// @Failure      409  {object}  dto.ErrorResponse  "otra reconstrucción en curso"
// @Router       /api/inventory/stats/rebuild [post]
func (h *InventoryHandler) RebuildStats(c *fiber.Ctx) error {
	n, err := h.estimator.RebuildStats(c.UserContext(), GetCompanyID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"articles": n})
}

// GetSettings godoc
// @Summary      Configuración del estimador
// @Tags         inventory
// @Security     Bearer
// @Param        scope        query  string  false  "company | supplier"
// @Param        supplier_id  query  string  false  "requerido con scope=supplier"
// @Success      200  {object}  dto.EstimatorSettingsResponse
// @Router       /api/inventory/estimator-settings [get]
func (h *InventoryHandler) GetSettings(c *fiber.Ctx) error {
	s, err := h.estimator.GetSettings(c.UserContext(), GetCompanyID(c),
		c.Query("scope", entity.SettingsScopeCompany), optionalQuery(c, "supplier_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(settingsResponse(s))
}

// UpdateSettings godoc
// @Summary      Actualizar configuración del estimador
// @Tags         inventory
// @Security     Bearer
// @Param        body  body  dto.EstimatorSettingsRequest  true  "alcance y días"
// @Success      200  {object}  dto.EstimatorSettingsResponse
// @Router       /api/inventory/estimator-settings [put]
func (h *InventoryHandler) UpdateSettings(c *fiber.Ctx) error {
	var in dto.EstimatorSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Scope == "" {
		in.Scope = entity.SettingsScopeCompany
	}
	s, err := h.estimator.UpdateSettings(c.UserContext(), app.SettingsInput{
		CompanyID:       GetCompanyID(c),
		Scope:           in.Scope,
		SupplierID:      in.SupplierID,
		LeadTimeDays:    in.LeadTimeDays,
		SafetyStockDays: in.SafetyStockDays,
		CoverageDays:    in.CoverageDays,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(settingsResponse(s))
}

// ── helpers ───────────────────────────────────────────────────────────────────

type queryError string

func (e queryError) Error() string { return string(e) }

func historyQuery(c *fiber.Ctx) (app.HistoryQuery, error) {
	q := app.HistoryQuery{
		CompanyID:   GetCompanyID(c),
		ArticleID:   c.Params("id"),
		WarehouseID: optionalQuery(c, "warehouse_id"),
		Page:        c.QueryInt("page", 1),
		PageSize:    c.QueryInt("page_size", app.DefaultHistoryPageSize),
	}
	var err error
	if q.DateFrom, err = parseDate(c.Query("date_from")); err != nil {
		return q, queryError("date_from debe tener formato YYYY-MM-DD")
	}
	if q.DateTo, err = parseDate(c.Query("date_to")); err != nil {
		return q, queryError("date_to debe tener formato YYYY-MM-DD")
	}
	return q, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseWindow(s string) (domaininv.Window, error) {
	if s == "" || strings.EqualFold(s, "auto") {
		return domaininv.WindowAuto, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !domaininv.Window(n).Valid() || n == 0 {
		return 0, queryError("window debe ser auto, 7, 30 o 90")
	}
	return domaininv.Window(n), nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}
