package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-kardex/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger      LedgerService
	Fulfillment FulfillmentService
	History     HistoryService
	Estimator   EstimatorService
	JWTSecret   string
	JWTIssuer   string
	Log         zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	h := NewInventoryHandler(deps.Ledger, deps.Fulfillment, deps.History, deps.Estimator, deps.Log)
	inv := protected.Group("/inventory")

	all := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor)
	stock := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	sales := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor)
	admin := RequireRole(jwt.RoleAdmin)

	inv.Post("/movements", stock, h.RegisterMovement)
	inv.Post("/sales/:id/consume", sales, h.ConsumeSale)
	inv.Post("/sales/:id/revert", sales, h.RevertSale)
	inv.Post("/fulfillment", all, h.CanFulfill)

	inv.Get("/articles/:id/kardex", stock, h.GetKardex)
	inv.Get("/articles/:id/kardex/export", stock, h.ExportKardex)
	inv.Post("/balances/verify", admin, h.VerifyBalance)

	inv.Get("/articles/:id/estimate", stock, h.GetEstimate)
	inv.Get("/reorder-signals", stock, h.GetReorderSignals)
	inv.Post("/stats/rebuild", admin, h.RebuildStats)
	inv.Get("/estimator-settings", stock, h.GetSettings)
	inv.Put("/estimator-settings", admin, h.UpdateSettings)
}
