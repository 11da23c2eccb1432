package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/importexport"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/interfaces/ws"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LocationUC *catalog.LocationUseCase
	ItemUC     *catalog.ItemUseCase
	Ledger     *inventory.LedgerUseCase
	Projector  *inventory.ProjectorUseCase
	Alerts     *alerting.Engine
	Gateway    *importexport.Gateway
	Hub        *ws.Hub
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	catalogWriters := RequireRole(RoleAdmin, RoleBodeguero)
	ledgerWriters := RequireRole(RoleAdmin, RoleBodeguero, RoleTecnico)

	// Locations
	locations := protected.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC)
	locations.Get("/", locationHandler.List)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Post("/", catalogWriters, locationHandler.Create)
	locations.Put("/:id", catalogWriters, locationHandler.Update)
	locations.Post("/:id/primary", catalogWriters, locationHandler.SetPrimary)
	locations.Post("/:id/deactivate", catalogWriters, locationHandler.Deactivate)
	locations.Post("/:id/reactivate", catalogWriters, locationHandler.Reactivate)

	// Items
	items := protected.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC)
	items.Get("/", itemHandler.List)
	items.Get("/code/:code", itemHandler.GetByCode)
	items.Get("/:id", itemHandler.GetByID)
	items.Post("/", catalogWriters, itemHandler.Create)
	items.Put("/:id", catalogWriters, itemHandler.Update)
	items.Put("/:id/thresholds/:locationId", catalogWriters, itemHandler.SetThreshold)
	items.Post("/:id/deactivate", catalogWriters, itemHandler.Deactivate)
	items.Post("/:id/reactivate", catalogWriters, itemHandler.Reactivate)

	// Inventory ledger
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Projector)
	invGroup.Post("/movements", ledgerWriters, inventoryHandler.RecordMovement)
	invGroup.Post("/transfers", ledgerWriters, inventoryHandler.RecordTransfer)
	invGroup.Get("/movements", inventoryHandler.ListMovements)
	invGroup.Get("/balances/:itemId", inventoryHandler.GetBalances)
	invGroup.Get("/reconcile/:itemId/:locationId", RequireRole(RoleAdmin), inventoryHandler.Reconcile)

	// Notifications
	notifications := protected.Group("/notifications")
	notificationHandler := NewNotificationHandler(deps.Alerts, deps.Hub)
	notifications.Get("/", notificationHandler.List)
	notifications.Post("/:id/ack", notificationHandler.Acknowledge)
	if deps.Hub != nil {
		notifications.Get("/ws", UpgradeOnly, notificationHandler.Stream())
	}

	// Catalog import/export
	catalogGroup := protected.Group("/catalog")
	catalogHandler := NewCatalogHandler(deps.Gateway)
	catalogGroup.Get("/export", catalogHandler.Export)
	catalogGroup.Post("/import", catalogWriters, catalogHandler.Import)
}
