package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// InventoryHandler maneja las peticiones HTTP del libro de movimientos y los saldos (protegido).
type InventoryHandler struct {
	ledger    *inventory.LedgerUseCase
	projector *inventory.ProjectorUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, projector *inventory.ProjectorUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, projector: projector}
}

func toReference(r *dto.ReferenceDTO) *entity.Reference {
	if r == nil {
		return nil
	}
	return &entity.Reference{Kind: r.Kind, ID: r.ID}
}

// RecordMovement godoc
// @Summary      Registrar movimiento
// @Description  receipt (delta > 0), issue/consumption (delta < 0) o adjustment (cualquier signo, distinto de cero).
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "item_id, location_id, type, delta"
// @Success      201   {object}  dto.MovementCreatedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validateRequest(in); err != nil {
		return respondError(c, err)
	}
	id, err := h.ledger.RecordMovement(c.UserContext(), inventory.RecordMovementInput{
		CompanyID:  companyID,
		ActorID:    userID,
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		Delta:      in.Delta,
		Type:       in.Type,
		Reference:  toReference(in.Reference),
		Notes:      in.Notes,
		UnitCost:   in.UnitCost,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementCreatedResponse{MovementID: id})
}

// RecordTransfer godoc
// @Summary      Registrar traslado entre ubicaciones
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordTransferRequest  true  "item_id, from_location_id, to_location_id, quantity"
// @Success      201   {object}  dto.TransferCreatedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) RecordTransfer(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.RecordTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validateRequest(in); err != nil {
		return respondError(c, err)
	}
	outID, inID, err := h.ledger.RecordTransfer(c.UserContext(), inventory.RecordTransferInput{
		CompanyID:      companyID,
		ActorID:        userID,
		ItemID:         in.ItemID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Quantity:       in.Quantity,
		Reference:      toReference(in.Reference),
		Notes:          in.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferCreatedResponse{OutMovementID: outID, InMovementID: inID})
}

// ListMovements godoc
// @Summary      Consultar el libro de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  true   "ID del ítem"
// @Param        location_id  query  string  false  "ID de la ubicación"
// @Param        since        query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        limit        query  int     false  "Límite" default(50)
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	in := inventory.ListMovementsInput{
		CompanyID:  companyID,
		ItemID:     c.Query("item_id"),
		LocationID: c.Query("location_id"),
		Limit:      c.QueryInt("limit", 0),
	}
	if in.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id es requerido"})
	}
	if raw := c.Query("since"); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "since debe ser RFC3339 o YYYY-MM-DD"})
		}
		in.Since = &since
	}
	list, err := h.ledger.ListMovements(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.ToMovementResponse(m))
	}
	return c.JSON(out)
}

func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(dto.DateLayout, raw)
}

// GetBalances godoc
// @Summary      Saldo de un ítem
// @Description  Con location_id devuelve el saldo del par; sin él, el mapa por ubicación y el total.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        itemId       path   string  true   "ID del ítem"
// @Param        location_id  query  string  false  "ID de la ubicación"
// @Success      200  {object}  dto.BalancesResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{itemId} [get]
func (h *InventoryHandler) GetBalances(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	itemID := c.Params("itemId")
	if locationID := c.Query("location_id"); locationID != "" {
		qty, err := h.projector.GetBalance(c.UserContext(), companyID, itemID, locationID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(dto.BalanceResponse{ItemID: itemID, LocationID: locationID, Quantity: qty})
	}
	sum, err := h.projector.GetBalances(c.UserContext(), companyID, itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalancesResponse{ItemID: sum.ItemID, ByLocation: sum.ByLocation, Total: sum.Total})
}

// Reconcile godoc
// @Summary      Conciliar saldo contra el libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        itemId      path  string  true  "ID del ítem"
// @Param        locationId  path  string  true  "ID de la ubicación"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      422  {object}  dto.ReconcileResponse
// @Router       /api/inventory/reconcile/{itemId}/{locationId} [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	res, err := h.projector.Reconcile(c.UserContext(), GetCompanyID(c), c.Params("itemId"), c.Params("locationId"))
	if err != nil && res == nil {
		return respondError(c, err)
	}
	out := dto.ReconcileResponse{
		ItemID:     res.ItemID,
		LocationID: res.LocationID,
		Projected:  res.Projected,
		Replayed:   res.Replayed,
		Matches:    res.Matches,
	}
	if !res.Matches {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	}
	return c.JSON(out)
}
