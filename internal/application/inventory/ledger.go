package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Límites de ListMovements.
const (
	DefaultMovementLimit = 50
	MaxMovementLimit     = 500
)

// LedgerUseCase registra movimientos en el libro y actualiza el saldo del par en la misma transacción,
// con bloqueo de fila (SELECT FOR UPDATE) y control optimista de versión.
type LedgerUseCase struct {
	txRunner     TxRunner
	itemRepo     repository.ItemRepository
	locationRepo repository.LocationRepository
	movRepo      repository.MovementRepository
	alerts       AlertTrigger
	retry        RetryPolicy
	log          *logger.Logger
	now          func() time.Time
}

// NewLedgerUseCase construye el caso de uso. alerts puede ser nil (sin motor de alertas).
func NewLedgerUseCase(
	txRunner TxRunner,
	itemRepo repository.ItemRepository,
	locationRepo repository.LocationRepository,
	movRepo repository.MovementRepository,
	alerts AlertTrigger,
	retry RetryPolicy,
	log *logger.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:     txRunner,
		itemRepo:     itemRepo,
		locationRepo: locationRepo,
		movRepo:      movRepo,
		alerts:       alerts,
		retry:        retry,
		log:          log.Component("ledger"),
		now:          time.Now,
	}
}

// RecordMovementInput entrada para registrar un movimiento simple (no traslado).
type RecordMovementInput struct {
	CompanyID  string
	ActorID    string
	ItemID     string
	LocationID string
	Delta      decimal.Decimal
	Type       string
	Reference  *entity.Reference
	Notes      string
	UnitCost   *decimal.Decimal
}

// RecordTransferInput entrada para un traslado entre dos ubicaciones.
type RecordTransferInput struct {
	CompanyID      string
	ActorID        string
	ItemID         string
	FromLocationID string
	ToLocationID   string
	Quantity       decimal.Decimal
	Reference      *entity.Reference
	Notes          string
}

// ListMovementsInput filtros de consulta del libro.
type ListMovementsInput struct {
	CompanyID  string
	ItemID     string
	LocationID string
	Since      *time.Time
	Limit      int
}

// checkSign valida el signo del delta según el tipo de movimiento.
func checkSign(movType string, delta decimal.Decimal) error {
	switch movType {
	case entity.MovementTypeReceipt:
		if !delta.IsPositive() {
			return fmt.Errorf("%w: una entrada debe ser positiva", domain.ErrInvalidQuantity)
		}
	case entity.MovementTypeIssue, entity.MovementTypeConsumption:
		if !delta.IsNegative() {
			return fmt.Errorf("%w: %s debe ser negativo", domain.ErrInvalidQuantity, movType)
		}
	case entity.MovementTypeAdjustment:
		if delta.IsZero() {
			return fmt.Errorf("%w: un ajuste no puede ser cero", domain.ErrInvalidQuantity)
		}
	case entity.MovementTypeTransfer:
		return fmt.Errorf("%w: los traslados se registran con RecordTransfer", domain.ErrInvalidInput)
	default:
		return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, movType)
	}
	return nil
}

// SetStockInput entrada para llevar el saldo de un par a una cantidad absoluta (conteo físico, importación).
type SetStockInput struct {
	CompanyID  string
	ActorID    string
	ItemID     string
	LocationID string
	Target     decimal.Decimal
	Reference  *entity.Reference
	Notes      string
	UnitCost   *decimal.Decimal
}

func validateMovement(in RecordMovementInput) error {
	if in.ItemID == "" || in.LocationID == "" || in.ActorID == "" {
		return domain.ErrInvalidInput
	}
	if err := checkSign(in.Type, in.Delta); err != nil {
		return err
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	return nil
}

// LedgerTx registra movimientos dentro de una transacción abierta con InTx.
// Ítem y ubicación se releen con bloqueo compartido, así una desactivación concurrente
// espera al commit o es vista por el movimiento.
type LedgerTx struct {
	tx      repository.TxRepos
	now     time.Time
	touched []pair
	seen    map[pair]struct{}
}

type pair struct {
	itemID     string
	locationID string
}

func (l *LedgerTx) touch(itemID, locationID string) {
	p := pair{itemID, locationID}
	if _, ok := l.seen[p]; ok {
		return
	}
	l.seen[p] = struct{}{}
	l.touched = append(l.touched, p)
}

// InTx ejecuta fn en una transacción con reintento ante conflictos; fn debe poder re-ejecutarse entera.
// Tras el commit re-evalúa las alertas de cada par tocado.
func (uc *LedgerUseCase) InTx(ctx context.Context, fn func(tx repository.TxRepos, ledger *LedgerTx) error) error {
	var ltx *LedgerTx
	err := uc.retry.Do(ctx, func() error {
		return uc.txRunner.Run(ctx, func(tx repository.TxRepos) error {
			ltx = &LedgerTx{tx: tx, now: uc.now().UTC(), seen: make(map[pair]struct{})}
			return fn(tx, ltx)
		})
	})
	if err != nil {
		return err
	}
	for _, p := range ltx.touched {
		uc.triggerAlerts(ctx, p.itemID, p.locationID)
	}
	return nil
}

// RecordMovement añade un movimiento al libro y actualiza el saldo del par atómicamente.
// Los conflictos de concurrencia se reintentan re-ejecutando toda la transacción, incluidas las validaciones.
func (uc *LedgerUseCase) RecordMovement(ctx context.Context, in RecordMovementInput) (string, error) {
	if err := validateMovement(in); err != nil {
		return "", err
	}

	var movID string
	err := uc.InTx(ctx, func(_ repository.TxRepos, ledger *LedgerTx) error {
		id, err := ledger.Record(ctx, in)
		movID = id
		return err
	})
	if err != nil {
		return "", err
	}

	uc.log.Info().
		Str("movement_id", movID).
		Str("item_id", in.ItemID).
		Str("location_id", in.LocationID).
		Str("type", in.Type).
		Str("delta", in.Delta.String()).
		Msg("movimiento registrado")
	return movID, nil
}

// Record añade un movimiento simple dentro de la transacción.
func (l *LedgerTx) Record(ctx context.Context, in RecordMovementInput) (string, error) {
	if err := validateMovement(in); err != nil {
		return "", err
	}
	item, err := loadItem(ctx, l.tx.Items.GetForShare, in.CompanyID, in.ItemID, true)
	if err != nil {
		return "", err
	}
	loc, err := loadLocation(ctx, l.tx.Locations.GetForShare, in.CompanyID, in.LocationID, true)
	if err != nil {
		return "", err
	}
	// Bloquea el par (SELECT FOR UPDATE) hasta el commit
	bal, err := l.tx.Balances.GetForUpdate(ctx, item.ID, loc.ID)
	if err != nil {
		return "", err
	}
	newQty := bal.Quantity.Add(in.Delta)
	if in.Delta.IsNegative() && newQty.IsNegative() && !item.AllowBackorder {
		return "", fmt.Errorf("%w: saldo %s, solicitado %s", domain.ErrInsufficientStock, bal.Quantity.String(), in.Delta.Neg().String())
	}
	mov := &entity.Movement{
		ID:         uuid.New().String(),
		ItemID:     item.ID,
		LocationID: loc.ID,
		Delta:      in.Delta,
		Type:       in.Type,
		Reference:  in.Reference,
		UnitCost:   in.UnitCost,
		ActorID:    in.ActorID,
		Notes:      in.Notes,
		CreatedAt:  l.now,
	}
	if err := l.tx.Movements.Append(ctx, mov); err != nil {
		return "", err
	}
	if err := applyDelta(ctx, l.tx.Balances, bal, mov, l.now); err != nil {
		return "", err
	}
	l.touch(item.ID, loc.ID)
	return mov.ID, nil
}

// SetStock registra el ajuste que lleva el saldo del par a in.Target. La diferencia se calcula
// sobre el saldo leído bajo bloqueo. Si ya coincide no escribe nada y devuelve "".
func (l *LedgerTx) SetStock(ctx context.Context, in SetStockInput) (string, error) {
	if in.Target.IsNegative() {
		return "", fmt.Errorf("%w: el saldo objetivo no puede ser negativo", domain.ErrInvalidQuantity)
	}
	// Mismo orden de bloqueo que Record: ítem, ubicación y luego el par
	item, err := loadItem(ctx, l.tx.Items.GetForShare, in.CompanyID, in.ItemID, true)
	if err != nil {
		return "", err
	}
	loc, err := loadLocation(ctx, l.tx.Locations.GetForShare, in.CompanyID, in.LocationID, true)
	if err != nil {
		return "", err
	}
	bal, err := l.tx.Balances.GetForUpdate(ctx, item.ID, loc.ID)
	if err != nil {
		return "", err
	}
	delta := in.Target.Sub(bal.Quantity)
	if delta.IsZero() {
		return "", nil
	}
	return l.Record(ctx, RecordMovementInput{
		CompanyID:  in.CompanyID,
		ActorID:    in.ActorID,
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		Delta:      delta,
		Type:       entity.MovementTypeAdjustment,
		Reference:  in.Reference,
		Notes:      in.Notes,
		UnitCost:   in.UnitCost,
	})
}

// RecordTransfer registra las dos patas de un traslado en una sola transacción.
// Bloquea los dos pares en orden ascendente de ubicación para evitar interbloqueos.
func (uc *LedgerUseCase) RecordTransfer(ctx context.Context, in RecordTransferInput) (outID, inID string, err error) {
	if in.ItemID == "" || in.FromLocationID == "" || in.ToLocationID == "" || in.ActorID == "" {
		return "", "", domain.ErrInvalidInput
	}
	if !in.Quantity.IsPositive() {
		return "", "", fmt.Errorf("%w: la cantidad a trasladar debe ser positiva", domain.ErrInvalidQuantity)
	}
	if in.FromLocationID == in.ToLocationID {
		return "", "", fmt.Errorf("%w: origen y destino son la misma ubicación", domain.ErrInvalidQuantity)
	}

	err = uc.InTx(ctx, func(_ repository.TxRepos, ledger *LedgerTx) error {
		var err error
		outID, inID, err = ledger.transfer(ctx, in)
		return err
	})
	if err != nil {
		return "", "", err
	}

	uc.log.Info().
		Str("item_id", in.ItemID).
		Str("from_location_id", in.FromLocationID).
		Str("to_location_id", in.ToLocationID).
		Str("quantity", in.Quantity.String()).
		Msg("traslado registrado")
	return outID, inID, nil
}

func (l *LedgerTx) transfer(ctx context.Context, in RecordTransferInput) (string, string, error) {
	item, err := loadItem(ctx, l.tx.Items.GetForShare, in.CompanyID, in.ItemID, true)
	if err != nil {
		return "", "", err
	}
	order := []string{in.FromLocationID, in.ToLocationID}
	sort.Strings(order)
	for _, locID := range order {
		if _, err := loadLocation(ctx, l.tx.Locations.GetForShare, in.CompanyID, locID, true); err != nil {
			return "", "", err
		}
	}
	balances := make(map[string]*entity.Balance, 2)
	for _, locID := range order {
		bal, err := l.tx.Balances.GetForUpdate(ctx, item.ID, locID)
		if err != nil {
			return "", "", err
		}
		balances[locID] = bal
	}

	src := balances[in.FromLocationID]
	if src.Quantity.Sub(in.Quantity).IsNegative() && !item.AllowBackorder {
		return "", "", fmt.Errorf("%w: saldo %s en origen, solicitado %s", domain.ErrInsufficientStock, src.Quantity.String(), in.Quantity.String())
	}

	transferID := uuid.New().String()
	out := &entity.Movement{
		ID:                uuid.New().String(),
		TransferID:        transferID,
		ItemID:            item.ID,
		LocationID:        in.FromLocationID,
		CounterLocationID: in.ToLocationID,
		Delta:             in.Quantity.Neg(),
		Type:              entity.MovementTypeTransfer,
		Reference:         in.Reference,
		ActorID:           in.ActorID,
		Notes:             in.Notes,
		CreatedAt:         l.now,
	}
	inMov := &entity.Movement{
		ID:                uuid.New().String(),
		TransferID:        transferID,
		ItemID:            item.ID,
		LocationID:        in.ToLocationID,
		CounterLocationID: in.FromLocationID,
		Delta:             in.Quantity,
		Type:              entity.MovementTypeTransfer,
		Reference:         in.Reference,
		ActorID:           in.ActorID,
		Notes:             in.Notes,
		CreatedAt:         l.now,
	}
	for _, m := range []*entity.Movement{out, inMov} {
		if err := l.tx.Movements.Append(ctx, m); err != nil {
			return "", "", err
		}
		if err := applyDelta(ctx, l.tx.Balances, balances[m.LocationID], m, l.now); err != nil {
			return "", "", err
		}
		l.touch(item.ID, m.LocationID)
	}
	return out.ID, inMov.ID, nil
}

// ListMovements devuelve el libro de un ítem (opcionalmente de una ubicación), del más reciente al más antiguo.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, in ListMovementsInput) ([]*entity.Movement, error) {
	if in.ItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := loadItem(ctx, uc.itemRepo.GetByID, in.CompanyID, in.ItemID, false); err != nil {
		return nil, err
	}
	if in.LocationID != "" {
		if _, err := loadLocation(ctx, uc.locationRepo.GetByID, in.CompanyID, in.LocationID, false); err != nil {
			return nil, err
		}
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultMovementLimit
	}
	if limit > MaxMovementLimit {
		limit = MaxMovementLimit
	}
	return uc.movRepo.List(ctx, repository.MovementFilter{
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		Since:      in.Since,
		Limit:      limit,
	})
}

func (uc *LedgerUseCase) triggerAlerts(ctx context.Context, itemID, locationID string) {
	if uc.alerts == nil {
		return
	}
	uc.alerts.EvaluateAfterCommit(ctx, itemID, locationID)
}

// applyDelta escribe el nuevo saldo con la versión leída bajo bloqueo.
func applyDelta(ctx context.Context, balanceRepo repository.BalanceRepository, bal *entity.Balance, mov *entity.Movement, now time.Time) error {
	expected := bal.Version
	bal.Quantity = bal.Quantity.Add(mov.Delta)
	bal.LastMovementID = mov.ID
	bal.UpdatedAt = now
	return balanceRepo.Save(ctx, bal, expected)
}
