package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/importexport"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
	pkgjwt "github.com/jhoicas/inventory-ledger/pkg/jwt"
)

// testServer API completa sobre el almacenamiento en memoria.
type testServer struct {
	app   *fiber.App
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	store := memory.NewStore()
	txRunner := memory.NewTxRunner(store)
	itemRepo := memory.NewItemRepository(store)
	locRepo := memory.NewLocationRepository(store)
	movRepo := memory.NewMovementRepository(store)
	balRepo := memory.NewBalanceRepository(store)
	notifRepo := memory.NewNotificationRepository(store)

	engine := alerting.NewEngine(txRunner, itemRepo, balRepo, notifRepo, nil,
		alerting.Config{ExpiryLookaheadDays: 7, Retry: inventory.DefaultRetryPolicy()}, log)
	ledger := inventory.NewLedgerUseCase(txRunner, itemRepo, locRepo, movRepo, engine, inventory.DefaultRetryPolicy(), log)
	projector := inventory.NewProjectorUseCase(txRunner, balRepo, itemRepo, locRepo, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		LocationUC: catalog.NewLocationUseCase(txRunner, locRepo, log),
		ItemUC:     catalog.NewItemUseCase(txRunner, itemRepo, locRepo, engine, log),
		Ledger:     ledger,
		Projector:  projector,
		Alerts:     engine,
		Gateway:    importexport.NewGateway(itemRepo, locRepo, balRepo, ledger, engine, nil, "", log),
		JWTSecret:  testJWTSecret,
	})
	return &testServer{app: app, token: tokenForRole(t, "admin")}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, auth string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		if _, ok := body.(string); ok {
			req.Header.Set("Content-Type", "text/csv")
		} else {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *testServer) createLocation(t *testing.T, code string) dto.LocationResponse {
	t.Helper()
	resp, data := s.do(t, http.MethodPost, "/api/locations", dto.CreateLocationRequest{Code: code, Name: "Ubicación " + code}, s.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var out dto.LocationResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func (s *testServer) createItem(t *testing.T, code string, minLevel int64) dto.ItemResponse {
	t.Helper()
	minQty := decimal.NewFromInt(minLevel)
	resp, data := s.do(t, http.MethodPost, "/api/items", dto.CreateItemRequest{
		Code: code, Name: "Filtro " + code, Category: "spare_part", Unit: "unidad", MinLevel: &minQty,
	}, s.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var out dto.ItemResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func (s *testServer) move(t *testing.T, itemID, locID, movType string, delta int64) (*http.Response, []byte) {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/inventory/movements", dto.RecordMovementRequest{
		ItemID: itemID, LocationID: locID, Type: movType, Delta: decimal.NewFromInt(delta),
	}, s.token)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, data := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "ok")
}

func TestInventoryFlow_MovimientosSaldosYAlertas(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "TALLER")
	assert.True(t, loc.IsPrimary, "la primera ubicación queda como principal")
	item := s.createItem(t, "FLT-001", 10)

	resp, data := s.move(t, item.ID, loc.ID, "receipt", 12)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var created dto.MovementCreatedResponse
	require.NoError(t, json.Unmarshal(data, &created))
	assert.NotEmpty(t, created.MovementID)

	resp, data = s.move(t, item.ID, loc.ID, "consumption", -5)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = s.do(t, http.MethodGet, "/api/inventory/balances/"+item.ID+"?location_id="+loc.ID, nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var bal dto.BalanceResponse
	require.NoError(t, json.Unmarshal(data, &bal))
	assert.True(t, bal.Quantity.Equal(decimal.NewFromInt(7)), "saldo %s", bal.Quantity)

	resp, data = s.do(t, http.MethodGet, "/api/notifications?unresolved=true", nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var notifs []dto.NotificationResponse
	require.NoError(t, json.Unmarshal(data, &notifs))
	require.Len(t, notifs, 1)
	assert.Equal(t, "low_stock", notifs[0].Kind)
	assert.Equal(t, "medium", notifs[0].Priority)

	resp, data = s.do(t, http.MethodPost, "/api/notifications/"+notifs[0].ID+"/ack", nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var acked dto.NotificationResponse
	require.NoError(t, json.Unmarshal(data, &acked))
	assert.NotNil(t, acked.AcknowledgedAt)
	assert.Nil(t, acked.ResolvedAt, "reconocer no resuelve")

	resp, data = s.move(t, item.ID, loc.ID, "issue", -100)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(data), "INSUFFICIENT_STOCK")

	resp, data = s.do(t, http.MethodGet, "/api/inventory/movements?item_id="+item.ID, nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var movs []dto.MovementResponse
	require.NoError(t, json.Unmarshal(data, &movs))
	require.Len(t, movs, 2)
	assert.Equal(t, "consumption", movs[0].Type, "más reciente primero")

	resp, data = s.do(t, http.MethodGet, "/api/inventory/reconcile/"+item.ID+"/"+loc.ID, nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var rec dto.ReconcileResponse
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.True(t, rec.Matches)
}

func TestInventoryFlow_Traslado(t *testing.T) {
	s := newTestServer(t)
	from := s.createLocation(t, "BODEGA")
	to := s.createLocation(t, "COCINA")
	item := s.createItem(t, "ACE-001", 0)

	resp, data := s.move(t, item.ID, from.ID, "receipt", 10)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = s.do(t, http.MethodPost, "/api/inventory/transfers", dto.RecordTransferRequest{
		ItemID: item.ID, FromLocationID: from.ID, ToLocationID: to.ID, Quantity: decimal.NewFromInt(4),
	}, s.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var tr dto.TransferCreatedResponse
	require.NoError(t, json.Unmarshal(data, &tr))
	assert.NotEqual(t, tr.OutMovementID, tr.InMovementID)

	resp, data = s.do(t, http.MethodGet, "/api/inventory/balances/"+item.ID, nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var sum dto.BalancesResponse
	require.NoError(t, json.Unmarshal(data, &sum))
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(10)))
	assert.True(t, sum.ByLocation[from.ID].Equal(decimal.NewFromInt(6)))
	assert.True(t, sum.ByLocation[to.ID].Equal(decimal.NewFromInt(4)))

	resp, _ = s.do(t, http.MethodPost, "/api/locations/"+to.ID+"/deactivate", nil, s.token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no se desactiva una ubicación con saldo")
}

func TestInventory_ValidacionYErrores(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "BAR")
	item := s.createItem(t, "GIN-001", 2)

	resp, data := s.move(t, item.ID, loc.ID, "receipt", -3)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))

	resp, _ = s.move(t, item.ID, loc.ID, "transfer", 3)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "transfer solo por /transfers")

	resp, _ = s.move(t, "no-existe", loc.ID, "receipt", 3)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/notifications?min_priority=urgente", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/inventory/movements", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "item_id es requerido")

	resp, _ = s.do(t, http.MethodPost, "/api/locations", "{no es json", s.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoles_LectorNoEscribe(t *testing.T) {
	s := newTestServer(t)
	lector := tokenForRole(t, "lector")

	resp, _ := s.do(t, http.MethodPost, "/api/locations", dto.CreateLocationRequest{Code: "X", Name: "X"}, lector)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/locations", nil, lector)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "las lecturas están abiertas a todos los roles")
}

func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	loc := s.createLocation(t, "TALLER")

	other, err := pkgjwt.Generate(testJWTSecret, testUserID, "otra-empresa", "admin", testIssuer, testExpMin)
	require.NoError(t, err)
	resp, _ := s.do(t, http.MethodGet, "/api/locations/"+loc.ID, nil, "Bearer "+other)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCatalog_ImportYExport(t *testing.T) {
	s := newTestServer(t)
	s.createLocation(t, "BODEGA")

	csvBody := "item_code;name;category;unit;current_stock;min_stock;location;active\n" +
		"FLT-100;Filtro de aire;spare_part;unidad;15;5;BODEGA;Yes\n" +
		"BAD-1;Sin categoría;;unidad;1;;BODEGA;Yes\n"
	resp, data := s.do(t, http.MethodPost, "/api/catalog/import", csvBody, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var res dto.ImportResultResponse
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 1, res.SuccessCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)

	resp, data = s.do(t, http.MethodGet, "/api/catalog/export", nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "item_code,name,"))
	assert.Contains(t, lines[1], "FLT-100")
	assert.Contains(t, lines[1], "BODEGA")

	resp, _ = s.do(t, http.MethodGet, "/api/catalog/export?format=xml", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/catalog/import", "", s.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "archivo vacío")
}

func TestItems_GetByCode(t *testing.T) {
	s := newTestServer(t)
	item := s.createItem(t, "FLT-200", 1)

	resp, data := s.do(t, http.MethodGet, "/api/items/code/FLT-200", nil, s.token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var got dto.ItemResponse
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, item.ID, got.ID)

	resp, _ = s.do(t, http.MethodGet, "/api/items/code/NO-EXISTE", nil, s.token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	other, err := pkgjwt.Generate(testJWTSecret, testUserID, "otra-empresa", "admin", testIssuer, testExpMin)
	require.NoError(t, err)
	resp, _ = s.do(t, http.MethodGet, "/api/items/code/FLT-200", nil, "Bearer "+other)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "el código se resuelve dentro de la empresa")
}
