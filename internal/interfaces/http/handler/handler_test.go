package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"github.com/stockledger/backend/internal/interfaces/http/middleware"
	"github.com/stockledger/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockLedger implements LedgerOperations for testing
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) result(args mock.Arguments) (*inventoryapp.LedgerResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.LedgerResult), args.Error(1)
}

func (m *MockLedger) Receive(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.ReceiveRequest) (*inventoryapp.LedgerResult, error) {
	return m.result(m.Called(ctx, tenantID, actor, req))
}

func (m *MockLedger) Adjust(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.AdjustRequest) (*inventoryapp.LedgerResult, error) {
	return m.result(m.Called(ctx, tenantID, actor, req))
}

func (m *MockLedger) Sell(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.SellRequest) (*inventoryapp.LedgerResult, error) {
	return m.result(m.Called(ctx, tenantID, actor, req))
}

func (m *MockLedger) Transfer(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.TransferRequest) (*inventoryapp.LedgerResult, error) {
	return m.result(m.Called(ctx, tenantID, actor, req))
}

func (m *MockLedger) ScanBarcode(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.ScanRequest) (*inventoryapp.LedgerResult, error) {
	return m.result(m.Called(ctx, tenantID, actor, req))
}

func (m *MockLedger) GetTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*inventoryapp.TransactionDetail, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.TransactionDetail), args.Error(1)
}

func (m *MockLedger) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.TransactionListFilter) ([]inventoryapp.TransactionResponse, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.TransactionResponse), args.Error(1)
}

func (m *MockLedger) ListAudit(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.AuditListFilter) ([]inventoryapp.AuditRecordResponse, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.AuditRecordResponse), args.Error(1)
}

// MockInvalidator implements cache.Invalidator for testing
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockInvalidator) InvalidatePattern(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

// testIdentity is the authenticated caller that stands in for JWTAuthMiddleware
type testIdentity struct {
	tenantID uuid.UUID
	actor    identity.Actor
	perms    []identity.Permission
}

func newTestIdentity(perms ...identity.Permission) testIdentity {
	return testIdentity{
		tenantID: uuid.New(),
		actor:    identity.UserActor(uuid.New()),
		perms:    perms,
	}
}

func (ti testIdentity) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.TenantIDKey, ti.tenantID)
		c.Set(middleware.ActorKey, ti.actor)
		c.Set(middleware.PermissionsKey, identity.NewPermissionSet(ti.perms...))
		c.Next()
	}
}

func newLedgerRouter(t *testing.T, ledger LedgerOperations, inv *MockInvalidator, who testIdentity) *gin.Engine {
	t.Helper()
	engine := gin.New()
	engine.Use(middleware.RequestID())

	h := NewLedgerHandler(ledger, inv, zaptest.NewLogger(t))
	if inv == nil {
		h = NewLedgerHandler(ledger, nil, zaptest.NewLogger(t))
	}
	g := router.NewDomainGroup("ledger", "/ledger").Use(who.middleware())
	h.RegisterRoutes(g)

	r := router.NewRouter(engine)
	r.Register(g)
	r.Setup()
	return engine
}

func doJSON(engine http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
