package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/ledger"
	"github.com/alanyoungcy/collectibles/internal/service"
	"github.com/alanyoungcy/collectibles/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memPersister struct {
	mu      sync.Mutex
	saved   []domain.Offer
	saveErr error
}

func (p *memPersister) Load(context.Context) ([]domain.Offer, error) { return nil, nil }

func (p *memPersister) Save(_ context.Context, offers []domain.Offer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved = append([]domain.Offer(nil), offers...)
	return nil
}

type countingBroadcaster struct {
	mu     sync.Mutex
	events []domain.PriceChangeEvent
}

func (b *countingBroadcaster) Broadcast(_ context.Context, ev domain.PriceChangeEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return 1
}

func (b *countingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type brokenPriceStore struct{}

func (brokenPriceStore) GetPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("connection refused")
}

func (brokenPriceStore) SetPrice(context.Context, string, decimal.Decimal) error {
	return errors.New("connection refused")
}

type fixture struct {
	mux         *http.ServeMux
	persister   *memPersister
	broadcaster *countingBroadcaster
	ledger      *ledger.Ledger
}

func newFixture(t *testing.T, prices domain.PriceStore) *fixture {
	t.Helper()
	logger := discardLogger()
	items := memory.NewItemStore(memory.DefaultItems())
	if prices == nil {
		prices = items
	}

	p := &memPersister{}
	l := ledger.New(items, p, logger)
	require.NoError(t, l.Load(context.Background()))

	b := &countingBroadcaster{}
	offerSvc := service.NewOfferService(l, nil, nil, nil, logger)
	priceSvc := service.NewPriceService(prices, b, service.PriceServiceOptions{}, logger)
	catalogSvc := service.NewCatalogService(items)

	oh := NewOfferHandler(offerSvc, logger)
	ih := NewItemHandler(catalogSvc, priceSvc, offerSvc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/offers", oh.Submit)
	mux.HandleFunc("GET /api/offers", oh.ListAll)
	mux.HandleFunc("GET /api/items/{id}/offers", oh.ListForItem)
	mux.HandleFunc("GET /api/items/{id}", ih.GetItem)
	mux.HandleFunc("GET /api/items/{id}/price", ih.GetPrice)
	mux.HandleFunc("PUT /api/items/{id}/price", ih.UpdatePrice)

	return &fixture{mux: mux, persister: p, broadcaster: b, ledger: l}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestSubmitOfferCreated(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, http.MethodPost, "/api/offers",
		`{"name":"Mario Rossi","email":"mario@example.com","itemId":"item1","amount":850}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "offer1", body["id"])
	assert.Equal(t, "item1", body["itemId"])
	assert.Equal(t, 850.0, body["amount"])
	assert.Equal(t, "$850.00", body["displayAmount"])
	assert.NotContains(t, body, "warning")
	require.Len(t, f.persister.saved, 1)
}

func TestSubmitOfferValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{"missing name", `{"email":"a@b.c","itemId":"item1","amount":1}`, "name", "Name is required"},
		{"missing email", `{"name":"A","itemId":"item1","amount":1}`, "email", "Email is required"},
		{"bad email", `{"name":"A","email":"nope","itemId":"item1","amount":1}`, "email", "Invalid email format"},
		{"missing item", `{"name":"A","email":"a@b.c","amount":1}`, "itemId", "Item ID is required"},
		{"zero amount", `{"name":"A","email":"a@b.c","itemId":"item1","amount":0}`, "amount", "Amount must be greater than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rec, body := f.do(t, http.MethodPost, "/api/offers", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 400.0, body["status"])
			assert.Equal(t, "Bad Request", body["error"])
			assert.Equal(t, tt.field, body["field"])
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, "/api/offers", body["path"])
			assert.NotEmpty(t, body["timestamp"])
			assert.Zero(t, f.ledger.Len())
		})
	}
}

func TestSubmitOfferUnknownItem(t *testing.T) {
	f := newFixture(t, nil)
	rec, body := f.do(t, http.MethodPost, "/api/offers",
		`{"name":"A","email":"a@b.c","itemId":"item99","amount":10}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item not found with ID: item99", body["message"])
	assert.NotContains(t, body, "field")
}

func TestSubmitOfferMalformedBody(t *testing.T) {
	f := newFixture(t, nil)
	rec, body := f.do(t, http.MethodPost, "/api/offers", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", body["message"])
}

func TestSubmitOfferPersistFailureStillCreated(t *testing.T) {
	f := newFixture(t, nil)
	f.persister.saveErr = errors.New("disk full")

	rec, body := f.do(t, http.MethodPost, "/api/offers",
		`{"name":"A","email":"a@b.c","itemId":"item2","amount":"600.5"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "offer1", body["id"])
	assert.Equal(t, persistWarning, body["warning"])
	assert.Contains(t, rec.Header().Get("Warning"), "199")
	assert.Equal(t, 1, f.ledger.Len())
}

func TestListOffers(t *testing.T) {
	f := newFixture(t, nil)
	for _, item := range []string{"item1", "item2", "item1"} {
		rec, _ := f.do(t, http.MethodPost, "/api/offers",
			`{"name":"A","email":"a@b.c","itemId":"`+item+`","amount":100}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := f.do(t, http.MethodGet, "/api/offers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, body["total"])
	offers := body["offers"].([]any)
	assert.Equal(t, "offer1", offers[0].(map[string]any)["id"])
	assert.Equal(t, "offer3", offers[2].(map[string]any)["id"])

	rec, body = f.do(t, http.MethodGet, "/api/items/item1/offers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["total"])
	first := body["offers"].([]any)[0].(map[string]any)
	assert.Equal(t, "Rosalía Signed Vinyl", first["itemName"])
	assert.Equal(t, "$100.00", first["displayAmount"])

	_, body = f.do(t, http.MethodGet, "/api/items/item7/offers", "")
	assert.Equal(t, []any{}, body["offers"])
}

func TestGetItem(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, http.MethodGet, "/api/items/item1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rosalía Signed Vinyl", body["name"])
	assert.Equal(t, "$349.99 USD", body["price"])
	assert.Equal(t, 349.99, body["priceNumeric"])
	assert.Equal(t, []any{}, body["offers"])

	rec, _ = f.do(t, http.MethodGet, "/api/items/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePrice(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, http.MethodPut, "/api/items/item1/price", `{"newPrice":899.99}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "$899.99 USD", body["price"])
	assert.Equal(t, 899.99, body["priceNumeric"])
	assert.Equal(t, 1, f.broadcaster.count())

	_, body = f.do(t, http.MethodGet, "/api/items/item1/price", "")
	assert.Equal(t, "$899.99 USD", body["price"])
}

func TestUpdatePriceFailures(t *testing.T) {
	t.Run("invalid price", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, body := f.do(t, http.MethodPut, "/api/items/item1/price", `{"newPrice":-3}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "newPrice", body["field"])
		assert.Zero(t, f.broadcaster.count())
	})
	t.Run("missing price", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, _ := f.do(t, http.MethodPut, "/api/items/item1/price", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("unknown item", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, _ := f.do(t, http.MethodPut, "/api/items/item42/price", `{"newPrice":5}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, f.broadcaster.count())
	})
	t.Run("storage error", func(t *testing.T) {
		f := newFixture(t, brokenPriceStore{})
		rec, body := f.do(t, http.MethodPut, "/api/items/item1/price", `{"newPrice":5}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error", body["error"])
		assert.NotContains(t, body["message"], "connection refused")
		assert.Zero(t, f.broadcaster.count())
	})
}

func TestHealthCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Checker{"redis": ok}, discardLogger()).
		HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Checker{"redis": ok, "postgres": down}, discardLogger()).
		HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), `"postgres":"error: dial tcp: refused"`)
}

type fixedSessions int

func (n fixedSessions) ClientCount() int { return int(n) }

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/offers", `{"name":"A","email":"a@b.c","itemId":"item1","amount":1}`)

	rec := httptest.NewRecorder()
	NewStatusHandler(fixedSessions(3), f.ledger, "memory", time.Now()).
		GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3.0, body["clientCount"])
	assert.Equal(t, 1.0, body["offerCount"])
	assert.Equal(t, "memory", body["catalogBackend"])
}

type stubAudit struct {
	opts    domain.ListOpts
	entries []domain.AuditEntry
	err     error
}

func (s *stubAudit) Log(context.Context, string, map[string]any) error { return nil }

func (s *stubAudit) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.opts = opts
	return s.entries, s.err
}

func TestAuditList(t *testing.T) {
	audit := &stubAudit{entries: []domain.AuditEntry{{ID: 7, Event: "offer_submitted"}}}
	rec := httptest.NewRecorder()
	NewAuditHandler(audit, discardLogger()).
		List(rec, httptest.NewRequest(http.MethodGet, "/api/audit?limit=900&offset=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ListOpts{Limit: 500, Offset: 2}, audit.opts)
	assert.Contains(t, rec.Body.String(), `"event":"offer_submitted"`)

	audit.err = domain.ErrStorage
	rec = httptest.NewRecorder()
	NewAuditHandler(audit, discardLogger()).
		List(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
