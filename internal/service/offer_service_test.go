package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/ledger"
	"github.com/alanyoungcy/collectibles/internal/metrics"
	"github.com/alanyoungcy/collectibles/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOfferNotifier struct {
	offers []domain.Offer
	err    error
}

func (n *recordingOfferNotifier) OfferSubmitted(_ context.Context, o domain.Offer) error {
	n.offers = append(n.offers, o)
	return n.err
}

func newOfferService(t *testing.T, audit domain.AuditStore, notifier OfferNotifier) *OfferService {
	t.Helper()
	catalog := memory.NewItemStore(memory.DefaultItems())
	fs := ledger.NewFileStore(filepath.Join(t.TempDir(), "ofertas.json"), ledger.FileStoreOptions{}, discardLogger())
	l := ledger.New(catalog, fs, discardLogger())
	require.NoError(t, l.Load(context.Background()))
	return NewOfferService(l, audit, notifier, metrics.New(), discardLogger())
}

func TestOfferServiceSubmitSideEffects(t *testing.T) {
	audit := &fakeAudit{}
	notifier := &recordingOfferNotifier{err: errors.New("webhook down")}
	svc := newOfferService(t, audit, notifier)

	res, err := svc.Submit(context.Background(), domain.Offer{
		Name: "Mario Rossi", Email: "mario@example.com", ItemID: "item1", Amount: decimal.NewFromInt(850),
	})
	require.NoError(t, err)
	assert.Equal(t, "offer1", res.Offer.ID)
	assert.NoError(t, res.PersistErr)

	entries, _ := audit.List(context.Background(), domain.ListOpts{})
	require.Len(t, entries, 1)
	assert.Equal(t, "offer_submitted", entries[0].Event)
	assert.Equal(t, "offer1", entries[0].Detail["offer_id"])
	require.Len(t, notifier.offers, 1)

	views := svc.ListForItem(context.Background(), "item1")
	require.Len(t, views, 1)
	assert.Equal(t, "$850.00", views[0].DisplayAmount)
	assert.Len(t, svc.ListAll(context.Background()), 1)
}

func TestOfferServiceRejection(t *testing.T) {
	audit := &fakeAudit{}
	notifier := &recordingOfferNotifier{}
	svc := newOfferService(t, audit, notifier)

	_, err := svc.Submit(context.Background(), domain.Offer{
		Name: "Mario Rossi", Email: "not-an-email", ItemID: "item1", Amount: decimal.NewFromInt(1),
	})
	var fe *domain.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, "email", rejectReason(err))

	_, err = svc.Submit(context.Background(), domain.Offer{
		Name: "Mario Rossi", Email: "mario@example.com", ItemID: "nope", Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "item_not_found", rejectReason(err))

	entries, _ := audit.List(context.Background(), domain.ListOpts{})
	assert.Empty(t, entries)
	assert.Empty(t, notifier.offers)
}

func TestCatalogServiceGetItem(t *testing.T) {
	svc := NewCatalogService(memory.NewItemStore(memory.DefaultItems()))

	item, err := svc.GetItem(context.Background(), "item2")
	require.NoError(t, err)
	assert.Equal(t, "Peso Pluma Signed Cap", item.Name)

	_, err = svc.GetItem(context.Background(), "item404")
	var nf *domain.ItemNotFoundError
	require.ErrorAs(t, err, &nf)
}
