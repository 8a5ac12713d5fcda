// Package ledger records buyer offers in memory, assigns them unique offer<N>
// identifiers and keeps a full snapshot of them on disk.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

const (
	idPrefix        = "offer"
	unknownItemName = "Unknown Item"
)

var (
	offerIDPattern = regexp.MustCompile(`^offer(\d+)$`)
	emailPattern   = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)
)

// Persister loads and saves full ledger snapshots.
type Persister interface {
	Load(ctx context.Context) ([]domain.Offer, error)
	Save(ctx context.Context, offers []domain.Offer) error
}

// SubmitResult is the outcome of an accepted submission. PersistErr is set
// when the offer was recorded in memory but the snapshot could not be saved.
type SubmitResult struct {
	Offer      domain.Offer
	PersistErr error
}

// Ledger owns the offer set and the id counter.
type Ledger struct {
	catalog domain.Catalog
	store   Persister
	logger  *slog.Logger

	mu     sync.RWMutex
	offers map[string]domain.Offer
	next   int

	// saveMu serializes snapshot writes so the last write always carries
	// every offer inserted before it.
	saveMu sync.Mutex
}

// New creates an empty ledger. Call Load before serving requests.
func New(catalog domain.Catalog, store Persister, logger *slog.Logger) *Ledger {
	return &Ledger{
		catalog: catalog,
		store:   store,
		logger:  logger.With(slog.String("component", "ledger")),
		offers:  make(map[string]domain.Offer),
		next:    1,
	}
}

// Load replaces the in-memory set with the persisted one. Offers without an
// id are assigned one after the counter has been advanced past every loaded
// offer<N> id, and the ledger is saved again if that happened.
func (l *Ledger) Load(ctx context.Context) error {
	loaded, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("ledger: load: %w", err)
	}

	l.mu.Lock()
	l.offers = make(map[string]domain.Offer, len(loaded))
	l.next = 1
	var unbounded []string
	for _, o := range loaded {
		if o.ID == "" {
			continue
		}
		if !l.bumpLocked(o.ID) {
			unbounded = append(unbounded, o.ID)
		}
		l.offers[o.ID] = o
	}
	assigned := 0
	for _, o := range loaded {
		if o.ID != "" {
			continue
		}
		o.ID = l.mintLocked()
		l.offers[o.ID] = o
		assigned++
	}
	count := len(l.offers)
	l.mu.Unlock()

	for _, id := range unbounded {
		l.logger.WarnContext(ctx, "ledger: offer id too large for the counter, ignored",
			slog.String("offer_id", id),
		)
	}
	l.logger.InfoContext(ctx, "ledger: loaded offers",
		slog.Int("count", count),
		slog.Int("assigned_ids", assigned),
	)

	if assigned > 0 {
		if err := l.persist(ctx); err != nil {
			l.logger.ErrorContext(ctx, "ledger: persist after id assignment failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Submit validates candidate, records it under a fresh id and persists the
// ledger. Validation stops at the first problem, in this order: name, email,
// email format, item id, item existence, amount. Validation failures are
// *domain.FieldError; an unknown item is *domain.ItemNotFoundError.
// Fields are stored as submitted; blank-only values count as missing. Any id
// on candidate is ignored.
func (l *Ledger) Submit(ctx context.Context, candidate domain.Offer) (SubmitResult, error) {
	o := domain.Offer{
		Name:   candidate.Name,
		Email:  candidate.Email,
		ItemID: candidate.ItemID,
		Amount: candidate.Amount,
	}

	switch {
	case blank(o.Name):
		return SubmitResult{}, domain.NewFieldError("name", "Name is required")
	case blank(o.Email):
		return SubmitResult{}, domain.NewFieldError("email", "Email is required")
	case !emailPattern.MatchString(o.Email):
		return SubmitResult{}, domain.NewFieldError("email", "Invalid email format")
	case blank(o.ItemID):
		return SubmitResult{}, domain.NewFieldError("itemId", "Item ID is required")
	}

	exists, err := l.catalog.Exists(ctx, o.ItemID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("ledger: check item %q: %w", o.ItemID, err)
	}
	if !exists {
		return SubmitResult{}, &domain.ItemNotFoundError{ItemID: o.ItemID}
	}
	if !o.Amount.IsPositive() {
		return SubmitResult{}, domain.NewFieldError("amount", "Amount must be greater than 0")
	}

	l.mu.Lock()
	o.ID = l.mintLocked()
	l.offers[o.ID] = o
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "ledger: offer recorded",
		slog.String("offer_id", o.ID),
		slog.String("item_id", o.ItemID),
		slog.String("amount", o.Amount.String()),
	)

	res := SubmitResult{Offer: o}
	if err := l.persist(ctx); err != nil {
		l.logger.ErrorContext(ctx, "ledger: persist failed",
			slog.String("offer_id", o.ID),
			slog.String("error", err.Error()),
		)
		res.PersistErr = err
	}
	return res, nil
}

// ListAll returns a snapshot of every offer ordered by numeric id.
func (l *Ledger) ListAll(ctx context.Context) []domain.Offer {
	l.mu.RLock()
	out := make([]domain.Offer, 0, len(l.offers))
	for _, o := range l.offers {
		out = append(out, o)
	}
	l.mu.RUnlock()

	sortOffers(out)
	return out
}

// ListForItem returns the offers for itemID decorated for display. If the
// item name cannot be resolved the entries carry "Unknown Item".
func (l *Ledger) ListForItem(ctx context.Context, itemID string) []domain.OfferView {
	var matched []domain.Offer
	for _, o := range l.ListAll(ctx) {
		if o.ItemID == itemID {
			matched = append(matched, o)
		}
	}
	return l.decorate(ctx, matched)
}

// Len returns the number of recorded offers.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.offers)
}

func (l *Ledger) decorate(ctx context.Context, offers []domain.Offer) []domain.OfferView {
	names := make(map[string]string)
	views := make([]domain.OfferView, 0, len(offers))
	for _, o := range offers {
		name, ok := names[o.ItemID]
		if !ok {
			name = l.itemName(ctx, o.ItemID)
			names[o.ItemID] = name
		}
		views = append(views, domain.OfferView{
			Offer:         o,
			DisplayAmount: o.DisplayAmount(),
			ItemName:      name,
		})
	}
	return views
}

func (l *Ledger) itemName(ctx context.Context, itemID string) string {
	item, err := l.catalog.GetItem(ctx, itemID)
	if err != nil {
		l.logger.WarnContext(ctx, "ledger: item name lookup failed",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		return unknownItemName
	}
	if item.Name == "" {
		return unknownItemName
	}
	return item.Name
}

func (l *Ledger) persist(ctx context.Context) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	return l.store.Save(ctx, l.ListAll(ctx))
}

// mintLocked returns the next free offer id. l.mu must be held.
func (l *Ledger) mintLocked() string {
	for {
		id := idPrefix + strconv.Itoa(l.next)
		l.next++
		if _, taken := l.offers[id]; !taken {
			return id
		}
	}
}

// bumpLocked advances the counter past id if it has the offer<N> form. It
// returns false, leaving the counter alone, when N has no successor.
// l.mu must be held.
func (l *Ledger) bumpLocked(id string) bool {
	n, ok := offerNumber(id)
	if !ok {
		return true
	}
	if n == math.MaxInt {
		return false
	}
	if n >= l.next {
		l.next = n + 1
	}
	return true
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func offerNumber(id string) (int, bool) {
	m := offerIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// sortOffers orders offer<N> ids numerically, followed by any other ids in
// lexical order.
func sortOffers(offers []domain.Offer) {
	sort.Slice(offers, func(i, j int) bool {
		ni, oki := offerNumber(offers[i].ID)
		nj, okj := offerNumber(offers[j].ID)
		switch {
		case oki && okj:
			if ni != nj {
				return ni < nj
			}
			return offers[i].ID < offers[j].ID
		case oki != okj:
			return oki
		default:
			return offers[i].ID < offers[j].ID
		}
	})
}
