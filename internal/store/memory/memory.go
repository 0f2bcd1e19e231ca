// Package memory is a process-local implementation of the store contracts,
// used by DB_DRIVER=memory and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// DB holds every collection behind one lock so that order creation can
// check and decrement stock atomically.
type DB struct {
	mu sync.RWMutex

	accounts  map[int64]models.Account
	products  map[int64]models.Product
	orders    map[int64]models.Order
	tickets   map[int64]models.SupportTicket
	wishlists map[int64][]int64
	carts     map[int64][]models.CartItem

	lastID int64
	now    func() time.Time
}

// New returns an empty in-memory database
func New() *DB {
	return &DB{
		accounts:  make(map[int64]models.Account),
		products:  make(map[int64]models.Product),
		orders:    make(map[int64]models.Order),
		tickets:   make(map[int64]models.SupportTicket),
		wishlists: make(map[int64][]int64),
		carts:     make(map[int64][]models.CartItem),
		now:       time.Now,
	}
}

// SetClock overrides the time source, for deterministic ordering in tests
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Stores exposes the database through the store interfaces
func (db *DB) Stores() store.Stores {
	return store.Stores{
		Accounts: &accountStore{db},
		Products: &productStore{db},
		Orders:   &orderStore{db},
		Carts:    &cartStore{db},
		Support:  &supportStore{db},
	}
}

func (db *DB) nextID() int64 {
	db.lastID++
	return db.lastID
}

// accounts

type accountStore struct{ db *DB }

func (s *accountStore) Create(_ context.Context, account *models.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return store.ErrDuplicate
		}
	}
	now := s.db.now()
	account.ID = s.db.nextID()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.db.accounts[account.ID] = *account
	return nil
}

func (s *accountStore) GetByID(_ context.Context, id int64) (*models.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a, ok := s.db.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *accountStore) findOne(match func(models.Account) bool) (*models.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, a := range s.db.accounts {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *accountStore) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return s.findOne(func(a models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *accountStore) GetByVerificationToken(_ context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return s.findOne(func(a models.Account) bool { return a.VerificationToken == token })
}

func (s *accountStore) GetByResetToken(_ context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return s.findOne(func(a models.Account) bool { return a.ResetToken == token })
}

func (s *accountStore) Update(_ context.Context, account *models.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.accounts[account.ID]
	if !ok {
		return store.ErrNotFound
	}
	for id, other := range s.db.accounts {
		if id != account.ID && strings.EqualFold(other.Email, account.Email) {
			return store.ErrDuplicate
		}
	}
	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = s.db.now()
	s.db.accounts[account.ID] = *account
	return nil
}

func (s *accountStore) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.accounts, id)
	delete(s.db.wishlists, id)
	delete(s.db.carts, id)
	return nil
}

func accountMatches(a models.Account, filter store.AccountFilter) bool {
	if filter.Role != "" && a.Role != filter.Role {
		return false
	}
	if filter.PendingSellersOnly && (a.Role != models.RoleSeller || a.IsSellerVerified) {
		return false
	}
	return true
}

func (s *accountStore) List(_ context.Context, filter store.AccountFilter) ([]models.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []models.Account{}
	for _, a := range s.db.accounts {
		if accountMatches(a, filter) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *accountStore) Count(_ context.Context, filter store.AccountFilter) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var n int64
	for _, a := range s.db.accounts {
		if accountMatches(a, filter) {
			n++
		}
	}
	return n, nil
}

func (s *accountStore) WishlistIDs(_ context.Context, accountID int64) ([]int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	return append([]int64{}, s.db.wishlists[accountID]...), nil
}

func (s *accountStore) ToggleWishlist(_ context.Context, accountID, productID int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.accounts[accountID]; !ok {
		return false, store.ErrNotFound
	}
	ids := s.db.wishlists[accountID]
	for i, id := range ids {
		if id == productID {
			s.db.wishlists[accountID] = append(ids[:i:i], ids[i+1:]...)
			return false, nil
		}
	}
	s.db.wishlists[accountID] = append(ids, productID)
	return true, nil
}

// products

type productStore struct{ db *DB }

func (s *productStore) Create(_ context.Context, product *models.Product) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	product.ID = s.db.nextID()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.db.products[product.ID] = *product
	return nil
}

func (s *productStore) GetByID(_ context.Context, id int64) (*models.Product, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, ok := s.db.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *productStore) GetByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []models.Product{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if p, ok := s.db.products[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *productStore) Update(_ context.Context, product *models.Product) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.products[product.ID]
	if !ok {
		return store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.db.now()
	s.db.products[product.ID] = *product
	return nil
}

func (s *productStore) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.products[id]; !ok {
		return store.ErrNotFound
	}
	s.db.removeProductsLocked(map[int64]bool{id: true})
	return nil
}

// removeProductsLocked drops products and every wishlist or cart reference to them
func (db *DB) removeProductsLocked(ids map[int64]bool) {
	for id := range ids {
		delete(db.products, id)
	}
	for owner, list := range db.wishlists {
		kept := list[:0:0]
		for _, pid := range list {
			if !ids[pid] {
				kept = append(kept, pid)
			}
		}
		db.wishlists[owner] = kept
	}
	for owner, items := range db.carts {
		kept := items[:0:0]
		for _, item := range items {
			if !ids[item.ProductID] {
				kept = append(kept, item)
			}
		}
		db.carts[owner] = kept
	}
}

func (s *productStore) List(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []models.Product{}
	for _, p := range s.db.products {
		if filter.SellerID != 0 && p.SellerID != filter.SellerID {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Product{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *productStore) IDsBySeller(_ context.Context, sellerID int64) ([]int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	ids := []int64{}
	for id, p := range s.db.products {
		if p.SellerID == sellerID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *productStore) DeleteBySeller(_ context.Context, sellerID int64) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	ids := make(map[int64]bool)
	for id, p := range s.db.products {
		if p.SellerID == sellerID {
			ids[id] = true
		}
	}
	s.db.removeProductsLocked(ids)
	return int64(len(ids)), nil
}

func (s *productStore) Count(_ context.Context) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return int64(len(s.db.products)), nil
}

// orders

type orderStore struct{ db *DB }

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}

func (s *orderStore) Create(_ context.Context, order *models.Order) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	need := make(map[int64]int)
	for _, item := range order.Items {
		need[item.ProductID] += item.Quantity
	}
	for pid, qty := range need {
		p, ok := s.db.products[pid]
		if !ok {
			return store.ErrNotFound
		}
		if qty < 1 || p.Stock < qty {
			return store.ErrInsufficientStock
		}
	}

	now := s.db.now()
	for pid, qty := range need {
		p := s.db.products[pid]
		p.Stock -= qty
		p.UpdatedAt = now
		s.db.products[pid] = p
	}

	order.ID = s.db.nextID()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.db.orders[order.ID] = copyOrder(*order)
	return nil
}

func (s *orderStore) GetByID(_ context.Context, id int64) (*models.Order, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	o, ok := s.db.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (s *orderStore) filter(match func(models.Order) bool) []models.Order {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []models.Order{}
	for _, o := range s.db.orders {
		if match(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out
}

func (s *orderStore) ListByBuyer(_ context.Context, buyerID int64) ([]models.Order, error) {
	return s.filter(func(o models.Order) bool { return o.BuyerID == buyerID }), nil
}

func (s *orderStore) ListByProducts(_ context.Context, productIDs []int64) ([]models.Order, error) {
	if len(productIDs) == 0 {
		return []models.Order{}, nil
	}
	set := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		set[id] = true
	}
	return s.filter(func(o models.Order) bool {
		for _, item := range o.Items {
			if set[item.ProductID] {
				return true
			}
		}
		return false
	}), nil
}

func (s *orderStore) ListAll(_ context.Context) ([]models.Order, error) {
	return s.filter(func(models.Order) bool { return true }), nil
}

func (s *orderStore) ListExcludingStatus(_ context.Context, status models.OrderStatus) ([]models.Order, error) {
	return s.filter(func(o models.Order) bool { return o.Status != status }), nil
}

func (s *orderStore) UpdateStatus(_ context.Context, id int64, from, to models.OrderStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o, ok := s.db.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	if o.Status != from {
		return store.ErrStaleStatus
	}
	o.Status = to
	o.UpdatedAt = s.db.now()
	s.db.orders[id] = o
	return nil
}

func (s *orderStore) Count(_ context.Context) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return int64(len(s.db.orders)), nil
}

// carts

type cartStore struct{ db *DB }

func (s *cartStore) Items(_ context.Context, accountID int64) ([]models.CartItem, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return append([]models.CartItem{}, s.db.carts[accountID]...), nil
}

func (s *cartStore) Add(_ context.Context, accountID, productID int64, quantity int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.products[productID]; !ok {
		return store.ErrNotFound
	}
	items := s.db.carts[accountID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			return nil
		}
	}
	s.db.carts[accountID] = append(items, models.CartItem{ProductID: productID, Quantity: quantity, AddedAt: s.db.now()})
	return nil
}

func (s *cartStore) Remove(_ context.Context, accountID, productID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	items := s.db.carts[accountID]
	for i := range items {
		if items[i].ProductID == productID {
			s.db.carts[accountID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *cartStore) Clear(_ context.Context, accountID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.carts, accountID)
	return nil
}

// support tickets

type supportStore struct{ db *DB }

func (s *supportStore) Create(_ context.Context, ticket *models.SupportTicket) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	ticket.ID = s.db.nextID()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	s.db.tickets[ticket.ID] = *ticket
	return nil
}

func (s *supportStore) GetByID(_ context.Context, id int64) (*models.SupportTicket, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t, ok := s.db.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *supportStore) List(_ context.Context) ([]models.SupportTicket, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []models.SupportTicket{}
	for _, t := range s.db.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *supportStore) UpdateStatus(_ context.Context, id int64, from, to models.SupportStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, ok := s.db.tickets[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != from {
		return store.ErrStaleStatus
	}
	t.Status = to
	t.UpdatedAt = s.db.now()
	s.db.tickets[id] = t
	return nil
}

// newerFirst orders by creation time descending, breaking ties on id
func newerFirst(ti time.Time, idi int64, tj time.Time, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}
