// Package memory is an in-process Store used by tests and by STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository"
)

type txKey struct{}

type state struct {
	farms         map[string]models.Farm
	batches       map[string]models.ChickenBatch
	movements     []models.StockMovement
	distributions map[string]models.Distribution
	deliveries    map[string]models.Delivery
	orders        map[string]models.Order
	sales         map[string]models.Sale
	payments      []models.Payment
	users         map[string]models.User
	shops         map[string]models.Shop
	notifications []models.Notification
}

func newState() *state {
	return &state{
		farms:         make(map[string]models.Farm),
		batches:       make(map[string]models.ChickenBatch),
		distributions: make(map[string]models.Distribution),
		deliveries:    make(map[string]models.Delivery),
		orders:        make(map[string]models.Order),
		sales:         make(map[string]models.Sale),
		users:         make(map[string]models.User),
		shops:         make(map[string]models.Shop),
	}
}

// Store keeps every collection in maps guarded by one mutex. Transactions are
// serialised and keep an undo log, so a rollback only reverts the writes made
// through the transaction's ctx.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *state
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// RunInTransaction implements repository.TxManager. Commit hooks run after the
// outermost transaction releases the store.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	hooks, err := s.runSerialised(ctx, fn)
	if err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

func (s *Store) runSerialised(ctx context.Context, fn func(ctx context.Context) error) (*repository.CommitHooks, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &undoLog{}
	txCtx, hooks := repository.WithCommitHooks(context.WithValue(ctx, txKey{}, log))
	if err := fn(txCtx); err != nil {
		s.mu.Lock()
		log.rollback()
		s.mu.Unlock()
		return nil, err
	}
	return hooks, nil
}

type undoLog struct {
	steps []func()
}

func (l *undoLog) rollback() {
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

// remember registers undo on the transaction carried by ctx, if any. Callers
// hold s.mu.
func remember(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(txKey{}).(*undoLog); ok {
		log.steps = append(log.steps, undo)
	}
}

// restoreKey captures the current value of key in m.
func restoreKey[V any](m map[string]V, key string) func() {
	prev, existed := m[key]
	return func() {
		if existed {
			m[key] = prev
			return
		}
		delete(m, key)
	}
}

func without[T any](items []T, match func(T) bool) []T {
	out := items[:0:0]
	for _, item := range items {
		if !match(item) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Store) CreateFarm(ctx context.Context, farm models.Farm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.farms[farm.ID]; ok {
		return repository.ErrDuplicate
	}
	remember(ctx, restoreKey(s.data.farms, farm.ID))
	s.data.farms[farm.ID] = farm
	return nil
}

func (s *Store) GetFarm(_ context.Context, id string) (*models.Farm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	farm, ok := s.data.farms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &farm, nil
}

func (s *Store) ListFarms(_ context.Context, tenantID string) ([]models.Farm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	farms := make([]models.Farm, 0, len(s.data.farms))
	for _, farm := range s.data.farms {
		if tenantID == "" || farm.TenantID == tenantID {
			farms = append(farms, farm)
		}
	}
	sort.Slice(farms, func(i, j int) bool { return farms[i].ID < farms[j].ID })
	return farms, nil
}

func (s *Store) UpdateFarm(ctx context.Context, farm models.Farm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.farms[farm.ID]; !ok {
		return repository.ErrNotFound
	}
	remember(ctx, restoreKey(s.data.farms, farm.ID))
	s.data.farms[farm.ID] = farm
	return nil
}

func (s *Store) CreateBatch(ctx context.Context, batch models.ChickenBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.batches[batch.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range s.data.batches {
		if existing.TenantID == batch.TenantID && existing.BatchNumber == batch.BatchNumber {
			return repository.ErrDuplicate
		}
	}
	remember(ctx, restoreKey(s.data.batches, batch.ID))
	s.data.batches[batch.ID] = batch
	return nil
}

func (s *Store) GetBatch(_ context.Context, id string) (*models.ChickenBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.data.batches[id]
	if !ok || batch.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	return &batch, nil
}

func (s *Store) FindBatchByNumber(_ context.Context, tenantID, batchNumber string) (*models.ChickenBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, batch := range s.data.batches {
		if batch.TenantID == tenantID && batch.BatchNumber == batchNumber && !batch.IsDeleted() {
			return &batch, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListBatchesByFarm(_ context.Context, farmID string) ([]models.ChickenBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batches []models.ChickenBatch
	for _, batch := range s.data.batches {
		if batch.FarmID == farmID && !batch.IsDeleted() {
			batches = append(batches, batch)
		}
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches, nil
}

func (s *Store) UpdateBatch(ctx context.Context, batch models.ChickenBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.batches[batch.ID]; !ok {
		return repository.ErrNotFound
	}
	remember(ctx, restoreKey(s.data.batches, batch.ID))
	s.data.batches[batch.ID] = batch
	return nil
}

func (s *Store) AppendMovement(ctx context.Context, movement models.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.movements = append(s.data.movements, movement)
	remember(ctx, func() {
		s.data.movements = without(s.data.movements, func(x models.StockMovement) bool { return x.ID == movement.ID })
	})
	return nil
}

func (s *Store) ListMovements(_ context.Context, farmID, batchID string) ([]models.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StockMovement
	for _, m := range s.data.movements {
		if m.FarmID == farmID && m.BatchID == batchID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListFarmMovements(_ context.Context, farmID string) ([]models.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StockMovement
	for _, m := range s.data.movements {
		if m.FarmID == farmID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CreateDistribution(ctx context.Context, distribution models.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.distributions[distribution.ID]; ok {
		return repository.ErrDuplicate
	}
	remember(ctx, restoreKey(s.data.distributions, distribution.ID))
	s.data.distributions[distribution.ID] = cloneDistribution(distribution)
	return nil
}

func (s *Store) GetDistribution(_ context.Context, id string) (*models.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	distribution, ok := s.data.distributions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneDistribution(distribution)
	return &out, nil
}

func (s *Store) UpdateDistribution(ctx context.Context, distribution models.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.distributions[distribution.ID]; !ok {
		return repository.ErrNotFound
	}
	remember(ctx, restoreKey(s.data.distributions, distribution.ID))
	s.data.distributions[distribution.ID] = cloneDistribution(distribution)
	return nil
}

func (s *Store) ListDistributionsScheduledBetween(_ context.Context, from, to time.Time) ([]models.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Distribution
	for _, d := range s.data.distributions {
		if !d.ScheduledDate.Before(from) && d.ScheduledDate.Before(to) {
			out = append(out, cloneDistribution(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (s *Store) CreateDelivery(ctx context.Context, delivery models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.deliveries[delivery.ID]; ok {
		return repository.ErrDuplicate
	}
	remember(ctx, restoreKey(s.data.deliveries, delivery.ID))
	s.data.deliveries[delivery.ID] = delivery
	return nil
}

func (s *Store) GetDelivery(_ context.Context, id string) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.data.deliveries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &delivery, nil
}

func (s *Store) UpdateDelivery(ctx context.Context, delivery models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.deliveries[delivery.ID]; !ok {
		return repository.ErrNotFound
	}
	remember(ctx, restoreKey(s.data.deliveries, delivery.ID))
	s.data.deliveries[delivery.ID] = delivery
	return nil
}

func (s *Store) ListDeliveriesByDistribution(_ context.Context, distributionID string) ([]models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Delivery
	for _, d := range s.data.deliveries {
		if d.DistributionID == distributionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateOrder(ctx context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.orders[order.ID]; ok {
		return repository.ErrDuplicate
	}
	remember(ctx, restoreKey(s.data.orders, order.ID))
	s.data.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.data.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOrder(order)
	return &out, nil
}

func (s *Store) UpdateOrder(ctx context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	remember(ctx, restoreKey(s.data.orders, order.ID))
	s.data.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *Store) CreateSale(ctx context.Context, sale models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.sales[sale.ID]; ok {
		return repository.ErrDuplicate
	}
	remember(ctx, restoreKey(s.data.sales, sale.ID))
	s.data.sales[sale.ID] = sale
	return nil
}

func (s *Store) GetSale(_ context.Context, id string) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.data.sales[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sale, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.sales[sale.ID]; !ok {
		return repository.ErrNotFound
	}
	remember(ctx, restoreKey(s.data.sales, sale.ID))
	s.data.sales[sale.ID] = sale
	return nil
}

func (s *Store) ListSalesByPaymentStatus(_ context.Context, statuses ...models.PaymentStatus) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Sale
	for _, sale := range s.data.sales {
		for _, status := range statuses {
			if sale.PaymentStatus == status {
				out = append(out, sale)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.payments = append(s.data.payments, payment)
	remember(ctx, func() {
		s.data.payments = without(s.data.payments, func(x models.Payment) bool { return x.ID == payment.ID })
	})
	return nil
}

func (s *Store) ListPaymentsBySale(_ context.Context, saleID string) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.data.payments {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	remember(ctx, restoreKey(s.data.users, user.ID))
	s.data.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (s *Store) ListUsersByRole(_ context.Context, tenantID string, role models.UserRole) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, user := range s.data.users {
		if user.Role == role && (tenantID == "" || user.TenantID == tenantID) {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateShop(ctx context.Context, shop models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.shops[shop.ID]; ok {
		return repository.ErrDuplicate
	}
	remember(ctx, restoreKey(s.data.shops, shop.ID))
	s.data.shops[shop.ID] = shop
	return nil
}

func (s *Store) GetShop(_ context.Context, id string) (*models.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shop, ok := s.data.shops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &shop, nil
}

func (s *Store) CreateNotification(ctx context.Context, notification models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.notifications = append(s.data.notifications, notification)
	remember(ctx, func() {
		s.data.notifications = without(s.data.notifications, func(x models.Notification) bool { return x.ID == notification.ID })
	})
	return nil
}

func (s *Store) ListNotificationsByUser(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for i := len(s.data.notifications) - 1; i >= 0; i-- {
		n := s.data.notifications[i]
		if n.UserID != userID {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func cloneDistribution(d models.Distribution) models.Distribution {
	d.Items = append([]models.DistributionItem(nil), d.Items...)
	return d
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}
