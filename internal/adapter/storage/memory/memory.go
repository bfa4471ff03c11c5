// Package memory is an in-process store for development and tests. State
// changes for one order are serialized by a per-order mutex; map access is
// guarded by a store-wide RWMutex held only for short copies.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	orders        map[uint64]*domain.Order
	orderNumbers  map[string]uint64
	payments      map[string]*domain.Payment
	paymentsBy    map[uint64][]string
	products      map[uint64]*domain.Product
	customers     map[uint64]*domain.Customer
	tasks         map[uuid.UUID]*domain.Task
	taskKeys      map[string]uuid.UUID
	webhookEvents []*domain.WebhookEvent
	nextOrderID   uint64
	nextItemID    uint64
	nextPaymentID uint64
	orderLocksMu  sync.Mutex
	orderLocks    map[uint64]*sync.Mutex
	now           func() time.Time
}

func New() *Store {
	return &Store{
		orders:       make(map[uint64]*domain.Order),
		orderNumbers: make(map[string]uint64),
		payments:     make(map[string]*domain.Payment),
		paymentsBy:   make(map[uint64][]string),
		products:     make(map[uint64]*domain.Product),
		customers:    make(map[uint64]*domain.Customer),
		tasks:        make(map[uuid.UUID]*domain.Task),
		taskKeys:     make(map[string]uuid.UUID),
		orderLocks:   make(map[uint64]*sync.Mutex),
		now:          time.Now,
	}
}

var (
	_ port.Repository        = (*Store)(nil)
	_ port.Catalog           = (*Store)(nil)
	_ port.CustomerDirectory = (*Store)(nil)
	_ port.TaskQueue         = (*Store)(nil)
)

func (s *Store) lockOrder(orderID uint64) func() {
	s.orderLocksMu.Lock()
	l, ok := s.orderLocks[orderID]
	if !ok {
		l = &sync.Mutex{}
		s.orderLocks[orderID] = l
	}
	s.orderLocksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Catalog

func (s *Store) PutProduct(p *domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.products[p.ID] = &c
}

func (s *Store) GetProduct(_ context.Context, productID uint64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) PutCustomer(c *domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := *c
	s.customers[c.ID] = &cc
}

func (s *Store) GetCustomer(_ context.Context, customerID uint64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	cc := *c
	return &cc, nil
}

// Order

func (s *Store) CreateOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orderNumbers[order.Number]; ok {
		return nil, domain.ErrConflictingData
	}
	s.nextOrderID++
	stored := order.Clone()
	stored.ID = s.nextOrderID
	for _, item := range stored.Items {
		s.nextItemID++
		item.ID = s.nextItemID
		item.OrderID = stored.ID
	}
	s.orders[stored.ID] = stored
	s.orderNumbers[stored.Number] = stored.ID

	return stored.Clone(), nil
}

func (s *Store) ReadOrder(_ context.Context, orderID uint64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	return o.Clone(), nil
}

func (s *Store) ReadOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	s.mu.RLock()
	id, ok := s.orderNumbers[number]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	return s.ReadOrder(ctx, id)
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if filter.CustomerID != 0 && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })

	if filter.Offset >= uint64(len(list)) {
		return []*domain.Order{}, nil
	}
	list = list[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < uint64(len(list)) {
		list = list[:filter.Limit]
	}
	page := make([]*domain.Order, 0, len(list))
	for _, o := range list {
		page = append(page, o.Clone())
	}
	return page, nil
}

func (s *Store) UpdateOrder(ctx context.Context, orderID uint64, updateFn port.UpdateOrderFn) (*domain.Order, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.ReadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := updateFn(order); err != nil {
		if err == domain.ErrNoUpdatedData {
			current, _ := s.ReadOrder(ctx, orderID)
			return current, err
		}
		return nil, err
	}

	s.mu.Lock()
	s.orders[orderID].Status = order.Status
	s.orders[orderID].UpdatedAt = order.UpdatedAt
	s.mu.Unlock()
	return order, nil
}

// Payment

func (s *Store) CreatePayment(ctx context.Context, orderID uint64, createFn port.CreatePaymentFn) (*domain.Payment, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.ReadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := s.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payment, err := createFn(ctx, &port.PaymentState{Order: order, Payments: payments})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[payment.Reference]; ok {
		return nil, domain.ErrConflictingData
	}
	s.nextPaymentID++
	stored := payment.Clone()
	stored.ID = s.nextPaymentID
	stored.OrderID = orderID
	s.payments[stored.Reference] = stored
	s.paymentsBy[orderID] = append(s.paymentsBy[orderID], stored.Reference)
	s.orders[orderID].Status = order.Status
	s.orders[orderID].UpdatedAt = order.UpdatedAt

	return stored.Clone(), nil
}

func (s *Store) ReadPaymentByReference(_ context.Context, reference string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[reference]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	return p.Clone(), nil
}

func (s *Store) ListPaymentsByOrder(_ context.Context, orderID uint64) ([]*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := s.paymentsBy[orderID]
	list := make([]*domain.Payment, 0, len(refs))
	for _, ref := range refs {
		list = append(list, s.payments[ref].Clone())
	}
	return list, nil
}

func (s *Store) UpdatePaymentByReference(ctx context.Context, reference string,
	updateFn port.UpdatePaymentFn) (*domain.Payment, error) {
	current, err := s.ReadPaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	unlock := s.lockOrder(current.OrderID)
	defer unlock()

	order, err := s.ReadOrder(ctx, current.OrderID)
	if err != nil {
		return nil, err
	}
	payments, err := s.ListPaymentsByOrder(ctx, current.OrderID)
	if err != nil {
		return nil, err
	}
	var payment *domain.Payment
	for _, p := range payments {
		if p.Reference == reference {
			payment = p
		}
	}

	stock := &stockTx{store: s}
	state := &port.PaymentState{
		Order:    order,
		Payment:  payment,
		Payments: payments,
		Stock:    stock,
	}
	if err := updateFn(ctx, state); err != nil {
		stock.rollback()
		if err == domain.ErrNoUpdatedData {
			snapshot, _ := s.ReadPaymentByReference(ctx, reference)
			return snapshot, err
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[reference] = payment.Clone()
	s.orders[order.ID].Status = order.Status
	s.orders[order.ID].UpdatedAt = order.UpdatedAt
	for _, t := range state.Tasks {
		s.enqueueLocked(t)
	}

	return payment.Clone(), nil
}

type stockTx struct {
	store *Store
	undo  []*domain.OrderItem
}

func (t *stockTx) ReserveStock(_ context.Context, items []*domain.OrderItem) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	need := make(map[uint64]int)
	for _, item := range items {
		need[item.ProductID] += item.Quantity
	}
	for id, qty := range need {
		p, ok := s.products[id]
		if !ok {
			return &domain.InsufficientStockError{ProductID: id, Requested: qty}
		}
		if !p.Available(qty) {
			available := p.StockQuantity
			if p.Status != domain.ProductStatusActive {
				available = 0
			}
			return &domain.InsufficientStockError{ProductID: id, Requested: qty, Available: available}
		}
	}
	for id, qty := range need {
		decrementLocked(s.products[id], qty)
	}
	t.undo = append(t.undo, items...)
	return nil
}

func (t *stockTx) rollback() {
	if len(t.undo) == 0 {
		return
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range t.undo {
		if p, ok := s.products[item.ProductID]; ok {
			decrementLocked(p, -item.Quantity)
		}
	}
	t.undo = nil
}

func decrementLocked(p *domain.Product, qty int) {
	p.StockQuantity -= qty
	switch {
	case p.StockQuantity <= 0:
		p.Status = domain.ProductStatusOutOfStock
	case p.Status == domain.ProductStatusOutOfStock:
		p.Status = domain.ProductStatusActive
	}
}

// Webhook log

func (s *Store) RecordWebhookEvent(_ context.Context, event *domain.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *event
	s.webhookEvents = append(s.webhookEvents, &c)
	return nil
}

func (s *Store) ListWebhookEvents(_ context.Context, outcome domain.Outcome, limit uint64) ([]*domain.WebhookEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.WebhookEvent, 0)
	for i := len(s.webhookEvents) - 1; i >= 0; i-- {
		e := s.webhookEvents[i]
		if outcome != "" && e.Outcome != outcome {
			continue
		}
		c := *e
		list = append(list, &c)
		if limit > 0 && uint64(len(list)) >= limit {
			break
		}
	}
	return list, nil
}
