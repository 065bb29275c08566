package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type txKey struct{}

// memDB — транзакционное хранилище в памяти. Транзакции выполняются строго по одной,
// при ошибке состояние восстанавливается из снимка.
type memDB struct {
	mu sync.Mutex

	stores     map[uuid.UUID]domain.Store
	products   map[uuid.UUID]domain.Product
	orders     map[uuid.UUID]domain.Order
	items      map[uuid.UUID][]domain.OrderItem
	shipping   map[uuid.UUID]domain.ShippingDetails
	shortfalls []domain.StockShortfall
	outbox     []OutboxEvent

	txCalls int
	now     time.Time
}

func newMemDB() *memDB {
	return &memDB{
		stores:   make(map[uuid.UUID]domain.Store),
		products: make(map[uuid.UUID]domain.Product),
		orders:   make(map[uuid.UUID]domain.Order),
		items:    make(map[uuid.UUID][]domain.OrderItem),
		shipping: make(map[uuid.UUID]domain.ShippingDetails),
		now:      time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

type memSnapshot struct {
	products   map[uuid.UUID]domain.Product
	orders     map[uuid.UUID]domain.Order
	items      map[uuid.UUID][]domain.OrderItem
	shipping   map[uuid.UUID]domain.ShippingDetails
	shortfalls []domain.StockShortfall
	outbox     []OutboxEvent
}

func (m *memDB) snapshot() memSnapshot {
	s := memSnapshot{
		products:   make(map[uuid.UUID]domain.Product, len(m.products)),
		orders:     make(map[uuid.UUID]domain.Order, len(m.orders)),
		items:      make(map[uuid.UUID][]domain.OrderItem, len(m.items)),
		shipping:   make(map[uuid.UUID]domain.ShippingDetails, len(m.shipping)),
		shortfalls: append([]domain.StockShortfall(nil), m.shortfalls...),
		outbox:     append([]OutboxEvent(nil), m.outbox...),
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	for k, v := range m.items {
		s.items[k] = append([]domain.OrderItem(nil), v...)
	}
	for k, v := range m.shipping {
		s.shipping[k] = v
	}
	return s
}

func (m *memDB) restore(s memSnapshot) {
	m.products = s.products
	m.orders = s.orders
	m.items = s.items
	m.shipping = s.shipping
	m.shortfalls = s.shortfalls
	m.outbox = s.outbox
}

// Do реализует Transactor.
func (m *memDB) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txCalls++
	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}

	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock берёт мьютекс только вне транзакции: внутри он уже захвачен Do.
func (m *memDB) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// Доступ к состоянию из тестов

func (m *memDB) addStore() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.stores[id] = domain.Store{ID: id, Name: "store", UserID: "user"}
	return id
}

func (m *memDB) addProduct(storeID uuid.UUID, price string, inStock int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.products[id] = domain.Product{
		ID:      id,
		StoreID: storeID,
		Name:    "product " + id.String()[:8],
		Price:   decimal.RequireFromString(price),
		InStock: inStock,
	}
	return id
}

func (m *memDB) stock(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].InStock
}

func (m *memDB) setStock(id uuid.UUID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.InStock = n
	m.products[id] = p
}

func (m *memDB) order(id uuid.UUID) (domain.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	return o, ok
}

func (m *memDB) ageOrder(id uuid.UUID, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.CreatedAt = o.CreatedAt.Add(-d)
	m.orders[id] = o
}

func (m *memDB) counts() (orders, shipping, outbox int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders), len(m.shipping), len(m.outbox)
}

func (m *memDB) eventsOf(t OutboxEventType) []OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []OutboxEvent
	for _, ev := range m.outbox {
		if ev.EventType == t {
			res = append(res, ev)
		}
	}
	return res
}

func (m *memDB) shortfallRows() []domain.StockShortfall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StockShortfall(nil), m.shortfalls...)
}

// storeRepo

type memStoreRepo struct{ db *memDB }

func (r memStoreRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	defer r.db.lock(ctx)()
	s, ok := r.db.stores[id]
	if !ok {
		return nil, e.ErrStoreNotFound
	}
	return &s, nil
}

// productRepo

type memProductRepo struct{ db *memDB }

func (r memProductRepo) Reserve(ctx context.Context, storeID, productID uuid.UUID, quantity int) (decimal.Decimal, error) {
	if !inTx(ctx) {
		return decimal.Zero, e.ErrTransactionNotFound
	}
	p, ok := r.db.products[productID]
	if !ok || p.StoreID != storeID {
		return decimal.Zero, e.ErrProductNotFound
	}
	if p.InStock < quantity {
		return decimal.Zero, &InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.InStock}
	}
	p.InStock -= quantity
	r.db.products[productID] = p
	return p.Price, nil
}

func (r memProductRepo) Release(ctx context.Context, productID uuid.UUID, quantity int) error {
	if !inTx(ctx) {
		return e.ErrTransactionNotFound
	}
	p, ok := r.db.products[productID]
	if !ok {
		return e.ErrProductNotFound
	}
	p.InStock += quantity
	r.db.products[productID] = p
	return nil
}

func (r memProductRepo) Consume(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	if !inTx(ctx) {
		return 0, e.ErrTransactionNotFound
	}
	p, ok := r.db.products[productID]
	if !ok {
		return 0, e.ErrProductNotFound
	}
	if p.InStock < quantity {
		return 0, &InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.InStock}
	}
	p.InStock -= quantity
	r.db.products[productID] = p
	return p.InStock, nil
}

func (r memProductRepo) GetProductsInfo(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]ProductInfo, error) {
	defer r.db.lock(ctx)()
	var res []ProductInfo
	for _, id := range ids {
		p, ok := r.db.products[id]
		if !ok || p.StoreID != storeID || p.IsArchived {
			continue
		}
		res = append(res, ProductInfo{ID: p.ID, StoreID: p.StoreID, Name: p.Name, Price: p.Price, InStock: p.InStock})
	}
	return res, nil
}

// orderRepo

type memOrderRepo struct{ db *memDB }

func (r memOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	if !inTx(ctx) {
		return e.ErrTransactionNotFound
	}
	if order.ShippingDetailsID != nil {
		if _, ok := r.db.shipping[*order.ShippingDetailsID]; !ok {
			return e.Wrap("shipping details fk", e.ErrInternalServerError)
		}
		for _, o := range r.db.orders {
			if o.ShippingDetailsID != nil && *o.ShippingDetailsID == *order.ShippingDetailsID {
				return e.Wrap("shipping_details_id unique", e.ErrInternalServerError)
			}
		}
	}
	o := *order
	o.Items = nil
	o.CreatedAt = r.db.now
	r.db.orders[o.ID] = o
	r.db.items[o.ID] = append([]domain.OrderItem(nil), order.Items...)
	return nil
}

func (r memOrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer r.db.lock(ctx)()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, e.ErrOrderNotFound
	}
	o.Items = append([]domain.OrderItem(nil), r.db.items[id]...)
	return &o, nil
}

func (r memOrderRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	defer r.db.lock(ctx)()
	_, ok := r.db.orders[id]
	return ok, nil
}

func (r memOrderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	defer r.db.lock(ctx)()
	return append([]domain.OrderItem(nil), r.db.items[orderID]...), nil
}

func (r memOrderRepo) SetAwaitingPayment(ctx context.Context, id uuid.UUID, reference, checkoutURL string) (bool, error) {
	defer r.db.lock(ctx)()
	o, ok := r.db.orders[id]
	if !ok || o.Status != domain.OrderStatusPendingLink {
		return false, nil
	}
	o.Status = domain.OrderStatusAwaitingPayment
	o.PaymentReference = reference
	o.CheckoutURL = checkoutURL
	r.db.orders[id] = o
	return true, nil
}

func (r memOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, address, phone string) (bool, error) {
	if !inTx(ctx) {
		return false, e.ErrTransactionNotFound
	}
	o, ok := r.db.orders[id]
	if !ok || o.IsPaid {
		return false, nil
	}
	o.IsPaid = true
	o.Status = domain.OrderStatusPaid
	if address != "" {
		o.Address = address
	}
	if phone != "" {
		o.Phone = phone
	}
	paidAt := r.db.now
	o.PaidAt = &paidAt
	r.db.orders[id] = o
	return true, nil
}

func (r memOrderRepo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	if !inTx(ctx) {
		return false, e.ErrTransactionNotFound
	}
	o, ok := r.db.orders[id]
	if !ok || !o.Status.IsOpen() {
		return false, nil
	}
	o.Status = domain.OrderStatusCancelled
	r.db.orders[id] = o
	return true, nil
}

func (r memOrderRepo) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	defer r.db.lock(ctx)()
	var stale []domain.Order
	for _, o := range r.db.orders {
		if o.Status.IsOpen() && o.CreatedAt.Before(createdBefore) {
			stale = append(stale, o)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })

	ids := make([]uuid.UUID, 0, len(stale))
	for i, o := range stale {
		if i == limit {
			break
		}
		ids = append(ids, o.ID)
	}
	return ids, nil
}

func (r memOrderRepo) LockOpen(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if !inTx(ctx) {
		return nil, e.ErrTransactionNotFound
	}
	o, ok := r.db.orders[id]
	if !ok || !o.Status.IsOpen() {
		return nil, nil
	}
	return &o, nil
}

// shippingRepo, shortfallRepo, outbox

type memShippingRepo struct{ db *memDB }

func (r memShippingRepo) Create(ctx context.Context, details *domain.ShippingDetails) error {
	if !inTx(ctx) {
		return e.ErrTransactionNotFound
	}
	r.db.shipping[details.ID] = *details
	return nil
}

type memShortfallRepo struct{ db *memDB }

func (r memShortfallRepo) Create(ctx context.Context, s *domain.StockShortfall) error {
	if !inTx(ctx) {
		return e.ErrTransactionNotFound
	}
	s.ID = int64(len(r.db.shortfalls) + 1)
	r.db.shortfalls = append(r.db.shortfalls, *s)
	return nil
}

type memOutbox struct{ db *memDB }

func (r memOutbox) Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	if !inTx(ctx) {
		return nil, e.ErrTransactionNotFound
	}
	ev := *event
	ev.ID = int64(len(r.db.outbox) + 1)
	r.db.outbox = append(r.db.outbox, ev)
	return &ev, nil
}

// Внешние зависимости

type fakeProcessor struct {
	mu        sync.Mutex
	initErr   error
	links     []PaymentLinkReq
	verify    map[string]*VerifyTransactionRes
	verifyErr error
	// onVerify вызывается после ответа провайдера; verifyInTx фиксирует вызов внутри транзакции
	onVerify   func(reference string)
	verifyInTx bool
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{verify: make(map[string]*VerifyTransactionRes)}
}

func (f *fakeProcessor) InitializeTransaction(_ context.Context, req *PaymentLinkReq) (*PaymentLinkRes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, *req)
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &PaymentLinkRes{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		AccessCode:       "code",
		Reference:        req.Reference,
	}, nil
}

func (f *fakeProcessor) VerifyTransaction(ctx context.Context, reference string) (*VerifyTransactionRes, error) {
	f.mu.Lock()
	if inTx(ctx) {
		f.verifyInTx = true
	}
	hook := f.onVerify
	f.mu.Unlock()
	if hook != nil {
		hook(reference)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	res, ok := f.verify[reference]
	if !ok {
		return nil, e.ErrPaymentReferenceNotFound
	}
	return res, nil
}

func (f *fakeProcessor) setVerify(reference string, res *VerifyTransactionRes) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verify[reference] = res
}

func (f *fakeProcessor) linkRequests() []PaymentLinkReq {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PaymentLinkReq(nil), f.links...)
}

type fakeCache struct {
	mu       sync.Mutex
	items    map[uuid.UUID]ProductInfo
	versions map[uuid.UUID]int64
	deleted  []uuid.UUID
	getErr   error
	sets     chan []ProductInfo
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		items:    make(map[uuid.UUID]ProductInfo),
		versions: make(map[uuid.UUID]int64),
		sets:     make(chan []ProductInfo, 16),
	}
}

func (f *fakeCache) GetProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	res := make(map[uuid.UUID]ProductInfo)
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (f *fakeCache) ProductVersions(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make(map[uuid.UUID]int64, len(ids))
	for _, id := range ids {
		res[id] = f.versions[id]
	}
	return res, nil
}

// SetProducts отправляет в sets только реально записанные товары.
func (f *fakeCache) SetProducts(_ context.Context, products []ProductInfo, versions map[uuid.UUID]int64) error {
	f.mu.Lock()
	written := make([]ProductInfo, 0, len(products))
	for _, p := range products {
		if v, ok := versions[p.ID]; !ok || v != f.versions[p.ID] {
			continue
		}
		f.items[p.ID] = p
		written = append(written, p)
	}
	f.mu.Unlock()
	f.sets <- written
	return nil
}

func (f *fakeCache) DeleteProducts(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.items, id)
		f.versions[id]++
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeCache) deletedIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.deleted...)
}

type fakeArchive struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (f *fakeArchive) Save(_ context.Context, reference string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[reference] = body
	return nil
}

func (f *fakeArchive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeMetrics struct {
	mu            sync.Mutex
	checkout      map[string]int
	notifications map[string]int
	reconcile     map[string]int
	shortfalls    int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		checkout:      make(map[string]int),
		notifications: make(map[string]int),
		reconcile:     make(map[string]int),
	}
}

func (f *fakeMetrics) CheckoutResult(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkout[outcome]++
}

func (f *fakeMetrics) NotificationResult(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[outcome]++
}

func (f *fakeMetrics) StockShortfall() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortfalls++
}

func (f *fakeMetrics) ReconcileResult(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconcile[outcome]++
}
