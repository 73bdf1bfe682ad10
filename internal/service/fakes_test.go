package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"inventory-api/internal/domain"
	"inventory-api/internal/repository"

	"github.com/google/uuid"
)

// memState is an in-memory stand-in for the persistence store
type memState struct {
	products   map[uuid.UUID]domain.Product
	categories map[uuid.UUID]domain.Category
	sales      map[uuid.UUID]domain.Sale
}

func newMemState() *memState {
	return &memState{
		products:   make(map[uuid.UUID]domain.Product),
		categories: make(map[uuid.UUID]domain.Category),
		sales:      make(map[uuid.UUID]domain.Sale),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.products {
		if v.StockQuantity != nil {
			v.StockQuantity = domain.IntPtr(*v.StockQuantity)
		}
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	return c
}

// memTxManager runs fn against a copy of the state and publishes the copy
// only when fn succeeds
type memTxManager struct {
	mu    sync.Mutex
	state *memState
	// failSaleCreate makes sale inserts inside the transaction fail
	// after writing
	failSaleCreate error
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memRepos{state: work, failSaleCreate: m.failSaleCreate}); err != nil {
		return err
	}
	*m.state = *work
	return nil
}

type memRepos struct {
	state          *memState
	failSaleCreate error
}

func (r *memRepos) Products() repository.ProductRepository {
	return &memProductRepo{state: r.state}
}

func (r *memRepos) Categories() repository.CategoryRepository {
	return &memCategoryRepo{state: r.state}
}

func (r *memRepos) Sales() repository.SaleRepository {
	return &memSaleRepo{state: r.state, failCreate: r.failSaleCreate}
}

type memProductRepo struct {
	state *memState
}

func (r *memProductRepo) Create(ctx context.Context, product *domain.Product) error {
	r.state.products[product.ID] = *product
	return nil
}

func (r *memProductRepo) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := r.state.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	r.state.products[product.ID] = *product
	return nil
}

func (r *memProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.state.products, id)
	for cid, c := range r.state.categories {
		if c.ProductID == id {
			delete(r.state.categories, cid)
		}
	}
	for sid, s := range r.state.sales {
		if s.ProductID == id {
			delete(r.state.sales, sid)
		}
	}
	return nil
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := r.state.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.StockQuantity != nil {
		p.StockQuantity = domain.IntPtr(*p.StockQuantity)
	}
	return &p, nil
}

func (r *memProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *memProductRepo) sorted(match func(domain.Product) bool) []*domain.Product {
	out := []*domain.Product{}
	for _, p := range r.state.products {
		if match(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func page(products []*domain.Product, pageNum, pageSize int) []*domain.Product {
	start := (pageNum - 1) * pageSize
	if start >= len(products) {
		return []*domain.Product{}
	}
	end := start + pageSize
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}

func (r *memProductRepo) List(ctx context.Context, pageNum, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	all := r.sorted(func(domain.Product) bool { return true })
	return page(all, pageNum, pageSize), len(all), nil
}

func (r *memProductRepo) Search(ctx context.Context, query string, pageNum, pageSize int) ([]*domain.Product, int, error) {
	q := strings.ToLower(query)
	all := r.sorted(func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q)
	})
	return page(all, pageNum, pageSize), len(all), nil
}

func (r *memProductRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	p, ok := r.state.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	next := p.Available() + delta
	if next < 0 {
		return 0, repository.ErrNegativeStock
	}
	if next > domain.MaxStock {
		return 0, repository.ErrProductConstraint
	}
	p.StockQuantity = domain.IntPtr(next)
	p.UpdatedAt = time.Now()
	r.state.products[id] = p
	return next, nil
}

type memCategoryRepo struct {
	state *memState
}

func (r *memCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	if _, ok := r.state.products[category.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	r.state.categories[category.ID] = *category
	return nil
}

func (r *memCategoryRepo) List(ctx context.Context, productID *uuid.UUID) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, c := range r.state.categories {
		if productID == nil || c.ProductID == *productID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := r.state.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *memCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(r.state.categories, id)
	for sid, s := range r.state.sales {
		if s.CategoryID != nil && *s.CategoryID == id {
			s.CategoryID = nil
			s.CategoryName = nil
			r.state.sales[sid] = s
		}
	}
	return nil
}

type memSaleRepo struct {
	state      *memState
	failCreate error
}

func (r *memSaleRepo) Create(ctx context.Context, sale *domain.Sale) error {
	sale.ComputeTotal()
	if _, ok := r.state.products[sale.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	r.state.sales[sale.ID] = *sale
	// Fails after the row is written, like a commit-time error.
	return r.failCreate
}

func (r *memSaleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.sales[id]; !ok {
		return repository.ErrSaleNotFound
	}
	delete(r.state.sales, id)
	return nil
}

func (r *memSaleRepo) UnitsSold(ctx context.Context, productID uuid.UUID) (int, error) {
	total := 0
	for _, s := range r.state.sales {
		if s.ProductID == productID {
			total += s.QuantitySold
		}
	}
	return total, nil
}

func (r *memSaleRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	count := 0
	for _, s := range r.state.sales {
		if s.CategoryID != nil && *s.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

type memSaleQueryRepo struct {
	state *memState

	// captured DailySummary window
	from, to time.Time
	rows     []domain.ProductDailySales
}

func (r *memSaleQueryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	s, ok := r.state.sales[id]
	if !ok {
		return nil, repository.ErrSaleNotFound
	}
	return &s, nil
}

func (r *memSaleQueryRepo) List(ctx context.Context, productID *uuid.UUID, pageNum, pageSize int) ([]domain.Sale, int, error) {
	out := []domain.Sale{}
	for _, s := range r.state.sales {
		if productID == nil || s.ProductID == *productID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (r *memSaleQueryRepo) DailySummary(ctx context.Context, from, to time.Time) ([]domain.ProductDailySales, error) {
	r.from, r.to = from, to
	return r.rows, nil
}

// inventoryFixture wires every inventory service over one in-memory state
type inventoryFixture struct {
	state      *memState
	products   ProductService
	categories CategoryService
	sales      SaleService
	tm         *memTxManager
	queryRepo  *memSaleQueryRepo
}

func newInventoryFixture() *inventoryFixture {
	state := newMemState()
	saleRepo := &memSaleRepo{state: state}
	queryRepo := &memSaleQueryRepo{state: state}
	productRepo := &memProductRepo{state: state}
	tm := &memTxManager{state: state}

	return &inventoryFixture{
		state:      state,
		products:   NewProductService(productRepo, saleRepo),
		categories: NewCategoryService(&memCategoryRepo{state: state}, saleRepo),
		sales:      NewSaleService(tm, saleRepo, queryRepo),
		tm:         tm,
		queryRepo:  queryRepo,
	}
}
