package inventory_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

// ── Almacén en memoria ───────────────────────────────────────────────────────
//
// memStore imita la base: cada Run toma el mutex (equivale al bloqueo de fila, pero global),
// trabaja sobre una copia y solo la publica si fn no devuelve error (commit/rollback).

type memData struct {
	articles  map[string]*entity.Article
	balances  map[string]*entity.StockBalance
	movements []*entity.StockMovement
	stats     map[string]*entity.DemandStats
	settings  map[string]*entity.EstimatorSettings
}

func newMemData() *memData {
	return &memData{
		articles: map[string]*entity.Article{},
		balances: map[string]*entity.StockBalance{},
		stats:    map[string]*entity.DemandStats{},
		settings: map[string]*entity.EstimatorSettings{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.articles {
		a := *v
		c.articles[k] = &a
	}
	for k, v := range d.balances {
		b := *v
		c.balances[k] = &b
	}
	c.movements = append([]*entity.StockMovement(nil), d.movements...)
	for k, v := range d.stats {
		c.stats[k] = v
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	return c
}

type memStore struct {
	mu   sync.Mutex
	data *memData
	// failCreate hace fallar el próximo insert de movimiento (simula error de infraestructura).
	failCreate error
	// onOrder cantidades pedidas por artículo.
	onOrder map[string]decimal.Decimal
	txCount int
}

func newMemStore() *memStore {
	return &memStore{data: newMemData(), onOrder: map[string]decimal.Decimal{}}
}

func balanceMapKey(k entity.BalanceKey) string {
	return k.CompanyID + "|" + k.ArticleID + "|" + k.Warehouse()
}

func settingsMapKey(companyID string, supplierID *string) string {
	if supplierID == nil {
		return companyID + "|"
	}
	return companyID + "|" + *supplierID
}

// scope indica si el repo trabaja dentro de una tx (datos ya bloqueados) o contra el store.
type scope struct {
	s *memStore
	d *memData
}

func (sc scope) do(fn func(d *memData)) {
	if sc.d != nil {
		fn(sc.d)
		return
	}
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	fn(sc.s.data)
}

func (s *memStore) pool() scope { return scope{s: s} }

// ── TxRunner ─────────────────────────────────────────────────────────────────

type memTxRunner struct{ s *memStore }

func (r memTxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	articleRepo repository.ArticleRepository,
) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.txCount++
	work := r.s.data.clone()
	sc := scope{s: r.s, d: work}
	if err := fn(&memMovements{sc}, &memBalances{sc}, &memArticles{sc}); err != nil {
		return err
	}
	r.s.data = work
	return nil
}

// ── Artículos ────────────────────────────────────────────────────────────────

type memArticles struct{ scope }

func (r *memArticles) GetByID(_ context.Context, companyID, id string) (*entity.Article, error) {
	var out *entity.Article
	r.do(func(d *memData) {
		if a, ok := d.articles[id]; ok && a.CompanyID == companyID {
			c := *a
			out = &c
		}
	})
	return out, nil
}

func (r *memArticles) GetMany(_ context.Context, companyID string, ids []string) (map[string]*entity.Article, error) {
	out := map[string]*entity.Article{}
	r.do(func(d *memData) {
		for _, id := range ids {
			if a, ok := d.articles[id]; ok && a.CompanyID == companyID {
				c := *a
				out[id] = &c
			}
		}
	})
	return out, nil
}

func (r *memArticles) ListStockControlled(_ context.Context, companyID string) ([]*entity.Article, error) {
	var out []*entity.Article
	r.do(func(d *memData) {
		for _, a := range d.articles {
			if a.CompanyID == companyID && a.StockControlled && !a.IsService {
				c := *a
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memArticles) UpdateStockTotal(_ context.Context, companyID, articleID string, total decimal.Decimal) error {
	r.do(func(d *memData) {
		if a, ok := d.articles[articleID]; ok && a.CompanyID == companyID {
			a.StockTotal = total
		}
	})
	return nil
}

// ── Saldos ───────────────────────────────────────────────────────────────────

type memBalances struct{ scope }

func (r *memBalances) Get(_ context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	out := &entity.StockBalance{BalanceKey: key}
	r.do(func(d *memData) {
		if b, ok := d.balances[balanceMapKey(key)]; ok {
			c := *b
			out = &c
		}
	})
	return out, nil
}

func (r *memBalances) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	if r.d == nil {
		return nil, errors.New("GetForUpdate fuera de transacción")
	}
	// Igual que la base: la fila se crea en cero si falta.
	r.do(func(d *memData) {
		if _, ok := d.balances[balanceMapKey(key)]; !ok {
			d.balances[balanceMapKey(key)] = &entity.StockBalance{BalanceKey: key}
		}
	})
	return r.Get(ctx, key)
}

func (r *memBalances) Upsert(_ context.Context, b *entity.StockBalance) error {
	r.do(func(d *memData) {
		c := *b
		d.balances[balanceMapKey(b.BalanceKey)] = &c
	})
	return nil
}

func (r *memBalances) SumByArticle(_ context.Context, companyID, articleID string) (decimal.Decimal, error) {
	total := decimal.Zero
	r.do(func(d *memData) {
		for _, b := range d.balances {
			if b.CompanyID == companyID && b.ArticleID == articleID {
				total = total.Add(b.Quantity)
			}
		}
	})
	return total, nil
}

// ── Movimientos ──────────────────────────────────────────────────────────────

type memMovements struct{ scope }

func (r *memMovements) Create(_ context.Context, m *entity.StockMovement) error {
	var err error
	r.do(func(d *memData) {
		if r.s.failCreate != nil {
			err, r.s.failCreate = r.s.failCreate, nil
			return
		}
		if m.IdempotencyKey != "" {
			for _, e := range d.movements {
				if e.CompanyID == m.CompanyID && e.IdempotencyKey == m.IdempotencyKey {
					err = domain.ErrDuplicate
					return
				}
			}
		}
		c := *m
		d.movements = append(d.movements, &c)
	})
	return err
}

func (r *memMovements) GetByIdempotencyKey(_ context.Context, companyID, key string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	r.do(func(d *memData) {
		for _, m := range d.movements {
			if m.CompanyID == companyID && m.IdempotencyKey == key {
				c := *m
				out = &c
				return
			}
		}
	})
	return out, nil
}

func matches(m *entity.StockMovement, f repository.MovementFilter) bool {
	if m.CompanyID != f.CompanyID || m.ArticleID != f.ArticleID {
		return false
	}
	if !f.AllWarehouses && m.Key().Warehouse() != (entity.BalanceKey{WarehouseID: f.WarehouseID}).Warehouse() {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.Before != nil && !m.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

// filtered aplica el filtro en orden (created_at, inserción) y luego Offset/Limit.
func (r *memMovements) filtered(f repository.MovementFilter) []*entity.StockMovement {
	var out []*entity.StockMovement
	r.do(func(d *memData) {
		for _, m := range d.movements {
			if matches(m, f) {
				c := *m
				out = append(out, &c)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

func (r *memMovements) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	return r.filtered(f), nil
}

func (r *memMovements) Count(_ context.Context, f repository.MovementFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	return len(r.filtered(f)), nil
}

func (r *memMovements) SumSigned(_ context.Context, f repository.MovementFilter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range r.filtered(f) {
		total = total.Add(m.SignedQuantity())
	}
	return total, nil
}

// reverted documentos con algún movimiento de reverso para el artículo.
func reverted(d *memData, companyID, articleID string) map[string]bool {
	out := map[string]bool{}
	for _, m := range d.movements {
		if m.CompanyID == companyID && m.ArticleID == articleID &&
			m.Reason.IsRevert() {
			out[m.DocumentID] = true
		}
	}
	return out
}

func (r *memMovements) ConsumptionSince(_ context.Context, companyID, articleID string, since time.Time) ([]repository.DailyConsumption, error) {
	byDay := map[string]decimal.Decimal{}
	r.do(func(d *memData) {
		rev := reverted(d, companyID, articleID)
		for _, m := range d.movements {
			if m.CompanyID != companyID || m.ArticleID != articleID || !m.Reason.IsConsumption() ||
				m.CreatedAt.Before(since) || rev[m.DocumentID] {
				continue
			}
			day := m.CreatedAt.UTC().Format(time.DateOnly)
			byDay[day] = byDay[day].Add(m.BaseQuantity)
		}
	})
	out := make([]repository.DailyConsumption, 0, len(byDay))
	for day, q := range byDay {
		t, _ := time.Parse(time.DateOnly, day)
		out = append(out, repository.DailyConsumption{Day: t, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (r *memMovements) LastConsumptionAt(_ context.Context, companyID, articleID string) (*time.Time, error) {
	var last *time.Time
	r.do(func(d *memData) {
		rev := reverted(d, companyID, articleID)
		for _, m := range d.movements {
			if m.CompanyID != companyID || m.ArticleID != articleID || !m.Reason.IsConsumption() || rev[m.DocumentID] {
				continue
			}
			if last == nil || m.CreatedAt.After(*last) {
				t := m.CreatedAt
				last = &t
			}
		}
	})
	return last, nil
}

// ── Estadísticas, configuración y pedidos ───────────────────────────────────

type memStats struct{ scope }

func (r *memStats) Get(_ context.Context, companyID, articleID string) (*entity.DemandStats, error) {
	var out *entity.DemandStats
	r.do(func(d *memData) {
		if s, ok := d.stats[companyID+"|"+articleID]; ok {
			c := *s
			out = &c
		}
	})
	return out, nil
}

func (r *memStats) Upsert(_ context.Context, s *entity.DemandStats) error {
	r.do(func(d *memData) {
		c := *s
		d.stats[s.CompanyID+"|"+s.ArticleID] = &c
	})
	return nil
}

type memSettings struct{ scope }

func (r *memSettings) Get(_ context.Context, companyID string, supplierID *string) (*entity.EstimatorSettings, error) {
	var out *entity.EstimatorSettings
	r.do(func(d *memData) {
		if s, ok := d.settings[settingsMapKey(companyID, supplierID)]; ok {
			c := *s
			out = &c
		}
	})
	return out, nil
}

func (r *memSettings) Upsert(_ context.Context, s *entity.EstimatorSettings) error {
	r.do(func(d *memData) {
		c := *s
		d.settings[settingsMapKey(s.CompanyID, s.SupplierID)] = &c
	})
	return nil
}

type memOnOrder struct{ s *memStore }

func (r memOnOrder) OnOrder(_ context.Context, _ string, articleID string, _ *string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.onOrder[articleID], nil
}

// ── Lock de reconstrucción ───────────────────────────────────────────────────

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Lock(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, app.ErrLockNotAcquired
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

// ── Helpers de datos ─────────────────────────────────────────────────────────

const company = "c1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func (s *memStore) addArticle(a *entity.Article) *entity.Article {
	if a.CompanyID == "" {
		a.CompanyID = company
	}
	if a.BaseUnit == "" {
		a.BaseUnit = "UND"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.data.articles[a.ID] = &c
	return a
}

func (s *memStore) product(id string) *entity.Article {
	return s.addArticle(&entity.Article{ID: id, SKU: strings.ToUpper(id), Name: "Producto " + id, StockControlled: true})
}

func (s *memStore) article(id string) *entity.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := *s.data.articles[id]
	return &a
}

func (s *memStore) balance(articleID string, warehouseID *string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.data.balances[balanceMapKey(entity.BalanceKey{CompanyID: company, ArticleID: articleID, WarehouseID: warehouseID})]; ok {
		return b.Quantity
	}
	return decimal.Zero
}

// hasBalanceRow indica si existe la fila de saldo, aunque esté en cero.
func (s *memStore) hasBalanceRow(articleID string, warehouseID *string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data.balances[balanceMapKey(entity.BalanceKey{CompanyID: company, ArticleID: articleID, WarehouseID: warehouseID})]
	return ok
}

func (s *memStore) movementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.movements)
}

// seedMovement inserta un movimiento histórico y ajusta el saldo sin pasar por el caso de uso.
func (s *memStore) seedMovement(m *entity.StockMovement) {
	if m.CompanyID == "" {
		m.CompanyID = company
	}
	if m.Unit == "" {
		m.Unit = "UND"
	}
	if m.Quantity.IsZero() {
		m.Quantity = m.BaseQuantity
	}
	if m.ID == "" {
		m.ID = "seed-" + m.CreatedAt.Format(time.RFC3339Nano) + "-" + m.ArticleID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.movements = append(s.data.movements, m)
	k := balanceMapKey(m.Key())
	b, ok := s.data.balances[k]
	if !ok {
		b = &entity.StockBalance{BalanceKey: m.Key()}
		s.data.balances[k] = b
	}
	b.Quantity = b.Quantity.Add(m.SignedQuantity())
}
