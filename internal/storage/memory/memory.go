// Package memory реализует storage.Store в памяти. Транзакции выполняются
// строго по очереди над копией данных; копия заменяет данные только при
// успешном завершении, поэтому откат не оставляет следов.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

// Store хранилище в памяти.
type Store struct {
	mu     sync.Mutex
	data   *dataset
	faults map[string]error
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		data:   newDataset(),
		faults: make(map[string]error),
		now:    time.Now,
	}
}

// DefaultPackages справочник пакетов для локального запуска, совпадает с
// начальной миграцией.
func DefaultPackages() []models.Package {
	return []models.Package{
		{ID: "6f1c2a6e-0d1e-4c55-9a11-000000000001", Name: "Single Session", SessionCount: 1, Price: decimal.NewFromInt(250), ValidityDays: 7, SortOrder: 1, IsActive: true},
		{ID: "6f1c2a6e-0d1e-4c55-9a11-000000000008", Name: "8 Sessions", SessionCount: 8, Price: decimal.NewFromInt(1600), ValidityDays: 30, SortOrder: 2, IsActive: true},
		{ID: "6f1c2a6e-0d1e-4c55-9a11-000000000012", Name: "12 Sessions", SessionCount: 12, Price: decimal.NewFromInt(2200), ValidityDays: 30, SortOrder: 3, IsActive: true},
		{ID: "6f1c2a6e-0d1e-4c55-9a11-000000000024", Name: "24 Sessions", SessionCount: 24, Price: decimal.NewFromInt(4000), ValidityDays: 60, SortOrder: 4, IsActive: true},
	}
}

// SeedPackages добавляет или заменяет пакеты справочника.
func (s *Store) SeedPackages(pkgs ...models.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pkgs {
		s.data.packages[p.ID] = p
	}
}

// FailOn заставляет операцию op (имя метода Repository) возвращать err.
// nil снимает сбой. Используется в тестах атомарности.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

// WithinTx выполняет fn над копией данных под общим мьютексом.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r storage.Repository) error) error {
	const op = "storage.memory.WithinTx"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &repo{d: snapshot, s: s}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.data = snapshot
	return nil
}

// auto выполняет одиночную операцию как отдельную транзакцию.
func (s *Store) auto(ctx context.Context, fn func(r *repo) error) error {
	return s.WithinTx(ctx, func(_ context.Context, r storage.Repository) error {
		return fn(r.(*repo))
	})
}

func (s *Store) GetPackage(ctx context.Context, id string) (p *models.Package, err error) {
	err = s.auto(ctx, func(r *repo) error { p, err = r.GetPackage(ctx, id); return err })
	return p, err
}

func (s *Store) GetPackageByName(ctx context.Context, name string) (p *models.Package, err error) {
	err = s.auto(ctx, func(r *repo) error { p, err = r.GetPackageByName(ctx, name); return err })
	return p, err
}

func (s *Store) ListPackages(ctx context.Context, activeOnly bool) (list []models.Package, err error) {
	err = s.auto(ctx, func(r *repo) error { list, err = r.ListPackages(ctx, activeOnly); return err })
	return list, err
}

func (s *Store) GetPlayer(ctx context.Context, id string) (p *models.Player, err error) {
	err = s.auto(ctx, func(r *repo) error { p, err = r.GetPlayer(ctx, id); return err })
	return p, err
}

func (s *Store) GetPlayerByEmail(ctx context.Context, email string) (p *models.Player, err error) {
	err = s.auto(ctx, func(r *repo) error { p, err = r.GetPlayerByEmail(ctx, email); return err })
	return p, err
}

func (s *Store) LockPlayer(ctx context.Context, id string) error {
	return s.auto(ctx, func(r *repo) error { return r.LockPlayer(ctx, id) })
}

func (s *Store) CreatePlayer(ctx context.Context, p *models.Player) error {
	return s.auto(ctx, func(r *repo) error { return r.CreatePlayer(ctx, p) })
}

func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.auto(ctx, func(r *repo) error { return r.CreateSubscription(ctx, sub) })
}

func (s *Store) GetSubscription(ctx context.Context, id string, lock bool) (sub *models.Subscription, err error) {
	err = s.auto(ctx, func(r *repo) error { sub, err = r.GetSubscription(ctx, id, lock); return err })
	return sub, err
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.auto(ctx, func(r *repo) error { return r.UpdateSubscription(ctx, sub) })
}

func (s *Store) LatestActiveSubscription(ctx context.Context, playerID, excludeID string, lock bool) (sub *models.Subscription, err error) {
	err = s.auto(ctx, func(r *repo) error {
		sub, err = r.LatestActiveSubscription(ctx, playerID, excludeID, lock)
		return err
	})
	return sub, err
}

func (s *Store) CoveringSubscription(ctx context.Context, playerID string, day time.Time, lock bool) (sub *models.Subscription, err error) {
	err = s.auto(ctx, func(r *repo) error { sub, err = r.CoveringSubscription(ctx, playerID, day, lock); return err })
	return sub, err
}

func (s *Store) ListSubscriptionsByPlayer(ctx context.Context, playerID string) (list []models.Subscription, err error) {
	err = s.auto(ctx, func(r *repo) error { list, err = r.ListSubscriptionsByPlayer(ctx, playerID); return err })
	return list, err
}

func (s *Store) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) (list []models.Subscription, err error) {
	err = s.auto(ctx, func(r *repo) error { list, err = r.ListExpiringSubscriptions(ctx, from, to); return err })
	return list, err
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return s.auto(ctx, func(r *repo) error { return r.CreatePayment(ctx, p) })
}

func (s *Store) GetPayment(ctx context.Context, id string, lock bool) (p *models.Payment, err error) {
	err = s.auto(ctx, func(r *repo) error { p, err = r.GetPayment(ctx, id, lock); return err })
	return p, err
}

func (s *Store) UpdatePayment(ctx context.Context, p *models.Payment) error {
	return s.auto(ctx, func(r *repo) error { return r.UpdatePayment(ctx, p) })
}

func (s *Store) ListPayments(ctx context.Context, filter models.PaymentFilter) (list []models.Payment, err error) {
	err = s.auto(ctx, func(r *repo) error { list, err = r.ListPayments(ctx, filter); return err })
	return list, err
}

func (s *Store) GetAttendance(ctx context.Context, key models.AttendanceKey, lock bool) (rec *models.AttendanceRecord, err error) {
	err = s.auto(ctx, func(r *repo) error { rec, err = r.GetAttendance(ctx, key, lock); return err })
	return rec, err
}

func (s *Store) UpsertAttendance(ctx context.Context, rec *models.AttendanceRecord) error {
	return s.auto(ctx, func(r *repo) error { return r.UpsertAttendance(ctx, rec) })
}

func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	return s.auto(ctx, func(r *repo) error { return r.CreateExpense(ctx, e) })
}

func (s *Store) ListExpenses(ctx context.Context, filter models.ExpenseFilter) (list []models.Expense, err error) {
	err = s.auto(ctx, func(r *repo) error { list, err = r.ListExpenses(ctx, filter); return err })
	return list, err
}

// dataset состояние хранилища. Порядок вставки хранится отдельно, чтобы
// выборки были детерминированными.
type dataset struct {
	seq          int64
	packages     map[string]models.Package
	players      map[string]models.Player
	subs         map[string]models.Subscription
	subSeq       map[string]int64
	payments     map[string]models.Payment
	paymentSeq   map[string]int64
	attendance   map[models.AttendanceKey]models.AttendanceRecord
	expenses     []models.Expense
	playerEmails map[string]string
}

func newDataset() *dataset {
	return &dataset{
		packages:     make(map[string]models.Package),
		players:      make(map[string]models.Player),
		subs:         make(map[string]models.Subscription),
		subSeq:       make(map[string]int64),
		payments:     make(map[string]models.Payment),
		paymentSeq:   make(map[string]int64),
		attendance:   make(map[models.AttendanceKey]models.AttendanceRecord),
		playerEmails: make(map[string]string),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	c.seq = d.seq
	for k, v := range d.packages {
		c.packages[k] = v
	}
	for k, v := range d.players {
		c.players[k] = v
	}
	for k, v := range d.subs {
		c.subs[k] = copySubscription(v)
	}
	for k, v := range d.subSeq {
		c.subSeq[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = copyPayment(v)
	}
	for k, v := range d.paymentSeq {
		c.paymentSeq[k] = v
	}
	for k, v := range d.attendance {
		c.attendance[k] = v
	}
	for k, v := range d.playerEmails {
		c.playerEmails[k] = v
	}
	c.expenses = append(c.expenses, d.expenses...)
	return c
}

func (d *dataset) next() int64 {
	d.seq++
	return d.seq
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copySubscription(s models.Subscription) models.Subscription {
	s.StartDate = copyTime(s.StartDate)
	s.EndDate = copyTime(s.EndDate)
	return s
}

func copyPayment(p models.Payment) models.Payment {
	p.ConfirmedAt = copyTime(p.ConfirmedAt)
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// repo операции над одной копией данных.
type repo struct {
	d *dataset
	s *Store
}

func (r *repo) fault(op string) error {
	if err, ok := r.s.faults[op]; ok {
		return fmt.Errorf("storage.memory.%s: %w", op, err)
	}
	return nil
}

func notFound(op string) error {
	return fmt.Errorf("storage.memory.%s: %w", op, storage.ErrNotFound)
}

func sortSubscriptions(list []models.Subscription, less func(a, b models.Subscription) bool) {
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}
