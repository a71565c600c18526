package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

func (r *repo) GetPackage(_ context.Context, id string) (*models.Package, error) {
	if err := r.fault("GetPackage"); err != nil {
		return nil, err
	}
	p, ok := r.d.packages[id]
	if !ok {
		return nil, notFound("GetPackage")
	}
	return &p, nil
}

func (r *repo) GetPackageByName(_ context.Context, name string) (*models.Package, error) {
	if err := r.fault("GetPackageByName"); err != nil {
		return nil, err
	}
	for _, p := range r.d.packages {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return &p, nil
		}
	}
	return nil, notFound("GetPackageByName")
}

func (r *repo) ListPackages(_ context.Context, activeOnly bool) ([]models.Package, error) {
	if err := r.fault("ListPackages"); err != nil {
		return nil, err
	}
	result := make([]models.Package, 0, len(r.d.packages))
	for _, p := range r.d.packages {
		if activeOnly && !p.IsActive {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (r *repo) GetPlayer(_ context.Context, id string) (*models.Player, error) {
	if err := r.fault("GetPlayer"); err != nil {
		return nil, err
	}
	p, ok := r.d.players[id]
	if !ok {
		return nil, notFound("GetPlayer")
	}
	return &p, nil
}

func (r *repo) GetPlayerByEmail(_ context.Context, email string) (*models.Player, error) {
	if err := r.fault("GetPlayerByEmail"); err != nil {
		return nil, err
	}
	id, ok := r.d.playerEmails[normalizeEmail(email)]
	if !ok {
		return nil, notFound("GetPlayerByEmail")
	}
	p := r.d.players[id]
	return &p, nil
}

// LockPlayer только проверяет существование: транзакции и так выполняются по очереди.
func (r *repo) LockPlayer(_ context.Context, id string) error {
	if err := r.fault("LockPlayer"); err != nil {
		return err
	}
	if _, ok := r.d.players[id]; !ok {
		return notFound("LockPlayer")
	}
	return nil
}

func (r *repo) CreatePlayer(_ context.Context, p *models.Player) error {
	if err := r.fault("CreatePlayer"); err != nil {
		return err
	}
	p.Email = normalizeEmail(p.Email)
	if _, ok := r.d.playerEmails[p.Email]; ok {
		return fmt.Errorf("storage.memory.CreatePlayer: %w: email %s", storage.ErrConflict, p.Email)
	}
	if _, ok := r.d.players[p.ID]; ok {
		return fmt.Errorf("storage.memory.CreatePlayer: %w: id %s", storage.ErrConflict, p.ID)
	}
	p.CreatedAt = r.s.now().UTC()
	r.d.players[p.ID] = *p
	r.d.playerEmails[p.Email] = p.ID
	return nil
}

func (r *repo) CreateSubscription(_ context.Context, s *models.Subscription) error {
	if err := r.fault("CreateSubscription"); err != nil {
		return err
	}
	if _, ok := r.d.players[s.PlayerID]; !ok {
		return fmt.Errorf("storage.memory.CreateSubscription: unknown player %s", s.PlayerID)
	}
	if _, ok := r.d.packages[s.PackageID]; !ok {
		return fmt.Errorf("storage.memory.CreateSubscription: unknown package %s", s.PackageID)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("storage.memory.CreateSubscription: %w", err)
	}
	if _, ok := r.d.subs[s.ID]; ok {
		return fmt.Errorf("storage.memory.CreateSubscription: %w: id %s", storage.ErrConflict, s.ID)
	}
	s.CreatedAt = r.s.now().UTC()
	r.d.subs[s.ID] = copySubscription(*s)
	r.d.subSeq[s.ID] = r.d.next()
	return nil
}

func (r *repo) GetSubscription(_ context.Context, id string, _ bool) (*models.Subscription, error) {
	if err := r.fault("GetSubscription"); err != nil {
		return nil, err
	}
	s, ok := r.d.subs[id]
	if !ok {
		return nil, notFound("GetSubscription")
	}
	s = copySubscription(s)
	return &s, nil
}

func (r *repo) UpdateSubscription(_ context.Context, s *models.Subscription) error {
	if err := r.fault("UpdateSubscription"); err != nil {
		return err
	}
	cur, ok := r.d.subs[s.ID]
	if !ok {
		return notFound("UpdateSubscription")
	}
	cur.SessionsRemaining = s.SessionsRemaining
	cur.StartDate = copyTime(s.StartDate)
	cur.EndDate = copyTime(s.EndDate)
	cur.Status = s.Status
	if err := cur.Validate(); err != nil {
		return fmt.Errorf("storage.memory.UpdateSubscription: %w", err)
	}
	r.d.subs[s.ID] = cur
	return nil
}

func (r *repo) playerSubscriptions(playerID string, keep func(models.Subscription) bool) []models.Subscription {
	result := make([]models.Subscription, 0)
	for _, s := range r.d.subs {
		if s.PlayerID == playerID && keep(s) {
			result = append(result, copySubscription(s))
		}
	}
	return result
}

func (r *repo) LatestActiveSubscription(_ context.Context, playerID, excludeID string, _ bool) (*models.Subscription, error) {
	if err := r.fault("LatestActiveSubscription"); err != nil {
		return nil, err
	}
	list := r.playerSubscriptions(playerID, func(s models.Subscription) bool {
		return s.Status == models.SubscriptionActive && s.EndDate != nil && s.ID != excludeID
	})
	if len(list) == 0 {
		return nil, notFound("LatestActiveSubscription")
	}
	sortSubscriptions(list, func(a, b models.Subscription) bool {
		if !a.EndDate.Equal(*b.EndDate) {
			return a.EndDate.After(*b.EndDate)
		}
		return r.d.subSeq[a.ID] > r.d.subSeq[b.ID]
	})
	return &list[0], nil
}

func (r *repo) CoveringSubscription(_ context.Context, playerID string, day time.Time, _ bool) (*models.Subscription, error) {
	if err := r.fault("CoveringSubscription"); err != nil {
		return nil, err
	}
	day = clock.Day(day)
	list := r.playerSubscriptions(playerID, func(s models.Subscription) bool {
		return s.Status == models.SubscriptionActive && s.Covers(day)
	})
	if len(list) == 0 {
		return nil, notFound("CoveringSubscription")
	}
	sortSubscriptions(list, func(a, b models.Subscription) bool {
		if !a.EndDate.Equal(*b.EndDate) {
			return a.EndDate.Before(*b.EndDate)
		}
		return r.d.subSeq[a.ID] < r.d.subSeq[b.ID]
	})
	return &list[0], nil
}

func (r *repo) ListSubscriptionsByPlayer(_ context.Context, playerID string) ([]models.Subscription, error) {
	if err := r.fault("ListSubscriptionsByPlayer"); err != nil {
		return nil, err
	}
	list := r.playerSubscriptions(playerID, func(models.Subscription) bool { return true })
	sortSubscriptions(list, func(a, b models.Subscription) bool {
		return r.d.subSeq[a.ID] > r.d.subSeq[b.ID]
	})
	return list, nil
}

func (r *repo) ListExpiringSubscriptions(_ context.Context, from, to time.Time) ([]models.Subscription, error) {
	if err := r.fault("ListExpiringSubscriptions"); err != nil {
		return nil, err
	}
	from, to = clock.Day(from), clock.Day(to)
	result := make([]models.Subscription, 0)
	for _, s := range r.d.subs {
		if s.Status != models.SubscriptionActive || s.EndDate == nil {
			continue
		}
		if s.EndDate.Before(from) || s.EndDate.After(to) {
			continue
		}
		result = append(result, copySubscription(s))
	}
	sortSubscriptions(result, func(a, b models.Subscription) bool {
		if !a.EndDate.Equal(*b.EndDate) {
			return a.EndDate.Before(*b.EndDate)
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (r *repo) CreatePayment(_ context.Context, p *models.Payment) error {
	if err := r.fault("CreatePayment"); err != nil {
		return err
	}
	if _, ok := r.d.subs[p.SubscriptionID]; !ok {
		return fmt.Errorf("storage.memory.CreatePayment: unknown subscription %s", p.SubscriptionID)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("storage.memory.CreatePayment: %w", err)
	}
	if _, ok := r.d.payments[p.ID]; ok {
		return fmt.Errorf("storage.memory.CreatePayment: %w: id %s", storage.ErrConflict, p.ID)
	}
	p.CreatedAt = r.s.now().UTC()
	r.d.payments[p.ID] = copyPayment(*p)
	r.d.paymentSeq[p.ID] = r.d.next()
	return nil
}

func (r *repo) GetPayment(_ context.Context, id string, _ bool) (*models.Payment, error) {
	if err := r.fault("GetPayment"); err != nil {
		return nil, err
	}
	p, ok := r.d.payments[id]
	if !ok {
		return nil, notFound("GetPayment")
	}
	p = copyPayment(p)
	return &p, nil
}

func (r *repo) UpdatePayment(_ context.Context, p *models.Payment) error {
	if err := r.fault("UpdatePayment"); err != nil {
		return err
	}
	cur, ok := r.d.payments[p.ID]
	if !ok {
		return notFound("UpdatePayment")
	}
	cur.Status = p.Status
	cur.ConfirmedBy = p.ConfirmedBy
	cur.ConfirmedAt = copyTime(p.ConfirmedAt)
	cur.RejectionReason = p.RejectionReason
	if err := cur.Validate(); err != nil {
		return fmt.Errorf("storage.memory.UpdatePayment: %w", err)
	}
	r.d.payments[p.ID] = cur
	return nil
}

func (r *repo) ListPayments(_ context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	if err := r.fault("ListPayments"); err != nil {
		return nil, err
	}
	result := make([]models.Payment, 0)
	for _, p := range r.d.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.PlayerID != "" && p.PlayerID != filter.PlayerID {
			continue
		}
		result = append(result, copyPayment(p))
	}
	sort.Slice(result, func(i, j int) bool {
		return r.d.paymentSeq[result[i].ID] > r.d.paymentSeq[result[j].ID]
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []models.Payment{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *repo) GetAttendance(_ context.Context, key models.AttendanceKey, _ bool) (*models.AttendanceRecord, error) {
	if err := r.fault("GetAttendance"); err != nil {
		return nil, err
	}
	key.SessionDate = clock.Day(key.SessionDate)
	rec, ok := r.d.attendance[key]
	if !ok {
		return nil, notFound("GetAttendance")
	}
	return &rec, nil
}

func (r *repo) UpsertAttendance(_ context.Context, rec *models.AttendanceRecord) error {
	if err := r.fault("UpsertAttendance"); err != nil {
		return err
	}
	if _, ok := r.d.players[rec.PlayerID]; !ok {
		return fmt.Errorf("storage.memory.UpsertAttendance: unknown player %s", rec.PlayerID)
	}
	rec.SessionDate = clock.Day(rec.SessionDate)
	rec.UpdatedAt = r.s.now().UTC()
	r.d.attendance[rec.Key()] = *rec
	return nil
}

func (r *repo) CreateExpense(_ context.Context, e *models.Expense) error {
	if err := r.fault("CreateExpense"); err != nil {
		return err
	}
	e.CreatedAt = r.s.now().UTC()
	r.d.expenses = append(r.d.expenses, *e)
	return nil
}

func (r *repo) ListExpenses(_ context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	if err := r.fault("ListExpenses"); err != nil {
		return nil, err
	}
	from, to := clock.Day(filter.From), clock.Day(filter.To)
	result := make([]models.Expense, 0)
	for _, e := range r.d.expenses {
		if e.ExpenseDate.Before(from) || e.ExpenseDate.After(to) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ExpenseDate.Before(result[j].ExpenseDate)
	})
	return result, nil
}
