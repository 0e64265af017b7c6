package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
)

// AccountBalance is one leaderboard row.
type AccountBalance struct {
	ID      string `json:"id"`
	Credits int64  `json:"credits"`
}

func (r *Registry) accountLocked(id string) (*models.Account, bool) {
	acc, ok := r.store.Accounts.Users[id]
	if ok {
		return acc, false
	}
	acc = &models.Account{}
	r.store.Accounts.Users[id] = acc
	return acc, true
}

// EnsureAccount returns the account, inserting a zero-valued one on first
// reference. Only an insertion is persisted.
func (r *Registry) EnsureAccount(id string) models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, created := r.accountLocked(id)
	if created {
		r.persist(store.KindAccounts)
	}
	return *acc
}

// Account returns a copy of the account without creating it.
func (r *Registry) Account(id string) (models.Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.store.Accounts.Users[id]
	if !ok {
		return models.Account{}, false
	}
	return *acc, true
}

// AdjustCredits adds delta to the balance and returns the new balance. A
// change that would leave the balance negative is rejected untouched.
func (r *Registry) AdjustCredits(id string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, _ := r.accountLocked(id)
	if acc.Credits+delta < 0 {
		return acc.Credits, ErrInsufficientCredits
	}
	acc.Credits += delta
	r.persist(store.KindAccounts)
	return acc.Credits, nil
}

// RemoveAllCredits sets the balance to zero and returns what was removed.
func (r *Registry) RemoveAllCredits(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, _ := r.accountLocked(id)
	removed := acc.Credits
	acc.Credits = 0
	r.persist(store.KindAccounts)
	return removed
}

// Transfer moves amount credits between two accounts atomically.
func (r *Registry) Transfer(from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, _ := r.accountLocked(from)
	if src.Credits < amount {
		return ErrInsufficientCredits
	}
	dst, _ := r.accountLocked(to)
	src.Credits -= amount
	dst.Credits += amount
	r.persist(store.KindAccounts)
	logger.Info(fmt.Sprintf("Transferencia de %d créditos: %s -> %s", amount, from, to), "Registry")
	return nil
}

// ClaimDaily grants the daily reward once every 24 hours.
func (r *Registry) ClaimDaily(id string) (int64, error) {
	return r.claim(id, r.opts.DailyReward, dailyCooldown, func(a *models.Account) *int64 { return &a.LastDaily })
}

// ClaimWeekly grants the weekly reward once every 7 days.
func (r *Registry) ClaimWeekly(id string) (int64, error) {
	return r.claim(id, r.opts.WeeklyReward, weeklyCooldown, func(a *models.Account) *int64 { return &a.LastWeekly })
}

func (r *Registry) claim(id string, reward int64, cooldown time.Duration, last func(*models.Account) *int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	acc, _ := r.accountLocked(id)
	stamp := last(acc)
	if next := *stamp + int64(cooldown/time.Second); *stamp != 0 && now < next {
		return 0, &CooldownError{Remaining: time.Duration(next-now) * time.Second}
	}
	acc.Credits += reward
	*stamp = now
	r.persist(store.KindAccounts)
	return reward, nil
}

// SetAdmin sets the administrator flag of an account.
func (r *Registry) SetAdmin(id string, admin bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, _ := r.accountLocked(id)
	acc.IsAdmin = admin
	r.persist(store.KindAccounts)
}

// IsAdmin reports whether the account carries the administrator flag.
func (r *Registry) IsAdmin(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.store.Accounts.Users[id]
	return ok && acc.IsAdmin
}

// Leaderboard returns the n richest accounts, highest balance first.
func (r *Registry) Leaderboard(n int) []AccountBalance {
	r.mu.Lock()
	rows := make([]AccountBalance, 0, len(r.store.Accounts.Users))
	for id, acc := range r.store.Accounts.Users {
		rows = append(rows, AccountBalance{ID: id, Credits: acc.Credits})
	}
	r.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Credits != rows[j].Credits {
			return rows[i].Credits > rows[j].Credits
		}
		return rows[i].ID < rows[j].ID
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// GambleResult is the outcome of one bet.
type GambleResult struct {
	Bet     int64 `json:"bet"`
	Payout  int64 `json:"payout"`
	Jackpot bool  `json:"jackpot"`
	Balance int64 `json:"balance"`
}

// Gamble stakes amount credits. A roll under 0.05 pays ten times the bet,
// under 0.5 pays double, anything else loses the bet.
func (r *Registry) Gamble(id string, amount int64) (GambleResult, error) {
	if amount <= 0 {
		return GambleResult{}, ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, _ := r.accountLocked(id)
	if acc.Credits < amount {
		return GambleResult{}, ErrInsufficientCredits
	}

	result := GambleResult{Bet: amount}
	switch roll := r.opts.Roll(); {
	case roll < 0.05:
		result.Payout = amount * 10
		result.Jackpot = true
	case roll < 0.5:
		result.Payout = amount * 2
	}
	acc.Credits += result.Payout - amount
	result.Balance = acc.Credits
	r.persist(store.KindAccounts)
	logger.Info(fmt.Sprintf("%s apostó %d créditos y recibió %d", id, amount, result.Payout), "Registry")
	return result, nil
}

// BulkGrant adds amount credits to every listed account with one write.
// Duplicate ids are credited once.
func (r *Registry) BulkGrant(ids []string, amount int64) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		acc, _ := r.accountLocked(id)
		acc.Credits += amount
	}
	if len(seen) > 0 {
		r.persist(store.KindAccounts)
	}
	return len(seen), nil
}
