package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
)

// PromoCode is a promo with its code, as listed to admins.
type PromoCode struct {
	Code string `json:"code"`
	models.Promo
}

// CreatePromo creates or replaces a promo code. expiresAt zero means no
// expiry.
func (r *Registry) CreatePromo(code string, amount int64, uses int, expiresAt int64) (PromoCode, error) {
	code = strings.TrimSpace(code)
	if amount <= 0 {
		return PromoCode{}, ErrInvalidAmount
	}
	if code == "" || uses <= 0 {
		return PromoCode{}, ErrInvalidPromo
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := &models.Promo{Amount: amount, Uses: uses, ExpiresAt: expiresAt}
	r.store.Promos.Promos[code] = p
	r.persist(store.KindPromos)
	logger.Info(fmt.Sprintf("Código promocional %s creado: %d créditos, %d usos", code, amount, uses), "Registry")
	return PromoCode{Code: code, Promo: *p}, nil
}

// RemovePromo deletes a promo code and reports whether it existed.
func (r *Registry) RemovePromo(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store.Promos.Promos[code]; !ok {
		return false
	}
	delete(r.store.Promos.Promos, code)
	r.persist(store.KindPromos)
	return true
}

// Promo returns a copy of one promo code.
func (r *Registry) Promo(code string) (PromoCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.store.Promos.Promos[code]
	if !ok {
		return PromoCode{}, false
	}
	return PromoCode{Code: code, Promo: *p}, true
}

// Promos lists every promo code sorted by code.
func (r *Registry) Promos() []PromoCode {
	r.mu.Lock()
	out := make([]PromoCode, 0, len(r.store.Promos.Promos))
	for code, p := range r.store.Promos.Promos {
		out = append(out, PromoCode{Code: code, Promo: *p})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// RedeemPromo credits the promo amount to the account and consumes one use.
// A code without uses left or past its expiry is rejected untouched.
func (r *Registry) RedeemPromo(account, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.store.Promos.Promos[code]
	if !ok {
		return 0, ErrPromoNotFound
	}
	if p.Uses <= 0 || (p.ExpiresAt != 0 && p.ExpiresAt <= r.Now()) {
		return 0, ErrPromoExpired
	}

	acc, _ := r.accountLocked(account)
	acc.Credits += p.Amount
	p.Uses--
	r.persist(store.KindAccounts, store.KindPromos)
	logger.Info(fmt.Sprintf("%s canjeó el código %s (%d créditos)", account, code, p.Amount), "Registry")
	return p.Amount, nil
}
