package promo

import (
	"testing"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
	"github.com/stretchr/testify/assert"
)

func TestPromoLine(t *testing.T) {
	p := registry.PromoCode{Code: "SPRING", Promo: models.Promo{Amount: 50, Uses: 3}}
	assert.Equal(t, "`SPRING` · **50** créditos (3 usos restantes)", PromoLine(p))

	p.ExpiresAt = 1_700_000_000
	assert.Equal(t, "`SPRING` · **50** créditos (3 usos restantes) · expira <t:1700000000:R>", PromoLine(p))
}
