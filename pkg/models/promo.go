package models

// Promo is a redeemable credit code. Uses counts the redemptions left.
// ExpiresAt is a Unix timestamp, zero means the code never expires.
type Promo struct {
	Amount    int64 `json:"amount"`
	Uses      int   `json:"uses"`
	ExpiresAt int64 `json:"expiry,omitempty"`
}

// PromosDocument is the persisted shape of promos.json.
type PromosDocument struct {
	Promos map[string]*Promo `json:"promos"`
}

// NewPromosDocument returns the empty-but-valid default document.
func NewPromosDocument() *PromosDocument {
	return &PromosDocument{Promos: make(map[string]*Promo)}
}
