package models

// Account is the per-user record holding the credit balance and entitlement
// flags. Accounts are created on first reference and never deleted.
type Account struct {
	Credits      int64 `json:"credits"`
	TrialClaimed bool  `json:"trial_claimed"`
	TrialActive  bool  `json:"trial_active"`
	IsAdmin      bool  `json:"is_admin"`
	LastDaily    int64 `json:"last_daily,omitempty"`
	LastWeekly   int64 `json:"last_weekly,omitempty"`
}

// AccountsDocument is the persisted shape of user_database.json.
type AccountsDocument struct {
	Users map[string]*Account `json:"users"`
}

// NewAccountsDocument returns the empty-but-valid default document.
func NewAccountsDocument() *AccountsDocument {
	return &AccountsDocument{Users: make(map[string]*Account)}
}
