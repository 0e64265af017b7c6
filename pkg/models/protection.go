package models

// ProtectionWindow is how long a reaction-granted protection lasts, in seconds.
const ProtectionWindow int64 = 72 * 60 * 60

// ProtectionRecord shields every resource of one account from purge until
// ExpiresAt. At most one record exists per account.
type ProtectionRecord struct {
	UserID      string `json:"user_id"`
	Emoji       string `json:"emoji"`
	ProtectedAt int64  `json:"protected_at"`
	ExpiresAt   int64  `json:"expires_at"`
}

// ActiveAt reports whether the record still protects at the given time.
func (p ProtectionRecord) ActiveAt(now int64) bool {
	return p.ExpiresAt >= now
}

// ProtectionsDocument is the persisted shape of purge_protected.json.
type ProtectionsDocument struct {
	Protected []ProtectionRecord `json:"protected"`
}

// NewProtectionsDocument returns the empty-but-valid default document.
func NewProtectionsDocument() *ProtectionsDocument {
	return &ProtectionsDocument{Protected: []ProtectionRecord{}}
}
