// Package protection decides which resources survive a purge.
//
// A resource is protected when its id is on the purge window's explicit
// resource list, when its owner is on the explicit account list, or when its
// owner holds a reaction-granted ProtectionRecord that has not yet expired.
package protection

import (
	"sort"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

// Set is the merged protection state evaluated at one instant.
type Set struct {
	resources map[string]struct{}
	accounts  map[string]struct{}
	granted   map[string]struct{}
}

// NewSet merges the explicit lists of window with every record still
// active at now.
func NewSet(window models.PurgeWindow, records []models.ProtectionRecord, now int64) *Set {
	s := &Set{
		resources: make(map[string]struct{}, len(window.ProtectedVPS)),
		accounts:  make(map[string]struct{}, len(window.ProtectedUsers)),
		granted:   make(map[string]struct{}, len(records)),
	}
	for _, id := range window.ProtectedVPS {
		s.resources[id] = struct{}{}
	}
	for _, id := range window.ProtectedUsers {
		s.accounts[id] = struct{}{}
	}
	for _, r := range records {
		if r.ActiveAt(now) {
			s.granted[r.UserID] = struct{}{}
		}
	}
	return s
}

// IsProtected reports whether the resource or its owner is shielded.
func (s *Set) IsProtected(resourceID, ownerID string) bool {
	if _, ok := s.resources[resourceID]; ok {
		return true
	}
	if _, ok := s.accounts[ownerID]; ok {
		return true
	}
	_, ok := s.granted[ownerID]
	return ok
}

// Accounts returns every protected account, explicit or granted, sorted.
func (s *Set) Accounts() []string {
	out := make([]string, 0, len(s.accounts)+len(s.granted))
	for id := range s.accounts {
		out = append(out, id)
	}
	for id := range s.granted {
		if _, dup := s.accounts[id]; !dup {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// IsProtected evaluates a single resource without building a Set.
func IsProtected(window models.PurgeWindow, records []models.ProtectionRecord, now int64, resourceID, ownerID string) bool {
	return NewSet(window, records, now).IsProtected(resourceID, ownerID)
}

// Grant returns records with any record for accountID replaced by a fresh
// one expiring ProtectionWindow seconds after now.
func Grant(records []models.ProtectionRecord, accountID, marker string, now int64) ([]models.ProtectionRecord, models.ProtectionRecord) {
	rec := models.ProtectionRecord{
		UserID:      accountID,
		Emoji:       marker,
		ProtectedAt: now,
		ExpiresAt:   now + models.ProtectionWindow,
	}
	out := make([]models.ProtectionRecord, 0, len(records)+1)
	for _, r := range records {
		if r.UserID != accountID {
			out = append(out, r)
		}
	}
	return append(out, rec), rec
}

// Active returns the records still in force at now.
func Active(records []models.ProtectionRecord, now int64) []models.ProtectionRecord {
	out := make([]models.ProtectionRecord, 0, len(records))
	for _, r := range records {
		if r.ActiveAt(now) {
			out = append(out, r)
		}
	}
	return out
}
