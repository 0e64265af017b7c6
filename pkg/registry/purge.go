package registry

import (
	"fmt"

	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/protection"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
)

// PurgeTrigger tells a sweep which of the two purge runs it is.
type PurgeTrigger int

const (
	// PurgeImmediate runs right after the window opens.
	PurgeImmediate PurgeTrigger = iota
	// PurgeDeferred runs when the window ends.
	PurgeDeferred
)

func (t PurgeTrigger) String() string {
	if t == PurgeDeferred {
		return "deferred"
	}
	return "immediate"
}

// PurgeResult describes one completed sweep.
type PurgeResult struct {
	Trigger   PurgeTrigger
	Removed   []string
	Kept      int
	ChannelID models.Snowflake
	// Skipped is set when a deferred sweep found nothing owed, for example
	// after the purge was stopped.
	Skipped bool
}

// PurgeStatus summarizes the purge window for display.
type PurgeStatus struct {
	Window            models.PurgeWindow `json:"window"`
	ActiveProtections int                `json:"active_protections"`
	ProtectedAccounts []string           `json:"protected_accounts"`
}

func cloneWindow(w models.PurgeWindow) models.PurgeWindow {
	w.ProtectedVPS = append([]string{}, w.ProtectedVPS...)
	w.ProtectedUsers = append([]string{}, w.ProtectedUsers...)
	return w
}

// OpenPurgeWindow activates the purge window around the rallying message and
// arms the end-of-window sweep. Opening is refused while a previous window
// still owes its deferred sweep.
func (r *Registry) OpenPurgeWindow(channelID, messageID models.Snowflake) (models.PurgeWindow, error) {
	r.mu.Lock()
	w := &r.store.Resources.Purge
	if w.SweepPending {
		r.mu.Unlock()
		return models.PurgeWindow{}, ErrPurgePending
	}

	now := r.Now()
	w.Active = true
	w.ChannelID = channelID
	w.MessageID = messageID
	w.StartTS = now
	w.EndTS = now + models.ProtectionWindow
	w.SweepPending = true
	snapshot := cloneWindow(*w)
	r.persist(store.KindResources)
	r.mu.Unlock()

	logger.Warn(fmt.Sprintf("Purga iniciada, mensaje %s, termina %d", messageID, snapshot.EndTS), "Registry")
	r.schedule(models.DeadlinePurge, models.PurgeDeadlineID, snapshot.EndTS)
	return snapshot, nil
}

// StopPurge deactivates the window and cancels the owed deferred sweep by
// clearing it from the record. It reports whether anything was running.
func (r *Registry) StopPurge() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := &r.store.Resources.Purge
	if !w.Active && !w.SweepPending {
		return false
	}
	w.Active = false
	w.SweepPending = false
	r.persist(store.KindResources)
	return true
}

// PurgeInfo returns the purge window, the number of active protections and
// every account a sweep would spare right now.
func (r *Registry) PurgeInfo() PurgeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	w := r.store.Resources.Purge
	return PurgeStatus{
		Window:            cloneWindow(w),
		ActiveProtections: len(protection.Active(r.store.Protections.Protected, now)),
		ProtectedAccounts: protection.NewSet(w, r.store.Protections.Protected, now).Accounts(),
	}
}

func addUnique(list []string, id string) ([]string, bool) {
	for _, have := range list {
		if have == id {
			return list, false
		}
	}
	return append(list, id), true
}

func removeValue(list []string, id string) ([]string, bool) {
	out := make([]string, 0, len(list))
	found := false
	for _, have := range list {
		if have == id {
			found = true
			continue
		}
		out = append(out, have)
	}
	return out, found
}

func (r *Registry) editList(list *[]string, id string, edit func([]string, string) ([]string, bool)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, changed := edit(*list, id)
	if changed {
		*list = next
		r.persist(store.KindResources)
	}
	return changed
}

// ProtectResource adds a resource id to the explicit purge allow-list.
func (r *Registry) ProtectResource(id string) bool {
	return r.editList(&r.store.Resources.Purge.ProtectedVPS, id, addUnique)
}

// UnprotectResource removes a resource id from the explicit allow-list.
func (r *Registry) UnprotectResource(id string) bool {
	return r.editList(&r.store.Resources.Purge.ProtectedVPS, id, removeValue)
}

// ProtectAccount adds an account to the explicit purge allow-list.
func (r *Registry) ProtectAccount(id string) bool {
	return r.editList(&r.store.Resources.Purge.ProtectedUsers, id, addUnique)
}

// UnprotectAccount removes an account from the explicit allow-list.
func (r *Registry) UnprotectAccount(id string) bool {
	return r.editList(&r.store.Resources.Purge.ProtectedUsers, id, removeValue)
}

// GrantProtection gives account a fresh 72h protection, replacing any
// earlier record it held.
func (r *Registry) GrantProtection(account, marker string) models.ProtectionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grantLocked(account, marker)
}

func (r *Registry) grantLocked(account, marker string) models.ProtectionRecord {
	records, rec := protection.Grant(r.store.Protections.Protected, account, marker, r.Now())
	r.store.Protections.Protected = records
	r.persist(store.KindProtections)
	return rec
}

// GrantProtectionForReaction grants protection only when messageID is the
// purge rallying message. Reactions anywhere else are ignored.
func (r *Registry) GrantProtectionForReaction(messageID, account, marker string) (models.ProtectionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.store.Resources.Purge
	if w.MessageID == "" || w.MessageID.String() != messageID {
		return models.ProtectionRecord{}, false
	}
	return r.grantLocked(account, marker), true
}

// IsProtected evaluates the merged protection sources for one resource.
func (r *Registry) IsProtected(resourceID, ownerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return protection.IsProtected(r.store.Resources.Purge, r.store.Protections.Protected, r.Now(), resourceID, ownerID)
}

// Sweep deletes every resource that is not protected and closes the window.
// The resource document is persisted once after the whole sweep. A deferred
// sweep that is no longer owed, or whose window has not ended yet, does
// nothing.
func (r *Registry) Sweep(trigger PurgeTrigger) PurgeResult {
	return r.sweep(trigger, 0)
}

// SweepDeferred runs the deferred sweep armed for a window ending at endTS.
// A timer left over from a stopped window never matches the current EndTS
// and is skipped.
func (r *Registry) SweepDeferred(endTS int64) PurgeResult {
	return r.sweep(PurgeDeferred, endTS)
}

func (r *Registry) sweep(trigger PurgeTrigger, endTS int64) PurgeResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := &r.store.Resources.Purge
	result := PurgeResult{Trigger: trigger, ChannelID: w.ChannelID, Removed: []string{}}
	if trigger == PurgeDeferred {
		if !w.SweepPending || w.EndTS > r.Now() || (endTS != 0 && endTS != w.EndTS) {
			result.Skipped = true
			return result
		}
		w.SweepPending = false
	}

	set := protection.NewSet(*w, r.store.Protections.Protected, r.Now())
	var doomed []*models.Resource
	for id, res := range r.store.Resources.VPS {
		if set.IsProtected(id, res.Owner) {
			result.Kept++
			continue
		}
		doomed = append(doomed, res)
	}

	accountsChanged := false
	for _, res := range doomed {
		if r.removeLocked(res) {
			accountsChanged = true
		}
		result.Removed = append(result.Removed, res.ID)
	}
	sortIDs(result.Removed)

	w.Active = false
	r.persist(store.KindResources)
	if accountsChanged {
		r.persist(store.KindAccounts)
	}
	return result
}
