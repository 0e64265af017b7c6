package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
)

// nextIDLocked returns max(numeric ids)+1. Deleting the highest id makes
// that number available again.
func (r *Registry) nextIDLocked() string {
	highest := 0
	for id := range r.store.Resources.VPS {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

func (r *Registry) insertResourceLocked(owner string, cpu, ram, storage int, status models.Status) *models.Resource {
	res := &models.Resource{
		ID:         r.nextIDLocked(),
		Owner:      owner,
		CPU:        cpu,
		RAM:        ram,
		Storage:    storage,
		Status:     status,
		SharedWith: []string{},
		CreatedAt:  time.Unix(r.Now(), 0).UTC().Format(time.RFC3339),
	}
	r.store.Resources.VPS[res.ID] = res
	return res
}

func provisionRequest(res *models.Resource) models.ProvisionRequest {
	return models.ProvisionRequest{
		ResourceID: res.ID,
		Owner:      res.Owner,
		CPU:        res.CPU,
		RAM:        res.RAM,
		Storage:    res.Storage,
	}
}

// CreateResource inserts an active resource for owner and returns its id.
// Creation is refused while maintenance mode is on.
func (r *Registry) CreateResource(owner string, cpu, ram, storage int) (string, error) {
	if cpu <= 0 || ram <= 0 || storage <= 0 {
		return "", ErrInvalidCapacity
	}

	r.mu.Lock()
	if r.store.Resources.Maintenance {
		r.mu.Unlock()
		return "", ErrMaintenance
	}
	res := r.insertResourceLocked(owner, cpu, ram, storage, models.StatusActive)
	req := provisionRequest(res)
	r.persist(store.KindResources)
	r.mu.Unlock()

	logger.Info(fmt.Sprintf("VPS #%s creado para %s (%d CPU, %d GB RAM, %d GB)", req.ResourceID, owner, cpu, ram, storage), "Registry")
	r.enqueue(req)
	return req.ResourceID, nil
}

// StartTrial creates the owner's one-time trial resource, awards the trial
// bonus and arms its expiry. It returns the resource id and the deadline.
func (r *Registry) StartTrial(owner string) (string, int64, error) {
	r.mu.Lock()
	acc, created := r.accountLocked(owner)
	if acc.TrialClaimed {
		r.mu.Unlock()
		return "", 0, ErrTrialClaimed
	}

	deadline := r.Now() + models.TrialWindow
	res := r.insertResourceLocked(owner, r.opts.TrialCPU, r.opts.TrialRAM, r.opts.TrialStorage, models.StatusTrial)
	res.TrialExpires = &deadline
	acc.TrialClaimed = true
	acc.TrialActive = true
	acc.Credits += r.opts.TrialCredits
	req := provisionRequest(res)
	r.persist(store.KindResources, store.KindAccounts)
	r.mu.Unlock()

	if created {
		logger.Debug(fmt.Sprintf("Cuenta %s creada al reclamar la prueba", owner), "Registry")
	}
	logger.Info(fmt.Sprintf("VPS de prueba #%s creado para %s, expira %d", req.ResourceID, owner, deadline), "Registry")

	r.schedule(models.DeadlineTrial, req.ResourceID, deadline)
	r.enqueue(req)
	return req.ResourceID, deadline, nil
}

// lookupLocked returns the resource if it exists and allow accepts it.
func (r *Registry) lookupLocked(id string, allow Predicate) (*models.Resource, error) {
	res, ok := r.store.Resources.VPS[id]
	if !ok {
		return nil, ErrNotFound
	}
	if allow != nil && !allow(res) {
		return nil, ErrForbidden
	}
	return res, nil
}

// removeLocked deletes a resource, frees its addresses and clears the
// owner's trial flag when a trial resource goes away.
func (r *Registry) removeLocked(res *models.Resource) (accountsChanged bool) {
	delete(r.store.Resources.VPS, res.ID)
	for ip, a := range r.store.Resources.IPs {
		if a.VPS == res.ID {
			delete(r.store.Resources.IPs, ip)
		}
	}
	if _, trial := res.TrialDeadline(); trial {
		if acc, ok := r.store.Accounts.Users[res.Owner]; ok && acc.TrialActive {
			acc.TrialActive = false
			return true
		}
	}
	return false
}

// DeleteResource removes a resource and returns the removed record.
func (r *Registry) DeleteResource(id string, allow Predicate) (*models.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return nil, err
	}
	if r.removeLocked(res) {
		r.persist(store.KindResources, store.KindAccounts)
	} else {
		r.persist(store.KindResources)
	}
	return res.Clone(), nil
}

// ExpireTrial deletes a trial resource whose deadline has arrived. It returns
// false when the resource is already gone, has no trial deadline, or its
// deadline lies in the future.
func (r *Registry) ExpireTrial(id string) (*models.Resource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.store.Resources.VPS[id]
	if !ok {
		return nil, false
	}
	// A reused id may now belong to a resource this deadline never armed.
	if at, trial := res.TrialDeadline(); !trial || at > r.Now() {
		return nil, false
	}

	r.removeLocked(res)
	if acc, ok := r.store.Accounts.Users[res.Owner]; ok {
		acc.TrialActive = false
	}
	r.persist(store.KindResources, store.KindAccounts)
	return res.Clone(), true
}

// SetStatus changes the status of a resource. Moving to trial requires an
// existing trial deadline.
func (r *Registry) SetStatus(id string, status models.Status, allow Predicate) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return err
	}
	if _, trial := res.TrialDeadline(); status == models.StatusTrial && !trial {
		return ErrInvalidStatus
	}
	res.Status = status
	if status == models.StatusActive {
		res.StopReason = ""
	}
	r.persist(store.KindResources)
	return nil
}

// StopAll stops every non-trial resource and records reason on each.
func (r *Registry) StopAll(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stopped := 0
	for _, res := range r.store.Resources.VPS {
		if res.Status == models.StatusTrial {
			continue
		}
		res.Status = models.StatusStopped
		res.StopReason = reason
		stopped++
	}
	if stopped > 0 {
		r.persist(store.KindResources)
	}
	return stopped
}

// ShareWith grants account access to a resource.
func (r *Registry) ShareWith(id, account string, allow Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return err
	}
	if res.IsSharedWith(account) {
		return ErrAlreadyShared
	}
	res.SharedWith = append(res.SharedWith, account)
	r.persist(store.KindResources)
	return nil
}

// Unshare revokes a previous ShareWith.
func (r *Registry) Unshare(id, account string, allow Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return err
	}
	kept := res.SharedWith[:0]
	found := false
	for _, a := range res.SharedWith {
		if a == account {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return ErrNotShared
	}
	res.SharedWith = kept
	r.persist(store.KindResources)
	return nil
}

// Resource returns a copy of one resource.
func (r *Registry) Resource(id string) (*models.Resource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.store.Resources.VPS[id]
	if !ok {
		return nil, false
	}
	return res.Clone(), true
}

// Resources returns copies of every resource ordered by id.
func (r *Registry) Resources() []*models.Resource {
	return r.filterResources(func(*models.Resource) bool { return true })
}

// ResourcesOf returns the resources account owns or has been granted.
func (r *Registry) ResourcesOf(account string) []*models.Resource {
	return r.filterResources(func(res *models.Resource) bool {
		return res.Owner == account || res.IsSharedWith(account)
	})
}

func (r *Registry) filterResources(keep func(*models.Resource) bool) []*models.Resource {
	r.mu.Lock()
	ids := make([]string, 0, len(r.store.Resources.VPS))
	byID := make(map[string]*models.Resource)
	for id, res := range r.store.Resources.VPS {
		if keep(res) {
			ids = append(ids, id)
			byID[id] = res.Clone()
		}
	}
	r.mu.Unlock()

	sortIDs(ids)
	out := make([]*models.Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// UpdateMetadata applies fn to the metadata block of a resource.
func (r *Registry) UpdateMetadata(id string, allow Predicate, fn func(m *models.ResourceMetadata)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return err
	}
	fn(&res.ResourceMetadata)
	r.persist(store.KindResources)
	return nil
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:n]
}

// AddSnapshot records a snapshot of kind ("" or "backup") and returns its id.
func (r *Registry) AddSnapshot(id, kind string, allow Predicate) (string, error) {
	sid := shortID(12)
	created := time.Unix(r.Now(), 0).UTC().Format(time.RFC3339)
	err := r.UpdateMetadata(id, allow, func(m *models.ResourceMetadata) {
		m.Snapshots = append(m.Snapshots, models.Snapshot{ID: sid, CreatedAt: created, Type: kind})
	})
	if err != nil {
		return "", err
	}
	return sid, nil
}

// Restore marks a resource as restored from one of its snapshots.
func (r *Registry) Restore(id, snapshotID string, allow Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return err
	}
	for _, s := range res.Snapshots {
		if s.ID == snapshotID {
			res.RestoredFrom = snapshotID
			r.persist(store.KindResources)
			return nil
		}
	}
	return ErrNotFound
}

// AddNote attaches a note by author and returns its id.
func (r *Registry) AddNote(id, author, text string, allow Predicate) (string, error) {
	nid := shortID(8)
	now := r.Now()
	err := r.UpdateMetadata(id, allow, func(m *models.ResourceMetadata) {
		m.Notes = append(m.Notes, models.Note{ID: nid, Author: author, Note: text, TS: now})
	})
	if err != nil {
		return "", err
	}
	return nid, nil
}

// Notes returns a copy of the notes attached to a resource, oldest first.
func (r *Registry) Notes(id string, allow Predicate) ([]models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return nil, err
	}
	return append([]models.Note{}, res.Notes...), nil
}

// RemoveNote deletes one note from a resource.
func (r *Registry) RemoveNote(id, noteID string, allow Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return err
	}
	for i, n := range res.Notes {
		if n.ID == noteID {
			res.Notes = append(res.Notes[:i], res.Notes[i+1:]...)
			r.persist(store.KindResources)
			return nil
		}
	}
	return ErrNotFound
}

// PurgeSnapshots drops every snapshot created before now-olderThan across
// all resources and returns how many were removed. Snapshots with an
// unreadable timestamp are kept.
func (r *Registry) PurgeSnapshots(olderThan time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.Now() - int64(olderThan/time.Second)
	removed := 0
	for _, res := range r.store.Resources.VPS {
		kept := res.Snapshots[:0]
		for _, snap := range res.Snapshots {
			at, err := time.Parse(time.RFC3339, snap.CreatedAt)
			if err == nil && at.Unix() < cutoff {
				removed++
				continue
			}
			kept = append(kept, snap)
		}
		if len(kept) == 0 {
			kept = nil
		}
		res.Snapshots = kept
	}
	if removed > 0 {
		r.persist(store.KindResources)
		logger.Info(fmt.Sprintf("%d snapshots anteriores a %s eliminados", removed, olderThan), "Registry")
	}
	return removed
}

// EditCapacity changes the CPU and RAM of a resource. A zero storage keeps
// the current disk size.
func (r *Registry) EditCapacity(id string, cpu, ram, storage int, allow Predicate) error {
	if cpu <= 0 || ram <= 0 || storage < 0 {
		return ErrInvalidCapacity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, allow)
	if err != nil {
		return err
	}
	res.CPU = cpu
	res.RAM = ram
	if storage > 0 {
		res.Storage = storage
	}
	r.persist(store.KindResources)
	logger.Info(fmt.Sprintf("VPS #%s actualizado: %d CPU, %d GB RAM, %d GB", id, res.CPU, res.RAM, res.Storage), "Registry")
	return nil
}

// Rename sets the display name of a resource.
func (r *Registry) Rename(id, name string, allow Predicate) error {
	return r.UpdateMetadata(id, allow, func(m *models.ResourceMetadata) {
		m.Name = name
	})
}

// AssignAddress binds ip to a resource.
func (r *Registry) AssignAddress(id, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookupLocked(id, nil)
	if err != nil {
		return err
	}
	if r.store.Resources.IPs == nil {
		r.store.Resources.IPs = make(map[string]models.IPAssignment)
	}
	if a, taken := r.store.Resources.IPs[ip]; taken && a.VPS != id {
		return ErrAddressInUse
	}
	r.store.Resources.IPs[ip] = models.IPAssignment{VPS: id, AssignedAt: r.Now()}
	for _, have := range res.IPs {
		if have == ip {
			r.persist(store.KindResources)
			return nil
		}
	}
	res.IPs = append(res.IPs, ip)
	r.persist(store.KindResources)
	return nil
}

// ReleaseAddress frees ip wherever it is assigned.
func (r *Registry) ReleaseAddress(ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.store.Resources.IPs[ip]
	if !ok {
		return ErrNotFound
	}
	delete(r.store.Resources.IPs, ip)
	if res, ok := r.store.Resources.VPS[a.VPS]; ok {
		kept := res.IPs[:0]
		for _, have := range res.IPs {
			if have != ip {
				kept = append(kept, have)
			}
		}
		res.IPs = kept
	}
	r.persist(store.KindResources)
	return nil
}

// RecordProvisioning stores the outcome of a provisioning job. A resource
// deleted in the meantime is left alone.
func (r *Registry) RecordProvisioning(result models.ProvisionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.store.Resources.VPS[result.ResourceID]
	if !ok {
		logger.Debug(fmt.Sprintf("VPS #%s ya no existe, se descarta el resultado de aprovisionamiento", result.ResourceID), "Registry")
		return
	}
	provisioned := result.Err == nil
	res.Provisioned = &provisioned
	if provisioned {
		res.DockerName = result.Name
		res.DockerError = ""
	} else {
		res.DockerError = result.Err.Error()
	}
	r.persist(store.KindResources)
}

// SetMaintenance toggles maintenance mode.
func (r *Registry) SetMaintenance(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.Resources.Maintenance = on
	r.persist(store.KindResources)
}

// Maintenance reports whether maintenance mode is on.
func (r *Registry) Maintenance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Resources.Maintenance
}
