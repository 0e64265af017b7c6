package registry

import (
	"sort"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/protection"
)

// ListPending enumerates every deadline recorded in the documents: trial
// expiries, giveaway ends and an owed deferred purge sweep. The scheduler
// arms each of them once at startup.
func (r *Registry) ListPending() []models.Deadline {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Deadline
	for id, res := range r.store.Resources.VPS {
		if at, ok := res.TrialDeadline(); ok {
			out = append(out, models.Deadline{Kind: models.DeadlineTrial, ID: id, At: at})
		}
	}
	for id, g := range r.store.Giveaways.Giveaways {
		out = append(out, models.Deadline{Kind: models.DeadlineGiveaway, ID: id, At: g.EndTS})
	}
	if w := r.store.Resources.Purge; w.SweepPending {
		out = append(out, models.Deadline{Kind: models.DeadlinePurge, ID: models.PurgeDeadlineID, At: w.EndTS})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At < out[j].At
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Stats is a point-in-time count of the registry contents.
type Stats struct {
	Accounts          int  `json:"accounts"`
	Resources         int  `json:"resources"`
	Trials            int  `json:"trials"`
	Giveaways         int  `json:"giveaways"`
	ActiveProtections int  `json:"active_protections"`
	PurgeActive       bool `json:"purge_active"`
	Maintenance       bool `json:"maintenance"`
}

// Stats counts entities under the registry lock.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Accounts:          len(r.store.Accounts.Users),
		Resources:         len(r.store.Resources.VPS),
		Giveaways:         len(r.store.Giveaways.Giveaways),
		ActiveProtections: len(protection.Active(r.store.Protections.Protected, r.Now())),
		PurgeActive:       r.store.Resources.Purge.Active,
		Maintenance:       r.store.Resources.Maintenance,
	}
	for _, res := range r.store.Resources.VPS {
		if res.Status == models.StatusTrial {
			s.Trials++
		}
	}
	return s
}
