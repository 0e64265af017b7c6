package registry

import (
	"fmt"
	"sort"

	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
)

// CreateGiveaway persists a giveaway keyed by its rallying message and arms
// its finalization at EndTS.
func (r *Registry) CreateGiveaway(g models.Giveaway) error {
	if g.Amount <= 0 {
		return ErrInvalidAmount
	}
	if g.MessageID == "" {
		return fmt.Errorf("registry: giveaway needs a message id")
	}

	r.mu.Lock()
	if g.CreatedAt == 0 {
		g.CreatedAt = r.Now()
	}
	id := g.MessageID.String()
	r.store.Giveaways.Giveaways[id] = &g
	r.persist(store.KindGiveaways)
	r.mu.Unlock()

	logger.Info(fmt.Sprintf("Sorteo %s creado: %d créditos, termina %d", id, g.Amount, g.EndTS), "Registry")
	r.schedule(models.DeadlineGiveaway, id, g.EndTS)
	return nil
}

// Giveaway returns a copy of one giveaway.
func (r *Registry) Giveaway(id string) (models.Giveaway, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.store.Giveaways.Giveaways[id]
	if !ok {
		return models.Giveaway{}, false
	}
	return *g, true
}

// Giveaways returns every pending giveaway ordered by deadline.
func (r *Registry) Giveaways() []models.Giveaway {
	r.mu.Lock()
	out := make([]models.Giveaway, 0, len(r.store.Giveaways.Giveaways))
	for _, g := range r.store.Giveaways.Giveaways {
		out = append(out, *g)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndTS != out[j].EndTS {
			return out[i].EndTS < out[j].EndTS
		}
		return out[i].MessageID < out[j].MessageID
	})
	return out
}

// RemoveGiveaway deletes a giveaway record. It reports whether one existed.
func (r *Registry) RemoveGiveaway(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store.Giveaways.Giveaways[id]; !ok {
		return false
	}
	delete(r.store.Giveaways.Giveaways, id)
	r.persist(store.KindGiveaways)
	return true
}
