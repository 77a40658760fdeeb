// Package registry provides the in-memory activity store.
package registry

import (
	"context"
	"slices"
	"sync"

	"example.com/activities/internal/domain"
)

// InMemoryRegistry keeps activities in process memory. Contents are lost on
// restart.
type InMemoryRegistry struct {
	mu         sync.RWMutex
	order      []string
	activities map[string]*domain.Activity
}

var _ domain.Store = (*InMemoryRegistry)(nil)

// NewInMemoryRegistry constructs a registry populated with seed, keeping
// seed order as the listing order. Later duplicates of a name are ignored.
func NewInMemoryRegistry(seed []domain.Activity) *InMemoryRegistry {
	r := &InMemoryRegistry{
		order:      make([]string, 0, len(seed)),
		activities: make(map[string]*domain.Activity, len(seed)),
	}
	for _, a := range seed {
		if _, exists := r.activities[a.Name]; exists {
			continue
		}
		clone := a.Clone()
		r.activities[a.Name] = &clone
		r.order = append(r.order, a.Name)
	}
	return r
}

// List implements domain.Store.
func (r *InMemoryRegistry) List(ctx context.Context) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.activities[name].Clone())
	}
	return out, nil
}

// Enroll implements domain.Store.
func (r *InMemoryRegistry) Enroll(ctx context.Context, activityName, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[activityName]
	if !ok {
		return domain.ErrActivityNotFound
	}
	if activity.HasParticipant(email) {
		return domain.ErrAlreadyEnrolled
	}
	activity.Participants = append(activity.Participants, email)
	return nil
}

// Unenroll implements domain.Store.
func (r *InMemoryRegistry) Unenroll(ctx context.Context, activityName, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[activityName]
	if !ok {
		return domain.ErrActivityNotFound
	}
	idx := slices.Index(activity.Participants, email)
	if idx < 0 {
		return domain.ErrParticipantNotFound
	}
	activity.Participants = slices.Delete(activity.Participants, idx, idx+1)
	return nil
}
