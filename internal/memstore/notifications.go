package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
)

var _ notification.Repository = (*Notifications)(nil)

type Notifications struct {
	s *Store
}

func (r *Notifications) insert(n notification.Notification) *notification.Notification {
	n.ID = uuid.New()
	n.Read = false
	n.CreatedAt = r.s.now()
	r.s.notifications[n.ID] = n
	return &n
}

func (r *Notifications) Insert(_ context.Context, n notification.Notification) (*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(n), nil
}

func (r *Notifications) ListForUser(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []notification.Notification{}
	for _, n := range r.s.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b notification.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (r *Notifications) MarkRead(_ context.Context, userID, id uuid.UUID) (*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, notification.ErrNotificationNotFound
	}
	n.Read = true
	r.s.notifications[id] = n
	return &n, nil
}
