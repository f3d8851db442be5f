package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

type AuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func NewAuditRepo() *AuditRepo {
	return &AuditRepo{}
}

func (r *AuditRepo) Record(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *entry
	r.entries = append(r.entries, &e)
	return nil
}

// ListByBoard returns entries newest first.
func (r *AuditRepo) ListByBoard(_ context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	out := r.filter(func(e *domain.AuditEntry) bool { return e.BoardID == boardID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *AuditRepo) ListByTask(_ context.Context, boardID, taskID uuid.UUID) ([]*domain.AuditEntry, error) {
	return r.filter(func(e *domain.AuditEntry) bool {
		return e.BoardID == boardID && e.TaskID == taskID
	}), nil
}

func (r *AuditRepo) filter(keep func(*domain.AuditEntry) bool) []*domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if e := r.entries[i]; keep(e) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
