// Package mock provides mock implementations of repository interfaces for testing.
// These mocks allow tests to run without a real database and provide
// configurable behavior for testing error conditions.
//
// IMPORTANT: Error injection fields (e.g., SaveError) should be set BEFORE
// any concurrent operations begin. They are not protected by the mutex.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjmerc/filesender-client/internal/models"
	"github.com/fjmerc/filesender-client/internal/repository"
)

// DraftRepository is a mock implementation of repository.DraftRepository.
// It stores drafts in memory and records every call.
type DraftRepository struct {
	mu      sync.RWMutex
	drafts  map[string]*models.Draft
	saves   []string
	deletes []string

	// Error injection for testing error handling
	SaveError   error
	GetError    error
	ListError   error
	DeleteError error
}

// NewDraftRepository creates a new mock DraftRepository.
func NewDraftRepository() *DraftRepository {
	return &DraftRepository{
		drafts: make(map[string]*models.Draft),
	}
}

// Save stores a copy of draft.
func (r *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	if r.SaveError != nil {
		return r.SaveError
	}
	if err := repository.ValidateDraft(draft); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.drafts[draft.TransferID]; ok {
		draft.CreatedAt = existing.CreatedAt
	} else if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	r.drafts[draft.TransferID] = copyDraft(draft)
	r.saves = append(r.saves, draft.TransferID)
	return nil
}

// Get returns a copy of the stored draft.
func (r *DraftRepository) Get(ctx context.Context, transferID string) (*models.Draft, error) {
	if r.GetError != nil {
		return nil, r.GetError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	draft, ok := r.drafts[transferID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDraft(draft), nil
}

// List returns all drafts, most recently updated first.
func (r *DraftRepository) List(ctx context.Context) ([]models.Draft, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	drafts := make([]models.Draft, 0, len(r.drafts))
	for _, d := range r.drafts {
		drafts = append(drafts, *copyDraft(d))
	}
	sort.Slice(drafts, func(i, j int) bool {
		if !drafts[i].UpdatedAt.Equal(drafts[j].UpdatedAt) {
			return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
		}
		return drafts[i].TransferID < drafts[j].TransferID
	})
	return drafts, nil
}

// Delete removes a draft.
func (r *DraftRepository) Delete(ctx context.Context, transferID string) error {
	if r.DeleteError != nil {
		return r.DeleteError
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deletes = append(r.deletes, transferID)
	if _, ok := r.drafts[transferID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.drafts, transferID)
	return nil
}

// Saves returns the transfer ids passed to Save, in call order.
func (r *DraftRepository) Saves() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.saves...)
}

// Deletes returns the transfer ids passed to Delete, in call order.
func (r *DraftRepository) Deletes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.deletes...)
}

// Count returns the number of stored drafts.
func (r *DraftRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drafts)
}

func copyDraft(d *models.Draft) *models.Draft {
	c := *d
	c.Files = append([]models.DraftFile(nil), d.Files...)
	c.Recipients = append([]string(nil), d.Recipients...)
	if d.Options != nil {
		c.Options = make(map[string]any, len(d.Options))
		for k, v := range d.Options {
			c.Options[k] = v
		}
	}
	return &c
}
