package store

import (
	"sync"
	"time"

	"storyarchive/internal/story/model"
)

// slot guards one owner's draft. A slot marked dead has been unlinked from
// the store and must not be used; callers re-resolve the owner instead.
type slot struct {
	mu    sync.Mutex
	draft *model.Draft
	dead  bool
}

// DraftStore is the only owner of draft state. Operations on the same owner
// are serialized by that owner's slot lock; different owners contend only on
// the short map lookup.
type DraftStore struct {
	mu    sync.Mutex
	slots map[int64]*slot
	now   func() time.Time
}

func NewDraftStore() *DraftStore {
	return &DraftStore{
		slots: make(map[int64]*slot),
		now:   time.Now,
	}
}

// WithClock replaces the time source used for CreatedAt.
func (s *DraftStore) WithClock(now func() time.Time) *DraftStore {
	s.now = now
	return s
}

// lock returns the owner's slot locked, or nil when there is none and create
// is false.
func (s *DraftStore) lock(ownerID int64, create bool) *slot {
	for {
		s.mu.Lock()
		sl, ok := s.slots[ownerID]
		if !ok {
			if !create {
				s.mu.Unlock()
				return nil
			}
			sl = &slot{}
			s.slots[ownerID] = sl
		}
		s.mu.Unlock()

		sl.mu.Lock()
		if !sl.dead {
			return sl
		}
		sl.mu.Unlock()
	}
}

// release unlinks sl from the store. The caller holds sl.mu.
func (s *DraftStore) release(ownerID int64, sl *slot) {
	sl.draft = nil
	sl.dead = true
	s.mu.Lock()
	if s.slots[ownerID] == sl {
		delete(s.slots, ownerID)
	}
	s.mu.Unlock()
}

// withDraft runs fn on the owner's draft under its lock.
func (s *DraftStore) withDraft(ownerID int64, fn func(sl *slot, d *model.Draft) error) error {
	sl := s.lock(ownerID, false)
	if sl == nil {
		return model.ErrNoActiveDraft
	}
	defer sl.mu.Unlock()
	if sl.draft == nil {
		return model.ErrNoActiveDraft
	}
	return fn(sl, sl.draft)
}

// StartDraft replaces any existing draft for the owner with a fresh one.
func (s *DraftStore) StartDraft(owner model.Owner) {
	sl := s.lock(owner.ID, true)
	defer sl.mu.Unlock()
	sl.draft = &model.Draft{
		OwnerID:     owner.ID,
		DisplayName: owner.DisplayName,
		Handle:      owner.Handle,
		Phase:       model.AwaitingContent,
		CreatedAt:   s.now(),
	}
}

// AppendItem adds item to the draft and returns the new item count.
func (s *DraftStore) AppendItem(ownerID int64, item model.ContentItem) (int, error) {
	var count int
	err := s.withDraft(ownerID, func(_ *slot, d *model.Draft) error {
		if !d.Phase.AcceptsContent() {
			return &model.PhaseError{Op: "append item", Got: d.Phase}
		}
		d.Items = append(d.Items, item)
		count = len(d.Items)
		return nil
	})
	return count, err
}

// ResumeContent moves the draft back to collecting content, abandoning a
// pending location request.
func (s *DraftStore) ResumeContent(ownerID int64) (int, error) {
	var count int
	err := s.withDraft(ownerID, func(_ *slot, d *model.Draft) error {
		if d.Phase == model.AwaitingConfirmation {
			return &model.PhaseError{Op: "resume content", Got: d.Phase}
		}
		d.Phase = model.AwaitingContent
		count = len(d.Items)
		return nil
	})
	return count, err
}

func (s *DraftStore) RequestLocationPhase(ownerID int64) error {
	return s.withDraft(ownerID, func(_ *slot, d *model.Draft) error {
		if d.Phase == model.AwaitingConfirmation {
			return &model.PhaseError{Op: "request location", Got: d.Phase}
		}
		d.Phase = model.AwaitingLocation
		return nil
	})
}

// SetLocation stores loc, overwriting any earlier one, and returns the draft
// to collecting content.
func (s *DraftStore) SetLocation(ownerID int64, loc model.Location) error {
	return s.withDraft(ownerID, func(_ *slot, d *model.Draft) error {
		if !d.Phase.AcceptsLocation() {
			return &model.PhaseError{Op: "set location", Got: d.Phase}
		}
		d.Location = &loc
		d.Phase = model.AwaitingContent
		return nil
	})
}

func (s *DraftStore) RequestConfirmationPhase(ownerID int64) (int, error) {
	var count int
	err := s.withDraft(ownerID, func(_ *slot, d *model.Draft) error {
		if len(d.Items) == 0 {
			return model.ErrEmptyDraft
		}
		d.Phase = model.AwaitingConfirmation
		count = len(d.Items)
		return nil
	})
	return count, err
}

func (s *DraftStore) ReturnToEditing(ownerID int64) error {
	return s.withDraft(ownerID, func(_ *slot, d *model.Draft) error {
		if d.Phase != model.AwaitingConfirmation {
			return &model.PhaseError{Op: "return to editing", Got: d.Phase}
		}
		d.Phase = model.AwaitingContent
		return nil
	})
}

// CancelDraft drops the owner's draft. It is a no-op when there is none.
func (s *DraftStore) CancelDraft(ownerID int64) {
	sl := s.lock(ownerID, false)
	if sl == nil {
		return
	}
	defer sl.mu.Unlock()
	s.release(ownerID, sl)
}

// TakeForDispatch removes a confirmed draft and hands it to the caller. Of
// any number of concurrent callers for one owner, exactly one receives the
// draft; the rest get ErrNoActiveDraft.
func (s *DraftStore) TakeForDispatch(ownerID int64) (model.Draft, error) {
	var taken model.Draft
	err := s.withDraft(ownerID, func(sl *slot, d *model.Draft) error {
		if d.Phase != model.AwaitingConfirmation {
			return &model.PhaseError{Op: "take for dispatch", Got: d.Phase}
		}
		taken = *d
		s.release(ownerID, sl)
		return nil
	})
	return taken, err
}

// Snapshot returns a copy of the owner's draft for read-only use.
func (s *DraftStore) Snapshot(ownerID int64) (model.Draft, error) {
	var snap model.Draft
	err := s.withDraft(ownerID, func(_ *slot, d *model.Draft) error {
		snap = d.Clone()
		return nil
	})
	return snap, err
}

// Len reports how many drafts are live.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
