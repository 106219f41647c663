package context

import (
	"sync"
)

// UeIDChangeObserver is notified before a context is rebound to a new
// lower-layer UE-ID, so external subscribers (e.g. an AS correlation
// table) can update first (spec.md 4.1).
type UeIDChangeObserver func(oldUeID, newUeID int64)

// Store is the Context Store (C1): two mutually-consistent indices,
// by ueID and by GUTI, over the set of live EMM contexts. It mirrors
// the teacher's AMFContext.UePool/TmsiPool pair, but keyed the way the
// Attach core needs (int64 ueID instead of SUPI string).
type Store struct {
	byUeID sync.Map // map[int64]*EMMContext
	byGuti sync.Map // map[string]*EMMContext

	observerMu sync.Mutex
	observers  []UeIDChangeObserver
}

// NewStore builds an empty Context Store.
func NewStore() *Store {
	return &Store{}
}

// OnUeIDChange registers an observer invoked by RebindUeID.
func (s *Store) OnUeIDChange(obs UeIDChangeObserver) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observers = append(s.observers, obs)
}

// GetByUeID returns the context for the given lower-layer UE-ID, if any.
func (s *Store) GetByUeID(ueID int64) (*EMMContext, bool) {
	v, ok := s.byUeID.Load(ueID)
	if !ok {
		return nil, false
	}
	return v.(*EMMContext), true
}

// GetByGuti returns the context currently indexed under guti, if any.
func (s *Store) GetByGuti(guti GUTI) (*EMMContext, bool) {
	v, ok := s.byGuti.Load(guti.Key())
	if !ok {
		return nil, false
	}
	return v.(*EMMContext), true
}

// Insert indexes ctx by its ueID (and by its GUTI, if it has one). A
// duplicate ueID is a no-op: duplicate indexing is a caller bug, not a
// recoverable condition the store should paper over (spec.md 4.1).
func (s *Store) Insert(ctx *EMMContext) {
	if _, exists := s.byUeID.Load(ctx.UeID); exists {
		return
	}
	s.byUeID.Store(ctx.UeID, ctx)
	if ctx.Guti != nil {
		s.byGuti.Store(ctx.Guti.Key(), ctx)
	}
}

// IndexGuti (re)indexes ctx under guti, removing any stale GUTI index
// entry first. Used whenever the context's GUTI is assigned or
// reassigned (spec.md 4.4 step 5, 4.5 GUTI reallocation).
func (s *Store) IndexGuti(ctx *EMMContext, old *GUTI, new *GUTI) {
	if old != nil {
		s.byGuti.Delete(old.Key())
	}
	if new != nil {
		s.byGuti.Store(new.Key(), ctx)
	}
}

// Remove destroys both index entries for ctx. It only unindexes the
// context; releasing the context's own resources is the caller's job
// (see EMMContext.StopTimers/ClearIdentities). The GUTI entry is found
// through ctx.Guti, so Remove must run before ClearIdentities clears it.
func (s *Store) Remove(ctx *EMMContext) {
	s.byUeID.Delete(ctx.UeID)
	if ctx.Guti != nil {
		s.byGuti.Delete(ctx.Guti.Key())
	}
}

// RebindUeID moves ctx from its current ueID key to newUeID, notifying
// every registered observer first (spec.md 4.1). Used on GUTI
// re-attach: a context known under an old lower-layer ID resurfaces
// under a new one, e.g. after an RRC re-establishment.
func (s *Store) RebindUeID(ctx *EMMContext, newUeID int64) {
	oldUeID := ctx.UeID

	s.observerMu.Lock()
	observers := append([]UeIDChangeObserver(nil), s.observers...)
	s.observerMu.Unlock()
	for _, obs := range observers {
		obs(oldUeID, newUeID)
	}

	s.byUeID.Delete(oldUeID)
	ctx.UeID = newUeID
	s.byUeID.Store(newUeID, ctx)
}

// Reset drops every context from both indices. Used by tests.
func (s *Store) Reset() {
	s.byUeID.Range(func(k, _ interface{}) bool {
		s.byUeID.Delete(k)
		return true
	})
	s.byGuti.Range(func(k, _ interface{}) bool {
		s.byGuti.Delete(k)
		return true
	})
}
