package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/cartflow/internal/cart"
	"github.com/angelmondragon/cartflow/internal/checkout"
	"github.com/angelmondragon/cartflow/pkg/enums"
)

// Session owns the cart, checkout and editing token of one shopper. All
// access goes through Update or View, which serialize on the session mutex.
type Session struct {
	id        string
	createdAt time.Time

	mu       sync.Mutex
	cart     *cart.Store
	checkout *checkout.Store
	coord    *checkout.Coordinator
	tracker  checkout.ShippingInfoTracker
	revision uint64
}

func newSession(id string, createdAt time.Time, tracker checkout.ShippingInfoTracker) *Session {
	return &Session{
		id:        id,
		createdAt: createdAt,
		cart:      cart.NewStore(),
		checkout:  checkout.NewStore(),
		coord:     checkout.NewCoordinator(),
		tracker:   tracker,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Revision counts completed mutations.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Update runs fn under the session lock. A nil return counts as a completed
// mutation and bumps the revision.
func (s *Session) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(&Tx{s: s}); err != nil {
		return err
	}
	s.revision++
	return nil
}

// Commit is Update followed by persist, both under the session lock. When fn
// or persist fails the session is rolled back to its state before fn, so the
// live session never runs ahead of the stored one.
func (s *Session) Commit(fn func(tx *Tx) error, persist func(Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.snapshotLocked()
	if err := fn(&Tx{s: s}); err != nil {
		s.resetLocked(before)
		return err
	}
	s.revision++
	if err := persist(s.snapshotLocked()); err != nil {
		s.resetLocked(before)
		return err
	}
	return nil
}

// CommitAt is Commit guarded by an expected revision. It reports false
// without calling fn when the session has moved on.
func (s *Session) CommitAt(revision uint64, fn func(tx *Tx), persist func(Snapshot) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != revision {
		return false, nil
	}
	before := s.snapshotLocked()
	fn(&Tx{s: s})
	s.revision++
	if err := persist(s.snapshotLocked()); err != nil {
		s.resetLocked(before)
		return false, err
	}
	return true, nil
}

// Persist hands the current snapshot to persist under the session lock, so
// concurrent writers store snapshots in revision order.
func (s *Session) Persist(persist func(Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persist(s.snapshotLocked())
}

func (s *Session) resetLocked(snap Snapshot) {
	s.cart = cart.Restore(snap.Cart.Items, snap.Cart.IsOpen)
	s.checkout = checkout.RestoreStore(snap.Checkout)
	s.coord = checkout.RestoreCoordinator(snap.Checkout.Editing)
	s.revision = snap.Revision
}

// View runs fn under the session lock without counting a mutation.
func (s *Session) View(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s})
}

// Snapshot captures the persisted form of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Version:   snapshotVersion,
		ID:        s.id,
		Revision:  s.revision,
		CreatedAt: s.createdAt,
		Cart: CartSnapshot{
			Items:  s.cart.Items(),
			IsOpen: s.cart.IsOpen(),
		},
		Checkout: s.checkout.Snapshot(),
	}
}

// Tx is the handle passed to Update and View callbacks. It must not escape
// the callback.
type Tx struct {
	s *Session
}

func (tx *Tx) Cart() *cart.Store {
	return tx.s.cart
}

func (tx *Tx) Checkout() *checkout.Store {
	return tx.s.checkout
}

func (tx *Tx) Coordinator() *checkout.Coordinator {
	return tx.s.coord
}

func (tx *Tx) Revision() uint64 {
	return tx.s.revision
}

// PaymentReady is true once both address sections are in display mode: each
// has a saved address and neither holds the editing token.
func (tx *Tx) PaymentReady() bool {
	if tx.s.coord.AnyEditing() {
		return false
	}
	state := tx.s.checkout.Snapshot()
	return !state.Shipping.IsEmpty() && !state.Billing.IsEmpty()
}

// Section returns the controller for an address section.
func (tx *Tx) Section(section enums.CheckoutSection) (*checkout.SectionController, error) {
	ctrl, err := checkout.NewSectionController(tx.s.id, section, tx.s.checkout, tx.s.coord, tx.s.tracker)
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", section, err)
	}
	return ctrl, nil
}
