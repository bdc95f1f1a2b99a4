package cart

import (
	"github.com/shopspring/decimal"
)

// Store holds the cart rows of one session. It is not safe for concurrent
// use; the owning session serializes access.
//
// Rows are unique by Key and always carry a quantity of at least 1.
type Store struct {
	items  []LineItem
	isOpen bool
}

// NewStore returns an empty, closed cart.
func NewStore() *Store {
	return &Store{items: []LineItem{}}
}

// Restore rebuilds a cart from persisted rows. Rows sharing a key are merged
// and non-positive quantities are dropped so the store invariants hold.
func Restore(items []LineItem, isOpen bool) *Store {
	s := NewStore()
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		s.AddItem(item)
	}
	s.isOpen = isOpen
	return s
}

// AddItem inserts the item, or adds its quantity to the existing row with the
// same key. A quantity below 1 counts as 1.
func (s *Store) AddItem(item LineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if idx := s.indexOf(item.Key()); idx >= 0 {
		s.items[idx].Quantity += item.Quantity
		return
	}
	s.items = append(s.items, cloneItem(item))
}

// IncreaseQuantity adds one unit. Unknown keys are ignored; the return value
// reports whether the row exists.
func (s *Store) IncreaseQuantity(key Key) bool {
	idx := s.indexOf(key)
	if idx < 0 {
		return false
	}
	s.items[idx].Quantity++
	return true
}

// DecreaseQuantity removes one unit. Decreasing a row at quantity 1 removes
// the row. It reports whether the row is still present afterwards.
func (s *Store) DecreaseQuantity(key Key) bool {
	idx := s.indexOf(key)
	if idx < 0 {
		return false
	}
	if s.items[idx].Quantity <= 1 {
		s.removeAt(idx)
		return false
	}
	s.items[idx].Quantity--
	return true
}

// RemoveItem deletes the row with the given key and reports whether it existed.
func (s *Store) RemoveItem(key Key) bool {
	idx := s.indexOf(key)
	if idx < 0 {
		return false
	}
	s.removeAt(idx)
	return true
}

// Subtotal sums price x quantity over the current rows.
func (s *Store) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) SetCartOpen(open bool) {
	s.isOpen = open
}

func (s *Store) IsOpen() bool {
	return s.isOpen
}

// Items returns a copy of the rows in insertion order.
func (s *Store) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	for i, item := range s.items {
		out[i] = cloneItem(item)
	}
	return out
}

// Len is the number of distinct rows.
func (s *Store) Len() int {
	return len(s.items)
}

// ItemCount is the total number of units across rows.
func (s *Store) ItemCount() int {
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Find returns a copy of the row with the given key.
func (s *Store) Find(key Key) (LineItem, bool) {
	idx := s.indexOf(key)
	if idx < 0 {
		return LineItem{}, false
	}
	return cloneItem(s.items[idx]), true
}

// Clear empties the cart. The open flag is left alone.
func (s *Store) Clear() {
	s.items = []LineItem{}
}

func (s *Store) indexOf(key Key) int {
	for i, item := range s.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(idx int) {
	s.items = append(s.items[:idx], s.items[idx+1:]...)
}
