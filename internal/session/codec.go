package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/cartflow/internal/cart"
	"github.com/angelmondragon/cartflow/internal/checkout"
)

const snapshotVersion = 1

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Version   int            `json:"version"`
	ID        string         `json:"id"`
	Revision  uint64         `json:"revision"`
	CreatedAt time.Time      `json:"created_at"`
	Cart      CartSnapshot   `json:"cart"`
	Checkout  checkout.State `json:"checkout"`
}

type CartSnapshot struct {
	Items  []cart.LineItem `json:"items"`
	IsOpen bool            `json:"is_open"`
}

// Encode serializes a snapshot. Decimals are written as strings.
func Encode(snap Snapshot) ([]byte, error) {
	if snap.Cart.Items == nil {
		snap.Cart.Items = []cart.LineItem{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode session snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot written by Encode.
func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode session snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("unsupported session snapshot version %d", snap.Version)
	}
	return snap, nil
}

// restore rebuilds a live session from a snapshot.
func restore(snap Snapshot, tracker checkout.ShippingInfoTracker) *Session {
	return &Session{
		id:        snap.ID,
		createdAt: snap.CreatedAt,
		cart:      cart.Restore(snap.Cart.Items, snap.Cart.IsOpen),
		checkout:  checkout.RestoreStore(snap.Checkout),
		coord:     checkout.RestoreCoordinator(snap.Checkout.Editing),
		tracker:   tracker,
		revision:  snap.Revision,
	}
}
