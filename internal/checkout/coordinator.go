package checkout

import (
	"fmt"
	"sync"

	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
)

// Coordinator owns the flow-wide editing token. A section must hold the
// token to enter editing; while any section holds it, payment is blocked.
type Coordinator struct {
	mu     sync.Mutex
	holder enums.CheckoutSection
	held   bool
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// RestoreCoordinator rebuilds the token from persisted editing flags.
func RestoreCoordinator(editing map[enums.CheckoutSection]bool) *Coordinator {
	c := NewCoordinator()
	for _, section := range []enums.CheckoutSection{enums.CheckoutSectionShipping, enums.CheckoutSectionBilling} {
		if editing[section] {
			c.holder = section
			c.held = true
			break
		}
	}
	return c
}

// Acquire hands the token to section. Re-acquiring by the holder is a no-op.
func (c *Coordinator) Acquire(section enums.CheckoutSection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held && c.holder != section {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s section is being edited", c.holder)).
			WithDetails(map[string]any{"editing": c.holder})
	}
	c.holder = section
	c.held = true
	return nil
}

// Release gives the token back if section holds it.
func (c *Coordinator) Release(section enums.CheckoutSection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held && c.holder == section {
		c.holder = ""
		c.held = false
	}
}

// Holder reports which section holds the token, if any.
func (c *Coordinator) Holder() (enums.CheckoutSection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder, c.held
}

func (c *Coordinator) AnyEditing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}
