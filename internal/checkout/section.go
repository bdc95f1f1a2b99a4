package checkout

import (
	"context"
	"fmt"

	pkgcheckout "github.com/angelmondragon/cartflow/pkg/checkout"
	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/types"
)

// ShippingInfoTracker receives add_shipping_info events once shipping is
// saved. Implementations must return without waiting on the network.
type ShippingInfoTracker interface {
	TrackAddShippingInfo(ctx context.Context, sessionID string, snapshot State)
}

// SectionController drives the editing/display sub-state of one address
// section. Shipping and billing use the same machinery.
type SectionController struct {
	sessionID string
	section   enums.CheckoutSection
	store     *Store
	coord     *Coordinator
	tracker   ShippingInfoTracker
}

// NewSectionController wires a controller for section. tracker may be nil.
func NewSectionController(sessionID string, section enums.CheckoutSection, store *Store, coord *Coordinator, tracker ShippingInfoTracker) (*SectionController, error) {
	if !section.IsValid() {
		return nil, fmt.Errorf("invalid checkout section %q", section)
	}
	if store == nil {
		return nil, fmt.Errorf("checkout store required")
	}
	if coord == nil {
		return nil, fmt.Errorf("editing coordinator required")
	}
	return &SectionController{
		sessionID: sessionID,
		section:   section,
		store:     store,
		coord:     coord,
		tracker:   tracker,
	}, nil
}

func (c *SectionController) Section() enums.CheckoutSection {
	return c.section
}

// Address returns the committed address of the section.
func (c *SectionController) Address() types.Address {
	return c.store.state.Address(c.section)
}

// Mode is editing while no address has been captured or while the section
// holds the editing token, display otherwise.
func (c *SectionController) Mode() enums.SectionMode {
	if c.Address().IsEmpty() || c.holdsToken() {
		return enums.SectionModeEditing
	}
	return enums.SectionModeDisplay
}

// Edit moves the section into editing by acquiring the editing token.
func (c *SectionController) Edit() error {
	if err := c.guardMirroredBilling(); err != nil {
		return err
	}
	if err := c.coord.Acquire(c.section); err != nil {
		return err
	}
	c.store.SetSectionEditing(c.section, true)
	return nil
}

// Submit validates the form and, on success, commits it into the store and
// returns to display. On failure nothing is mutated and the section stays in
// editing; the returned error carries field messages.
func (c *SectionController) Submit(ctx context.Context, form pkgcheckout.AddressForm) (types.Address, error) {
	if err := c.guardMirroredBilling(); err != nil {
		return types.Address{}, err
	}
	if holder, held := c.coord.Holder(); held && holder != c.section {
		return types.Address{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s section is being edited", holder)).
			WithDetails(map[string]any{"editing": holder})
	}
	if err := pkgcheckout.ValidateAddress(form); err != nil {
		return types.Address{}, err
	}

	updated := form.Merge(c.Address())
	switch c.section {
	case enums.CheckoutSectionShipping:
		c.store.SetShipping(updated)
		if c.store.state.BillingSameAsShipping {
			c.store.SetBilling(updated)
		}
	case enums.CheckoutSectionBilling:
		c.store.SetBilling(updated)
	}

	c.coord.Release(c.section)
	c.store.SetSectionEditing(c.section, false)

	if c.section == enums.CheckoutSectionShipping && c.tracker != nil {
		c.tracker.TrackAddShippingInfo(ctx, c.sessionID, c.store.Snapshot())
	}
	return updated, nil
}

// Cancel leaves editing without committing. It is refused while no address
// has been saved, since there is nothing to display.
func (c *SectionController) Cancel() error {
	if c.Address().IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s address has not been saved yet", c.section))
	}
	c.coord.Release(c.section)
	c.store.SetSectionEditing(c.section, false)
	return nil
}

// SetBillingSameAsShipping toggles mirroring. Turning it on copies the saved
// shipping address into billing right away. Only the shipping section owns
// the toggle.
func (c *SectionController) SetBillingSameAsShipping(same bool) error {
	if c.section != enums.CheckoutSectionShipping {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "billing mirroring is controlled from the shipping section")
	}
	if same {
		if holder, held := c.coord.Holder(); held && holder == enums.CheckoutSectionBilling {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "billing section is being edited").
				WithDetails(map[string]any{"editing": holder})
		}
	}
	c.store.SetBillingSameAsShipping(same)
	if same {
		c.store.SetBilling(c.store.state.Shipping)
	}
	return nil
}

func (c *SectionController) holdsToken() bool {
	holder, held := c.coord.Holder()
	return held && holder == c.section
}

func (c *SectionController) guardMirroredBilling() error {
	if c.section == enums.CheckoutSectionBilling && c.store.state.BillingSameAsShipping {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "billing mirrors shipping; turn off billing same as shipping to edit it")
	}
	return nil
}
