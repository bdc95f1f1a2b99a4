package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type cartTestContext struct {
	store *Store
}

func (c *cartTestContext) reset() {
	c.store = NewStore()
}

func (c *cartTestContext) anEmptyCart() error {
	c.store = NewStore()
	return nil
}

func (c *cartTestContext) iAddProductPricedWithQuantity(productID int, price string, qty int) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.store.AddItem(LineItem{ProductID: int64(productID), Name: fmt.Sprintf("product-%d", productID), Price: p, Quantity: qty})
	return nil
}

func (c *cartTestContext) iIncreaseProduct(productID int) error {
	c.store.IncreaseQuantity(Key{ProductID: int64(productID)})
	return nil
}

func (c *cartTestContext) iDecreaseProduct(productID int) error {
	c.store.DecreaseQuantity(Key{ProductID: int64(productID)})
	return nil
}

func (c *cartTestContext) iRemoveProduct(productID int) error {
	c.store.RemoveItem(Key{ProductID: int64(productID)})
	return nil
}

func (c *cartTestContext) theSubtotalIs(expected string) error {
	want, err := decimal.NewFromString(expected)
	if err != nil {
		return err
	}
	if got := c.store.Subtotal(); !got.Equal(want) {
		return fmt.Errorf("expected subtotal %s, got %s", want.StringFixed(2), got.StringFixed(2))
	}
	return nil
}

func (c *cartTestContext) theCartHasRows(rows int) error {
	if c.store.Len() != rows {
		return fmt.Errorf("expected %d rows, got %d", rows, c.store.Len())
	}
	return nil
}

func (c *cartTestContext) productHasQuantity(productID, qty int) error {
	item, ok := c.store.Find(Key{ProductID: int64(productID)})
	if !ok {
		return fmt.Errorf("product %d not in cart", productID)
	}
	if item.Quantity != qty {
		return fmt.Errorf("expected quantity %d, got %d", qty, item.Quantity)
	}
	return nil
}

func (c *cartTestContext) theCartIsEmpty() error {
	return c.theCartHasRows(0)
}

func InitializeCartScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^an empty cart$`, tc.anEmptyCart)

	ctx.Step(`^I add product (\d+) priced ([\d.]+) with quantity (\d+)$`, tc.iAddProductPricedWithQuantity)
	ctx.Step(`^I increase product (\d+)$`, tc.iIncreaseProduct)
	ctx.Step(`^I decrease product (\d+)$`, tc.iDecreaseProduct)
	ctx.Step(`^I remove product (\d+)$`, tc.iRemoveProduct)

	ctx.Step(`^the subtotal is ([\d.]+)$`, tc.theSubtotalIs)
	ctx.Step(`^the cart has (\d+) rows?$`, tc.theCartHasRows)
	ctx.Step(`^product (\d+) has quantity (\d+)$`, tc.productHasQuantity)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
}

func TestCartFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeCartScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/cart.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
