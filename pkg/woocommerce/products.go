package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
)

const maxPerPage = 100

type ProductImage struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type ProductCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product is a storefront product as listed by the products endpoint.
type Product struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Permalink    string            `json:"permalink"`
	Price        string            `json:"price"`
	RegularPrice string            `json:"regular_price"`
	SalePrice    string            `json:"sale_price"`
	StockStatus  string            `json:"stock_status"`
	Images       []ProductImage    `json:"images"`
	Categories   []ProductCategory `json:"categories"`
}

// PriceDecimal parses the price string; blank prices read as zero.
func (p Product) PriceDecimal() decimal.Decimal {
	price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
	if err != nil {
		return decimal.Zero
	}
	return price
}

// SearchProducts lists products matching the query via {base}/products?search=.
func (c *Client) SearchProducts(ctx context.Context, query string, perPage int) ([]Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "woocommerce client not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}

	result, err := c.products.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(c.credentials()).
			SetQueryParam("search", query).
			SetQueryParam("per_page", strconv.Itoa(perPage)).
			Get("/products")
		if err != nil {
			return nil, fmt.Errorf("search products: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, newUpstreamError(resp.StatusCode(), resp.Body())
		}
		return resp.Body(), nil
	})
	if err != nil {
		return nil, classify(err, "product search failed")
	}

	var products []Product
	if err := json.Unmarshal(result.([]byte), &products); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product search response")
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}
