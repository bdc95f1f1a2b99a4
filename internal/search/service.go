package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/woocommerce"
)

const (
	defaultPageSize = 24
	defaultTimeout  = 10 * time.Second
)

// ProductSearcher lists products matching a free-text query.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, perPage int) ([]woocommerce.Product, error)
}

type searchRecorder interface {
	IncSearch(status string)
}

// Product is the search result card shown to the shopper.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Permalink    string          `json:"permalink"`
	Price        decimal.Decimal `json:"price"`
	RegularPrice string          `json:"regular_price,omitempty"`
	SalePrice    string          `json:"sale_price,omitempty"`
	InStock      bool            `json:"in_stock"`
	Image        string          `json:"image,omitempty"`
}

// Result separates "no search yet" (idle) from "searched, nothing found" (empty).
type Result struct {
	Status   enums.SearchStatus `json:"status"`
	Query    string             `json:"query"`
	Products []Product          `json:"products"`
	Count    int                `json:"count"`
}

// Service runs product searches. Identical concurrent queries share one
// upstream call.
type Service struct {
	searcher ProductSearcher
	pageSize int
	timeout  time.Duration
	metrics  searchRecorder
	logg     *logger.Logger
	group    singleflight.Group
}

// NewService builds the search service. metrics may be nil.
func NewService(searcher ProductSearcher, pageSize int, metrics searchRecorder, logg *logger.Logger) (*Service, error) {
	if searcher == nil {
		return nil, fmt.Errorf("product searcher required")
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		searcher: searcher,
		pageSize: pageSize,
		timeout:  defaultTimeout,
		metrics:  metrics,
		logg:     logg,
	}, nil
}

// Search returns idle for a blank query without calling upstream.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.observe(enums.SearchStatusIdle.String())
		return &Result{Status: enums.SearchStatusIdle, Products: []Product{}}, nil
	}

	key := strings.ToLower(query)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.searcher.SearchProducts(callCtx, query, s.pageSize)
	})

	select {
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "product search cancelled")
	case res := <-ch:
		if res.Err != nil {
			s.observe("error")
			s.logg.Error(s.logg.WithField(ctx, "query", query), "product search failed", res.Err)
			return nil, res.Err
		}
		return s.result(query, res.Val.([]woocommerce.Product)), nil
	}
}

func (s *Service) result(query string, upstream []woocommerce.Product) *Result {
	products := make([]Product, 0, len(upstream))
	for _, p := range upstream {
		products = append(products, toProduct(p))
	}
	status := enums.SearchStatusResults
	if len(products) == 0 {
		status = enums.SearchStatusEmpty
	}
	s.observe(status.String())
	return &Result{
		Status:   status,
		Query:    query,
		Products: products,
		Count:    len(products),
	}
}

func (s *Service) observe(status string) {
	if s.metrics != nil {
		s.metrics.IncSearch(status)
	}
}

func toProduct(p woocommerce.Product) Product {
	out := Product{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Permalink:    p.Permalink,
		Price:        p.PriceDecimal(),
		RegularPrice: p.RegularPrice,
		SalePrice:    p.SalePrice,
		InStock:      p.StockStatus == "" || p.StockStatus == "instock",
	}
	if len(p.Images) > 0 {
		out.Image = p.Images[0].Src
	}
	return out
}
