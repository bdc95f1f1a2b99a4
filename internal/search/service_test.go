package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/woocommerce"
)

type stubSearcher struct {
	calls   atomic.Int32
	gate    chan struct{}
	perPage int
	results []woocommerce.Product
	err     error
}

func (s *stubSearcher) SearchProducts(_ context.Context, _ string, perPage int) ([]woocommerce.Product, error) {
	s.calls.Add(1)
	s.perPage = perPage
	if s.gate != nil {
		<-s.gate
	}
	return s.results, s.err
}

type stubRecorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *stubRecorder) IncSearch(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func TestSearchBlankQueryIsIdle(t *testing.T) {
	searcher := &stubSearcher{}
	svc, err := NewService(searcher, 0, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	res, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Status != enums.SearchStatusIdle || res.Products == nil || res.Count != 0 {
		t.Fatalf("unexpected idle result %+v", res)
	}
	if searcher.calls.Load() != 0 {
		t.Fatal("blank query must not reach upstream")
	}
}

func TestSearchZeroResultsIsEmpty(t *testing.T) {
	searcher := &stubSearcher{results: []woocommerce.Product{}}
	recorder := &stubRecorder{}
	svc, err := NewService(searcher, 12, recorder, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	res, err := svc.Search(context.Background(), "kayak")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Status != enums.SearchStatusEmpty || res.Query != "kayak" {
		t.Fatalf("expected empty status, got %+v", res)
	}
	if searcher.perPage != 12 {
		t.Fatalf("expected page size to be forwarded, got %d", searcher.perPage)
	}
	if len(recorder.statuses) != 1 || recorder.statuses[0] != "empty" {
		t.Fatalf("unexpected metrics %v", recorder.statuses)
	}
}

func TestSearchMapsProducts(t *testing.T) {
	searcher := &stubSearcher{results: []woocommerce.Product{{
		ID: 7, Name: "Dock Cleat", Slug: "dock-cleat", Price: "14.50", StockStatus: "outofstock",
		Images: []woocommerce.ProductImage{{Src: "https://cdn.test/cleat.png"}},
	}}}
	svc, err := NewService(searcher, 0, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	res, err := svc.Search(context.Background(), "cleat")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Status != enums.SearchStatusResults || res.Count != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	p := res.Products[0]
	if p.Price.String() != "14.5" || p.InStock || p.Image != "https://cdn.test/cleat.png" {
		t.Fatalf("unexpected product %+v", p)
	}
}

func TestSearchCollapsesConcurrentQueries(t *testing.T) {
	searcher := &stubSearcher{gate: make(chan struct{}), results: []woocommerce.Product{{ID: 1}}}
	svc, err := NewService(searcher, 0, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Search(context.Background(), "Cleat")
			errs <- err
		}()
	}
	// Let every caller join the in-flight call before releasing it.
	deadline := time.Now().Add(time.Second)
	for searcher.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(searcher.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("search: %v", err)
		}
	}
	if got := searcher.calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestSearchPropagatesUpstreamErrors(t *testing.T) {
	upstream := pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "product search failed")
	svc, err := NewService(&stubSearcher{err: upstream}, 0, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Search(context.Background(), "cleat"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSearchHonoursCallerCancellation(t *testing.T) {
	searcher := &stubSearcher{gate: make(chan struct{})}
	defer close(searcher.gate)
	svc, err := NewService(searcher, 0, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := svc.Search(ctx, "cleat"); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestNewServiceRequiresSearcher(t *testing.T) {
	if _, err := NewService(nil, 0, nil, nil); err == nil {
		t.Fatal("expected nil searcher to fail")
	}
}
