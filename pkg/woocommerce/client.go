package woocommerce

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/angelmondragon/cartflow/pkg/config"
)

const (
	defaultTimeout         = 15 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second

	BreakerOrders   = "woocommerce_orders"
	BreakerProducts = "woocommerce_products"
)

var (
	errBaseURLRequired     = errors.New("woocommerce base url is required")
	errCredentialsRequired = errors.New("woocommerce consumer key and secret are required")
)

// StateListener observes circuit breaker transitions.
type StateListener func(name string, from, to gobreaker.State)

// Client talks to the WooCommerce REST API (wc/v3). Orders and product
// lookups sit behind separate circuit breakers.
type Client struct {
	http           *resty.Client
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	timeout        time.Duration

	breakerFailures uint32
	breakerCooldown time.Duration
	listener        StateListener

	orders   *gobreaker.CircuitBreaker
	products *gobreaker.CircuitBreaker
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured REST base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithBreaker overrides the consecutive-failure threshold and open cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.breakerFailures = failures
		}
		if cooldown > 0 {
			c.breakerCooldown = cooldown
		}
	}
}

// WithStateListener registers a callback for breaker state changes.
func WithStateListener(fn StateListener) Option {
	return func(c *Client) {
		c.listener = fn
	}
}

// NewClient builds the WooCommerce client from config.
func NewClient(cfg config.WooCommerceConfig, opts ...Option) (*Client, error) {
	client := &Client{
		baseURL:         strings.TrimSpace(cfg.BaseURL),
		consumerKey:     strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret:  strings.TrimSpace(cfg.ConsumerSecret),
		timeout:         cfg.Timeout,
		breakerFailures: cfg.BreakerFailures,
		breakerCooldown: cfg.BreakerCooldown,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		return nil, errBaseURLRequired
	}
	if client.consumerKey == "" || client.consumerSecret == "" {
		return nil, errCredentialsRequired
	}
	if client.timeout <= 0 {
		client.timeout = defaultTimeout
	}
	if client.breakerFailures == 0 {
		client.breakerFailures = defaultBreakerFailures
	}
	if client.breakerCooldown <= 0 {
		client.breakerCooldown = defaultBreakerCooldown
	}

	if client.httpClient != nil {
		client.http = resty.NewWithClient(client.httpClient)
	} else {
		client.http = resty.New()
	}
	client.http.
		SetBaseURL(strings.TrimRight(client.baseURL, "/")).
		SetTimeout(client.timeout).
		SetHeader("Accept", "application/json")

	client.orders = client.newBreaker(BreakerOrders)
	client.products = client.newBreaker(BreakerProducts)

	return client, nil
}

func (c *Client) newBreaker(name string) *gobreaker.CircuitBreaker {
	threshold := c.breakerFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     c.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Upstream 4xx answers are business outcomes, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var upstream *UpstreamError
			if errors.As(err, &upstream) {
				return upstream.StatusCode < http.StatusInternalServerError
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if c.listener != nil {
				c.listener(name, from, to)
			}
		},
	})
}

// BreakerState reports the state of the named breaker.
func (c *Client) BreakerState(name string) gobreaker.State {
	switch name {
	case BreakerOrders:
		return c.orders.State()
	case BreakerProducts:
		return c.products.State()
	default:
		return gobreaker.StateClosed
	}
}

// StateValue maps a breaker state onto the exported gauge value.
func StateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (c *Client) credentials() map[string]string {
	return map[string]string{
		"consumer_key":    c.consumerKey,
		"consumer_secret": c.consumerSecret,
	}
}
