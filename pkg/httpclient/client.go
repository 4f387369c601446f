package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is the subset of a resty response used by fetchers.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client issues GET requests with caller supplied headers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// TLSOptions pins the TLS handshake for sources that reject older protocol versions.
type TLSOptions struct {
	MinVersion         string `yaml:"min_version" json:"min_version" mapstructure:"min_version"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" json:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// Empty reports whether no TLS override is configured.
func (o TLSOptions) Empty() bool {
	return strings.TrimSpace(o.MinVersion) == "" && !o.InsecureSkipVerify
}

// Option customizes the resty client.
type Option func(*resty.Client) error

// WithTLS applies the TLS knob to the client.
func WithTLS(opts TLSOptions) Option {
	return func(c *resty.Client) error {
		if opts.Empty() {
			return nil
		}
		cfg := &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify} //nolint:gosec // opt-in per source
		if v := strings.TrimSpace(opts.MinVersion); v != "" {
			minVer, err := ParseTLSVersion(v)
			if err != nil {
				return err
			}
			cfg.MinVersion = minVer
		}
		c.SetTLSClientConfig(cfg)
		return nil
	}
}

// WithUserAgent sets a default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *resty.Client) error {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.SetHeader("User-Agent", ua)
		}
		return nil
	}
}

// ParseTLSVersion maps "1.0".."1.3" to crypto/tls constants.
func ParseTLSVersion(v string) (uint16, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "tls") {
	case "1.0", "10":
		return tls.VersionTLS10, nil
	case "1.1", "11":
		return tls.VersionTLS11, nil
	case "1.2", "12":
		return tls.VersionTLS12, nil
	case "1.3", "13":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported tls version %q", v)
	}
}

// RestyClient implements Client on top of resty.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient builds a client with the given request timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	c, err := NewRestyClientE(timeout, opts...)
	if err != nil {
		return &RestyClient{client: resty.New().SetTimeout(timeout)}
	}
	return c
}

// NewRestyClientE is NewRestyClient that reports option errors.
func NewRestyClientE(timeout time.Duration, opts ...Option) (*RestyClient, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return &RestyClient{client: c}, nil
}

// Get performs the request and returns the raw response. Non-2xx statuses are
// not errors; callers inspect StatusCode.
func (c *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return resp, nil
}
