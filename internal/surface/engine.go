// Package surface submits forms into hidden, uniquely named render targets so
// the host page is never navigated, and hands back what each target loaded.
package surface

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Serdar715/xssdetective/internal/page"
)

// Engine drives a host page. Implementations must allow concurrent Submit
// calls.
type Engine interface {
	// Name identifies the engine in logs and reports.
	Name() string
	// Open loads the host page and returns the document forms are read from.
	Open(ctx context.Context, url string) (*page.Document, error)
	// Submit sends frame.Field's form with the field set to frame.Payload,
	// aimed at the frame, and delivers every load to frame.Load. It may return
	// before the frame is ready.
	Submit(ctx context.Context, frame *Frame) error
	// Close releases the engine.
	Close() error
}

// Engine names accepted by New.
const (
	EngineHTTP = "http"
	EngineRod  = "rod"
)

// Options configures the engines.
type Options struct {
	Timeout     time.Duration
	ProxyURL    string
	Cookies     string
	Headers     map[string]string
	AuthHeader  string
	UserAgent   string
	Visible     bool   // rod: show the browser window
	BrowserPath string // rod: use this Chromium binary instead of downloading one
}

// DefaultUserAgent is sent when no User-Agent header is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// New builds the engine registered under name.
func New(name string, opts Options) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EngineHTTP:
		return NewHTTPEngine(opts)
	case EngineRod:
		return NewRodEngine(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// requestHeaders merges the configured headers the way the HTTP engine sends
// them; the rod engine sets the same set as extra headers.
func (o Options) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", DefaultUserAgent)
	if o.UserAgent != "" {
		h.Set("User-Agent", o.UserAgent)
	}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if o.Cookies != "" {
		h.Set("Cookie", o.Cookies)
	}
	if o.AuthHeader != "" {
		h.Set("Authorization", o.AuthHeader)
	}
	for k, v := range o.Headers {
		h.Set(k, v)
	}
	return h
}
