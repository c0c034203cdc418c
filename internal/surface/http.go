package surface

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/Serdar715/xssdetective/internal/page"
)

// maxBodySize caps how much of a response is read into a frame.
const maxBodySize = 5 * 1024 * 1024

// HTTPEngine submits forms over plain HTTP. The host page is never touched:
// each submission works on a clone of the parsed form which is discarded
// afterwards, so the form is effectively reset.
type HTTPEngine struct {
	opts   Options
	client *http.Client
}

// NewHTTPEngine creates an HTTP engine. Cookies set by the host page are
// kept for later submissions, as a browser would.
func NewHTTPEngine(opts Options) (*HTTPEngine, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}

	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		Jar:       jar,
	}
	return &HTTPEngine{opts: opts, client: client}, nil
}

// Name implements Engine.
func (e *HTTPEngine) Name() string { return EngineHTTP }

// Open fetches the host page.
func (e *HTTPEngine) Open(ctx context.Context, target string) (*page.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return e.do(req)
}

// Submit sends a clone of the field's form carrying the payload and loads the
// reply into frame.
func (e *HTTPEngine) Submit(ctx context.Context, frame *Frame) error {
	form := frame.Field.Form()
	if form == nil {
		return ErrNoForm
	}
	clone := form.Clone()
	if err := clone.SetValue(frame.Field.ID.Element, frame.Payload); err != nil {
		return err
	}

	req, err := buildRequest(ctx, clone)
	if err != nil {
		return err
	}
	doc, err := e.do(req)
	if err != nil {
		return err
	}
	frame.Load(doc)
	return nil
}

// Close implements Engine.
func (e *HTTPEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *HTTPEngine) do(req *http.Request) (*page.Document, error) {
	for k, v := range e.opts.requestHeaders() {
		if req.Header.Get(k) == "" {
			req.Header[k] = v
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	return page.NewDocument(io.LimitReader(resp.Body, maxBodySize), resp.Request.URL.String(), resp.StatusCode)
}

// buildRequest encodes form the way a browser submits it.
func buildRequest(ctx context.Context, form *page.Form) (*http.Request, error) {
	if form.Action == nil {
		return nil, ErrNoForm
	}
	action := *form.Action
	action.Fragment = ""
	values := form.Values()

	if form.Method != http.MethodPost {
		action.RawQuery = urlEncode(values)
		return http.NewRequestWithContext(ctx, http.MethodGet, action.String(), nil)
	}

	var (
		body        bytes.Buffer
		contentType string
	)
	switch form.Enctype {
	case page.EnctypeMultipart:
		w := multipart.NewWriter(&body)
		for _, p := range values {
			if err := w.WriteField(p.Name, p.Value); err != nil {
				return nil, fmt.Errorf("failed to encode form: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode form: %w", err)
		}
		contentType = w.FormDataContentType()
	case page.EnctypePlain:
		for _, p := range values {
			body.WriteString(p.Name + "=" + p.Value + "\r\n")
		}
		contentType = page.EnctypePlain
	default:
		body.WriteString(urlEncode(values))
		contentType = page.EnctypeURLEncoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

// urlEncode keeps document order, which url.Values would not.
func urlEncode(pairs []page.Pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}
