package surface

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/Serdar715/xssdetective/internal/page"
)

// submitScript retargets the real form at a fresh hidden iframe, submits it
// with the payload, resets it and resolves with the first iframe load whose
// body has a child node. Every frame is kept in window.__xd until released,
// together with the target its form had before any of our submissions, so
// overlapping submissions on one form always restore the page's own target.
const submitScript = `(formIdx, elemIdx, frameName, payload, prefix) => new Promise((resolve, reject) => {
	const form = document.forms[formIdx];
	if (!form) { reject(new Error("no form " + formIdx)); return; }
	const el = form.elements[elemIdx];
	if (!el) { reject(new Error("no element " + formIdx + ";" + elemIdx)); return; }

	const st = window.__xd || (window.__xd = { targets: {}, frames: {} });
	window.__xdRelease = window.__xdRelease || ((name) => {
		const entry = st.frames[name];
		if (!entry) return false;
		delete st.frames[name];
		entry.frame.remove();
		const f = document.forms[entry.form];
		if (f) f.target = st.targets[entry.form] || "";
		return true;
	});
	if (!form.target.startsWith(prefix)) st.targets[formIdx] = form.target;

	const frame = document.createElement("iframe");
	frame.name = frameName;
	frame.style.display = "none";
	frame.style.position = "absolute";
	st.frames[frameName] = { frame: frame, form: formIdx };
	document.body.appendChild(frame);

	frame.addEventListener("load", () => {
		if (!st.frames[frameName]) return;
		let doc;
		try { doc = frame.contentDocument; } catch (e) { return; }
		if (!doc || !doc.body || doc.body.firstChild === null) return;
		const html = doc.documentElement.outerHTML;
		const url = doc.location ? doc.location.href : "";
		window.__xdRelease(frameName);
		resolve({ html: html, url: url });
	});

	form.target = frameName;
	let option = null;
	if (el.tagName === "SELECT") {
		option = document.createElement("option");
		option.value = payload;
		option.text = payload;
		el.appendChild(option);
		option.selected = true;
	} else if (el.type === "checkbox" || el.type === "radio") {
		el.value = payload;
		el.checked = true;
	} else {
		el.value = payload;
	}
	el.disabled = false;
	HTMLFormElement.prototype.submit.call(form);
	if (option) option.remove();
	form.reset();
})`

// releaseScript drops a frame whose submission was abandoned and restores its
// form's target. It is a no-op for frames already released by their load.
const releaseScript = `(frameName) => window.__xdRelease ? window.__xdRelease(frameName) : false`

// releaseTimeout bounds the cleanup that follows an abandoned submission.
const releaseTimeout = 5 * time.Second

// RodEngine drives a real Chromium through go-rod. Submissions happen inside
// the host page, exactly like a user script would run them.
type RodEngine struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser

	mu   sync.Mutex
	host *rod.Page
}

// NewRodEngine launches the browser.
func NewRodEngine(opts Options) (*RodEngine, error) {
	l := launcher.New().
		Headless(!opts.Visible).
		NoSandbox(true)
	if opts.BrowserPath != "" {
		l = l.Bin(opts.BrowserPath)
	}
	if opts.ProxyURL != "" {
		l = l.Proxy(opts.ProxyURL)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	_ = browser.IgnoreCertErrors(true)

	return &RodEngine{opts: opts, launcher: l, browser: browser}, nil
}

// Name implements Engine.
func (e *RodEngine) Name() string { return EngineRod }

// Open navigates a new tab to url and keeps it as the host page.
func (e *RodEngine) Open(ctx context.Context, url string) (*page.Document, error) {
	p, err := e.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	var dict []string
	for k, v := range e.opts.requestHeaders() {
		if len(v) > 0 {
			dict = append(dict, k, v[0])
		}
	}
	if _, err := p.SetExtraHeaders(dict); err != nil {
		return nil, fmt.Errorf("failed to set headers: %w", err)
	}

	// Payloads that fire dialogs inside a frame would block the page.
	go p.EachEvent(func(ev *proto.PageJavascriptDialogOpening) {
		_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(p)
	})()

	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	final := url
	if info, err := p.Info(); err == nil && info.URL != "" {
		final = info.URL
	}

	e.mu.Lock()
	old := e.host
	e.host = p
	e.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	return page.ParseHTML(html, final, 0)
}

// Submit runs the submission script in the host page and loads the iframe's
// document into frame.
func (e *RodEngine) Submit(ctx context.Context, frame *Frame) error {
	e.mu.Lock()
	host := e.host
	e.mu.Unlock()
	if host == nil {
		return ErrNoHostPage
	}

	id := frame.Field.ID
	res, err := host.Context(ctx).Evaluate(
		rod.Eval(submitScript, id.Form, id.Element, frame.Name, frame.Payload, FramePrefix).ByPromise(),
	)
	if err != nil {
		// The promise cannot be cancelled, so the frame would stay in the page.
		e.release(host, frame.Name)
		return err
	}

	doc, err := page.ParseHTML(res.Value.Get("html").Str(), res.Value.Get("url").Str(), 0)
	if err != nil {
		return err
	}
	frame.Load(doc)
	return nil
}

// release removes the named frame from the host page on a fresh context,
// since the submission's own context has usually ended by now.
func (e *RodEngine) release(host *rod.Page, frameName string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	_, _ = host.Context(ctx).Evaluate(rod.Eval(releaseScript, frameName))
}

// Close shuts the browser down.
func (e *RodEngine) Close() error {
	err := e.browser.Close()
	e.launcher.Cleanup()
	return err
}
