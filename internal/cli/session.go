package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Serdar715/xssdetective/internal/catalog"
	"github.com/Serdar715/xssdetective/internal/config"
	"github.com/Serdar715/xssdetective/internal/orchestrator"
	"github.com/Serdar715/xssdetective/internal/page"
	"github.com/Serdar715/xssdetective/internal/render"
	"github.com/Serdar715/xssdetective/internal/report"
	"github.com/Serdar715/xssdetective/internal/selection"
	"github.com/Serdar715/xssdetective/internal/surface"
)

// settleGrace is how long an interrupted run may take to settle the
// submissions cancelled under it.
const settleGrace = 2 * time.Second

// hiddenPanel keeps the result log closed; only alerts and the summary print.
type hiddenPanel struct {
	*render.Console
}

func (hiddenPanel) ShowPanel() {}

// buildRegistry registers the builtin tests and then every catalog file, in
// order.
func buildRegistry(cfg *config.ScanConfig, log logrus.FieldLogger) (*catalog.Registry, error) {
	reg := catalog.NewRegistry()
	reg.OnRegister(func(added []catalog.Test, total int) {
		log.WithField("total", total).Debugf("registered %d tests", len(added))
	})

	if !cfg.NoBuiltin {
		if err := reg.Register(catalog.Builtin()...); err != nil {
			return nil, err
		}
	}
	for _, path := range cfg.Catalogs {
		tests, err := catalog.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(tests...); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, nil
}

// openPage loads and parses the host page.
func openPage(ctx context.Context, engine surface.Engine, hostURL string) (*page.Page, error) {
	doc, err := engine.Open(ctx, hostURL)
	if err != nil {
		return nil, err
	}
	return page.Parse(doc)
}

// applySelection feeds the configured fields and tests into m. A field spec
// that parses as "form;element" is an identity, anything else is a name.
func applySelection(m *selection.Manager, p *page.Page, cfg *config.ScanConfig) error {
	m.Begin(p)

	if cfg.AllInputs {
		if err := m.SelectAll(); err != nil {
			return err
		}
	}
	for _, spec := range cfg.Fields {
		if id, err := page.ParseFieldID(spec); err == nil {
			if err := m.Select(id); err != nil {
				return err
			}
			continue
		}
		if err := m.SelectByName(spec); err != nil {
			return err
		}
	}

	switch {
	case cfg.AllTests:
		m.SelectAllTests(true)
	case len(cfg.Tests) > 0:
		if err := m.SelectTests(cfg.Tests...); err != nil {
			return err
		}
	}
	return nil
}

// isUserError reports errors that only need the user to change the
// selection and try again.
func isUserError(err error) bool {
	return errors.Is(err, orchestrator.ErrNoTargets) ||
		errors.Is(err, orchestrator.ErrNoTests) ||
		errors.Is(err, selection.ErrNoInputs)
}

// injectSession runs one inject action against an opened engine.
type injectSession struct {
	cfg    *config.ScanConfig
	engine surface.Engine
	out    io.Writer
	log    logrus.FieldLogger
}

// run opens the host page, selects, injects and waits. When ctx ends first
// the partial result is returned with Complete unset. User errors are
// alerted and returned.
func (s *injectSession) run(ctx context.Context) (*report.Result, error) {
	reg, err := buildRegistry(s.cfg, s.log)
	if err != nil {
		return nil, err
	}

	p, err := openPage(ctx, s.engine, s.cfg.HostURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open host page: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"url":   p.URL.String(),
		"forms": len(p.Forms),
	}).Debug("host page parsed")

	console := render.NewConsole(s.out)
	var renderer orchestrator.Renderer = console
	if !s.cfg.ShowPanel {
		renderer = hiddenPanel{console}
	}
	for _, f := range p.Targets() {
		console.Label(f)
	}

	sel := selection.NewManager(reg)
	if err := applySelection(sel, p, s.cfg); err != nil {
		if isUserError(err) {
			console.Alert(err.Error())
		}
		return nil, err
	}

	opts := []surface.Option{
		surface.WithTimeout(s.cfg.Timeout),
		surface.WithMaxInFlight(s.cfg.MaxInFlight),
		surface.WithLogger(s.log),
	}
	if s.cfg.MaxFailures > 0 {
		opts = append(opts, surface.WithBreaker(surface.NewBreaker(s.cfg.MaxFailures, surface.DefaultBreakerCooldown)))
	}
	channel := surface.NewChannel(s.engine, opts...)
	orch := orchestrator.New(orchestrator.Config{
		Registry:  reg,
		Submitter: channel,
		Selector:  sel,
		Renderer:  renderer,
		Logger:    s.log,
	})

	run, err := orch.Inject(ctx)
	if err != nil {
		return nil, err
	}

	if err := run.Wait(ctx); err != nil {
		grace, cancel := context.WithTimeout(context.Background(), settleGrace)
		_ = run.Wait(grace)
		cancel()
	}
	s.log.WithFields(logrus.Fields{
		"frames":  channel.Created(),
		"pending": run.Pending(),
	}).Debug("run settled")
	if err := run.Err(); err != nil {
		s.log.WithError(err).Debugf("%d pairs aborted", run.ErrorCount())
	}

	return report.Build(s.cfg.HostURL, s.engine.Name(), run, orch.Ledger().Snapshot(), console.Lines()), nil
}
