// Package orchestrator turns an inject action into one submission per
// selected (test, field) pair and wires each submission through the test's
// check into the ledger and the renderer.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Serdar715/xssdetective/internal/catalog"
	"github.com/Serdar715/xssdetective/internal/deferred"
	"github.com/Serdar715/xssdetective/internal/ledger"
	"github.com/Serdar715/xssdetective/internal/logger"
	"github.com/Serdar715/xssdetective/internal/page"
)

// Renderer is the display side of a run.
type Renderer interface {
	AppendLogLine(line string)
	SetFieldVisualState(id page.FieldID, state ledger.State)
	ShowPanel()
	HidePanel()
	Alert(msg string)
}

// Selector supplies what the next run covers.
type Selector interface {
	SelectedFieldTargets() []page.Field
	SelectedTestIndices() []int
}

// Submitter performs one isolated submission. *surface.Channel implements it.
type Submitter interface {
	Submit(ctx context.Context, field page.Field, payload string) *deferred.Deferred[*page.Document]
}

// Config wires an Orchestrator.
type Config struct {
	Registry  *catalog.Registry
	Submitter Submitter
	Selector  Selector
	Renderer  Renderer
	Logger    logrus.FieldLogger
}

// Orchestrator runs inject actions. Runs may overlap; results of a run that
// has been superseded are dropped by the ledger.
type Orchestrator struct {
	registry  *catalog.Registry
	submitter Submitter
	selector  Selector
	renderer  Renderer
	ledger    *ledger.Ledger
	log       logrus.FieldLogger

	// paintMu makes every repaint read the aggregate after the record it
	// follows, so a slower pair never paints an older state over a newer one.
	paintMu sync.Mutex
}

// New creates an orchestrator. The ledger it owns reports result lines to
// the renderer.
func New(cfg Config) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Orchestrator{
		registry:  cfg.Registry,
		submitter: cfg.Submitter,
		selector:  cfg.Selector,
		renderer:  cfg.Renderer,
		ledger:    ledger.New(cfg.Renderer),
		log:       log,
	}
}

// Ledger exposes the results of the current run.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// Inject validates the selection, resets the ledger and dispatches every
// (test, field) pair without waiting between them. On a validation error the
// renderer is alerted and nothing else happens.
func (o *Orchestrator) Inject(ctx context.Context) (*Run, error) {
	targets := o.selector.SelectedFieldTargets()
	if len(targets) == 0 {
		o.renderer.Alert(ErrNoTargets.Error())
		return nil, ErrNoTargets
	}
	indices := o.selector.SelectedTestIndices()
	if len(indices) == 0 {
		o.renderer.Alert(ErrNoTests.Error())
		return nil, ErrNoTests
	}

	tests := make([]catalog.Test, 0, len(indices))
	for _, i := range indices {
		t, err := o.registry.Get(i)
		if err != nil {
			o.renderer.Alert(err.Error())
			return nil, err
		}
		tests = append(tests, t)
	}

	gen := o.ledger.Reset(targets, len(tests))
	o.renderer.ShowPanel()
	for _, target := range targets {
		o.renderer.SetFieldVisualState(target.ID, ledger.Pending)
	}

	run := newRun(gen, targets, indices, tests)
	o.log.WithFields(logrus.Fields{
		"run":     gen,
		"targets": len(targets),
		"tests":   len(tests),
	}).Info("dispatching")

	for n, test := range tests {
		for _, target := range targets {
			o.dispatch(ctx, run, indices[n], test, target)
		}
	}
	return run, nil
}

// dispatch chains submit -> check -> record -> repaint for one pair.
func (o *Orchestrator) dispatch(ctx context.Context, run *Run, index int, test catalog.Test, target page.Field) {
	submitted := o.submitter.Submit(ctx, target, test.Vector)

	checked := deferred.Then(submitted, func(doc *page.Document) (bool, error) {
		return runCheck(test, doc)
	})

	recorded := checked.Tap(func(passed bool) error {
		return o.ledger.Record(run.Generation, target.ID, index, passed)
	})

	painted := recorded.Tap(func(bool) error {
		o.paintMu.Lock()
		defer o.paintMu.Unlock()
		o.renderer.SetFieldVisualState(target.ID, o.ledger.Aggregate(target.ID))
		return nil
	})

	painted.Finally(func(passed bool, err error) {
		if err != nil {
			err = &PairError{
				Field:     target.DisplayName(),
				FieldID:   target.ID.String(),
				Test:      test.Name,
				TestIndex: index,
				Cause:     err,
			}
			o.log.WithError(err).WithFields(logrus.Fields{
				"run":   run.Generation,
				"field": target.ID.String(),
				"test":  index,
			}).Warn("pair aborted")
		}
		run.pairSettled(passed, err)
	})
}

// runCheck applies the check, turning a panic into ErrCheckPanicked so only
// this pair is aborted.
func runCheck(test catalog.Test, doc *page.Document) (passed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrCheckPanicked, test.Name, r)
		}
	}()
	return test.Check(doc), nil
}
