package surface

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Serdar715/xssdetective/internal/page"
)

// FramePrefix starts every hidden surface name.
const FramePrefix = "xd_frame_"

// frameSeq numbers hidden surfaces process-wide, so names never repeat even
// across channels sharing one host page.
var frameSeq atomic.Uint64

func nextFrameName() string {
	return FramePrefix + strconv.FormatUint(frameSeq.Add(1), 10)
}

// Frame is one hidden surface: the render target a single (field, payload)
// submission is aimed at.
type Frame struct {
	Name    string
	Field   page.Field
	Payload string

	ready chan struct{}
	once  sync.Once
	doc   *page.Document
	loads atomic.Int32
}

func newFrame(field page.Field, payload string) *Frame {
	return &Frame{
		Name:    nextFrameName(),
		Field:   field,
		Payload: payload,
		ready:   make(chan struct{}),
	}
}

// Load delivers a document the frame has loaded. The frame becomes ready on
// the first load whose body has a child node; empty loads are ignored. It
// reports whether this load made the frame ready.
func (f *Frame) Load(doc *page.Document) bool {
	f.loads.Add(1)
	if !doc.BodyHasContent() {
		return false
	}
	fired := false
	f.once.Do(func() {
		f.doc = doc
		close(f.ready)
		fired = true
	})
	return fired
}

// Ready is closed once a populated document has loaded.
func (f *Frame) Ready() <-chan struct{} {
	return f.ready
}

// Document returns the response captured by the frame, nil until ready.
func (f *Frame) Document() *page.Document {
	select {
	case <-f.ready:
		return f.doc
	default:
		return nil
	}
}

// Loads counts every load delivered to the frame, empty ones included.
func (f *Frame) Loads() int {
	return int(f.loads.Load())
}
