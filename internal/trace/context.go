package trace

import (
	"context"
	"sync/atomic"
	"time"
)

type disabled struct{}

func (disabled) Emit(*Event)   {}
func (disabled) Flush() error  { return nil }
func (disabled) Close() error  { return nil }
func (disabled) Level() Level  { return LevelOff }
func (disabled) Enabled() bool { return false }

// Nop discards everything. It is what FromContext returns for a bare context.
var Nop Tracer = disabled{}

var spanIDs atomic.Uint64

// frame is what a context carries: the tracer and the innermost open span.
type frame struct {
	tracer Tracer
	span   uint64
}

type frameKey struct{}

func frameOf(ctx context.Context) frame {
	if ctx != nil {
		if f, ok := ctx.Value(frameKey{}).(frame); ok {
			return f
		}
	}
	return frame{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return frameOf(ctx).tracer
}

// WithTracer attaches t to ctx. A nil t detaches tracing.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, frameKey{}, frame{tracer: t, span: frameOf(ctx).span})
}

// Span is an open begin/end pair. The zero Span and spans started on a
// disabled tracer record nothing.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Start opens a span below the one recorded in ctx and returns a context in
// which it is the parent of nested spans and points.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	f := frameOf(ctx)
	if !f.tracer.Enabled() || !f.tracer.Level().ShouldEmit(scope) {
		return ctx, &Span{}
	}
	s := &Span{
		tracer:  f.tracer,
		id:      spanIDs.Add(1),
		parent:  f.span,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	s.emit(KindSpanBegin, s.started, "")
	return context.WithValue(ctx, frameKey{}, frame{tracer: f.tracer, span: s.id}), s
}

func (s *Span) emit(kind Kind, at time.Time, detail string) {
	ev := &Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
	}
	if kind == KindSpanEnd {
		ev.Extra = s.extra
	}
	s.tracer.Emit(ev)
}

// End closes the span with an optional detail and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	now := time.Now()
	s.emit(KindSpanEnd, now, detail)
	return now.Sub(s.started)
}

// WithExtra attaches a key/value pair reported on End.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// ID is 0 for spans that record nothing.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point records an instant event under the span open in ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	f := frameOf(ctx)
	if !f.tracer.Enabled() || !f.tracer.Level().ShouldEmit(scope) {
		return
	}
	f.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: f.span,
		Name:     name,
		Detail:   detail,
	})
}
