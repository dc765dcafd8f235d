// Package eventsink implements the structured event/metric/receipt emitter
// of §4.11: buffered, non-blocking on the hot path, drained off-path in
// batches.
package eventsink

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/knhk/mukernel/receipt"
	"github.com/prometheus/client_golang/prometheus"
)

// EventKind distinguishes the three record_* contract shapes (§4.11).
type EventKind uint8

const (
	KindSpan EventKind = iota
	KindMetric
	KindReceipt
)

// Event is the sum type queued between a record_* call and the drainer.
type Event struct {
	Kind       EventKind
	SpanKind   string
	TraceID    string
	Attrs      map[string]string
	MetricName string
	Value      float64
	Receipt    *receipt.Receipt
}

// Sink buffers events onto a bounded channel and drains them in a separate
// goroutine, so record_span/record_metric/record_receipt never block the
// hot path (§4.11, §5 "the hot path never blocks").
type Sink struct {
	queue   chan Event
	logger  *logiface.Logger[*stumpy.Event]
	metrics *metrics

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Config configures a Sink's bounded queue depth and logging destination.
type Config struct {
	// QueueDepth is the bounded channel's capacity. Defaults to 4096.
	QueueDepth int
	// Registerer is the Prometheus registerer metrics are registered
	// against; defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// New constructs and starts a Sink. Call Close to stop the drainer and wait
// for it to finish flushing its queue.
func New(cfg Config) *Sink {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 4096
	}
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logger := logiface.New[*stumpy.Event](stumpy.L.WithStumpy())

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		queue:   make(chan Event, depth),
		logger:  logger,
		metrics: newMetrics(reg),
		cancel:  cancel,
	}
	s.wg.Add(1)
	go s.drain(ctx)
	return s
}

// RecordSpan enqueues a span start/end event, tagged with a trace id freshly
// minted for this call: separate start and end calls get different ids, and
// receipt events carry none. Non-blocking: on a full queue, the event is
// dropped and dropped_events is incremented.
func (s *Sink) RecordSpan(kind string, attrs map[string]string) {
	s.enqueue(Event{Kind: KindSpan, SpanKind: kind, TraceID: uuid.New().String(), Attrs: attrs}, "span")
}

// RecordMetric enqueues a metric sample.
func (s *Sink) RecordMetric(name string, value float64, attrs map[string]string) {
	s.enqueue(Event{Kind: KindMetric, MetricName: name, Value: value, Attrs: attrs}, "metric")
}

// RecordReceipt enqueues a receipt for observability (distinct from any
// persistence collaborator §6 describes for durable storage).
func (s *Sink) RecordReceipt(r receipt.Receipt) {
	s.enqueue(Event{Kind: KindReceipt, Receipt: &r}, "receipt")
}

func (s *Sink) enqueue(e Event, kindLabel string) {
	select {
	case s.queue <- e:
		s.metrics.eventsEnqueued.WithLabelValues(kindLabel).Inc()
		s.metrics.queueDepth.Set(float64(len(s.queue)))
	default:
		s.metrics.eventsDropped.WithLabelValues(kindLabel).Inc()
	}
}

// drain is the non-hot-path goroutine flushing queued events to the
// structured logger until ctx is cancelled and the queue has been emptied.
func (s *Sink) drain(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case e := <-s.queue:
			s.emit(e)
		case <-ctx.Done():
			// drain whatever remains, non-blocking, before exiting
			for {
				select {
				case e := <-s.queue:
					s.emit(e)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) emit(e Event) {
	switch e.Kind {
	case KindSpan:
		b := s.logger.Info().Str("span_kind", e.SpanKind).Str("trace_id", e.TraceID)
		for k, v := range e.Attrs {
			b = b.Str(k, v)
		}
		b.Log("span")
	case KindMetric:
		b := s.logger.Info().Str("metric", e.MetricName).Float64("value", e.Value)
		for k, v := range e.Attrs {
			b = b.Str(k, v)
		}
		b.Log("metric sample")
	case KindReceipt:
		if e.Receipt == nil {
			return
		}
		s.logger.Info().
			Uint64("cycle_id", e.Receipt.CycleID).
			Uint64("hook_id", e.Receipt.HookID).
			Uint64("actual_ticks", uint64(e.Receipt.ActualTicks)).
			Bool("allows_promotion", e.Receipt.Status.AllowsPromotion()).
			Log("receipt")
	}
}

// Close stops the drainer, flushing any remaining queued events, and waits
// for it to finish.
func (s *Sink) Close() {
	s.cancel()
	s.wg.Wait()
}
