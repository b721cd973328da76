package pipeline

// EventKind tags an Event's payload variant (the progress event
// table).
type EventKind int

const (
	ScanProgress EventKind = iota
	HashProgress
	CompareProgress
	CompareDuplicateFound
	PipelineCompleted
	PipelineCancelled
)

func (k EventKind) String() string {
	switch k {
	case ScanProgress:
		return "Scan.Progress"
	case HashProgress:
		return "Hash.Progress"
	case CompareProgress:
		return "Compare.Progress"
	case CompareDuplicateFound:
		return "Compare.DuplicateFound"
	case PipelineCompleted:
		return "Pipeline.Completed"
	case PipelineCancelled:
		return "Pipeline.Cancelled"
	default:
		return "Event(unknown)"
	}
}

// Event is the tagged-union progress event streamed during a scan (spec
// ). Only the fields relevant to Kind are meaningful; the rest are zero.
type Event struct {
	Kind        EventKind
	PhotosFound uint64 // ScanProgress
	Completed   uint64 // HashProgress, CompareDuplicateFound (incrementing)
	Total       uint64 // HashProgress
}

// Sink receives progress events. Implementations must tolerate bursts and
// coalescing of high-frequency events, and must never block the
// pipeline indefinitely — Send is expected to be cheap (buffer, counter
// update, or a non-blocking channel send).
type Sink interface {
	Send(Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Send(e Event) { f(e) }

// monotonicSink wraps a Sink and enforces the progress-monotonicity
// guarantee: for each event kind carrying a `completed` counter, an event
// whose counter is lower than the last one observed for that kind is
// dropped rather than forwarded.
type monotonicSink struct {
	inner    Sink
	lastSeen map[EventKind]uint64
}

func newMonotonicSink(inner Sink) *monotonicSink {
	return &monotonicSink{inner: inner, lastSeen: make(map[EventKind]uint64)}
}

func (s *monotonicSink) Send(e Event) {
	switch e.Kind {
	case HashProgress, CompareDuplicateFound, ScanProgress:
		counter := e.Completed
		if e.Kind == ScanProgress {
			counter = e.PhotosFound
		}
		if last, ok := s.lastSeen[e.Kind]; ok && counter < last {
			return // out-of-order event that would decrease the counter: dropped
		}
		s.lastSeen[e.Kind] = counter
	}
	s.inner.Send(e)
}
