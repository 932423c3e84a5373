package calendar

import (
	"context"
	"sync"
	"time"

	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

// fakeProvider serves canned responses per call, repeating the last one
type fakeProvider struct {
	name      string
	kind      calendar.Kind
	maxBatch  int
	responses []fakeResponse
	// records keyed by instrument key, used when responses is empty
	byKey map[string][]calendar.RawRecord

	mu       sync.Mutex
	calls    int
	requests []calendar.FetchRequest
}

type fakeResponse struct {
	records []calendar.RawRecord
	err     error
}

func (p *fakeProvider) Name() string        { return p.name }
func (p *fakeProvider) Kind() calendar.Kind { return p.kind }
func (p *fakeProvider) MaxBatch() int       { return p.maxBatch }

func (p *fakeProvider) Fetch(ctx context.Context, req calendar.FetchRequest) ([]calendar.RawRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.requests = append(p.requests, req)

	if len(p.responses) > 0 {
		i := min(p.calls-1, len(p.responses)-1)
		return p.responses[i].records, p.responses[i].err
	}

	var out []calendar.RawRecord
	for _, inst := range req.Instruments {
		out = append(out, p.byKey[inst.Key]...)
	}
	return out, nil
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stalledProvider never answers before its context ends
type stalledProvider struct {
	name string
}

func (p *stalledProvider) Name() string        { return p.name }
func (p *stalledProvider) Kind() calendar.Kind { return calendar.KindIndicatorRelease }
func (p *stalledProvider) MaxBatch() int       { return 0 }

func (p *stalledProvider) Fetch(ctx context.Context, req calendar.FetchRequest) ([]calendar.RawRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func rawIndicator(source, series, date, value string) calendar.RawRecord {
	rec := calendar.NewRawRecord(source, calendar.KindIndicatorRelease)
	rec.Set("series", series)
	rec.Set("date", date)
	rec.Set("value", value)
	return rec
}

func rawEarnings(source, code, date string) calendar.RawRecord {
	rec := calendar.NewRawRecord(source, calendar.KindEarningsReport)
	rec.Set("code", code)
	rec.Set("report_date", date)
	return rec
}

// memRepository is an in-memory calendar.Repository
type memRepository struct {
	mu        sync.Mutex
	events    map[string]calendar.CalendarEvent
	failIDs   map[string]bool
	failCalls int // whole-call failures to return before succeeding
	calls     int
	batches   []int
	onUpsert  func(ctx context.Context)
}

func newMemRepository() *memRepository {
	return &memRepository{
		events:  make(map[string]calendar.CalendarEvent),
		failIDs: make(map[string]bool),
	}
}

func (r *memRepository) UpsertEvents(ctx context.Context, events []calendar.CalendarEvent) ([]calendar.RecordError, error) {
	if r.onUpsert != nil {
		r.onUpsert(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	r.batches = append(r.batches, len(events))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.failCalls > 0 {
		r.failCalls--
		return nil, errors.New("connection reset")
	}

	var failed []calendar.RecordError
	for _, e := range events {
		if r.failIDs[e.ID] {
			failed = append(failed, calendar.RecordError{ID: e.ID, Err: errors.New("constraint violation")})
			continue
		}
		if existing, ok := r.events[e.ID]; ok && existing.UpdatedAt.After(e.UpdatedAt) {
			continue
		}
		r.events[e.ID] = e
	}
	return failed, nil
}

func (r *memRepository) GetByID(ctx context.Context, id string) (*calendar.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &e, nil
}

func (r *memRepository) ListByWindow(ctx context.Context, kind calendar.Kind, window calendar.Window) ([]calendar.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []calendar.CalendarEvent
	for _, e := range r.events {
		if e.Kind == kind && window.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// memFingerprints is an in-memory FingerprintStore
type memFingerprints struct {
	mu  sync.Mutex
	fps map[string]string
	err error
}

func newMemFingerprints() *memFingerprints {
	return &memFingerprints{fps: make(map[string]string)}
}

func (m *memFingerprints) Matching(ctx context.Context, fps map[string]string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]bool)
	for id, fp := range fps {
		if m.fps[id] == fp {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memFingerprints) Remember(ctx context.Context, fps map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, fp := range fps {
		m.fps[id] = fp
	}
	return nil
}

func newTestRunner(repo calendar.Repository, fps FingerprintStore) *Runner {
	gw := NewGateway(repo, GatewayConfig{BatchSize: 50, Timeout: time.Second, Retries: 1}, nil)
	r := NewRunner(NewNormalizer(nil), NewClassifier(nil), gw, fps, nil, RunnerConfig{}, nil)
	r.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return r
}

func mustWindow(from, to string) calendar.Window {
	w, err := calendar.ParseWindow(from, to)
	if err != nil {
		panic(err)
	}
	return w
}
