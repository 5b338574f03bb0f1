package mapview

import (
	"sync"

	"github.com/google/uuid"
)

// memoryMarker is the in-memory marker handle.
type memoryMarker struct {
	id   string
	opts MarkerOptions
}

func (m *memoryMarker) ID() string       { return m.id }
func (m *memoryMarker) Position() LatLng { return m.opts.Position }
func (m *memoryMarker) Role() IconRole   { return m.opts.Role }

// MemoryMap is the headless Map implementation. It keeps the full marker and
// viewport state so the engine can run without a rendering frontend, and it
// doubles as the test surface: Click simulates a user tap, and the counters
// expose how many SDK operations a reconciliation produced.
type MemoryMap struct {
	mu        sync.Mutex
	disposed  bool
	markers   map[string]*memoryMarker
	viewport  *Viewport
	clickSubs map[int]func(LatLng)
	nextSub   int

	creates int
	removes int
	fits    int
}

// NewMemoryMap acquires a fresh in-memory map surface.
func NewMemoryMap() *MemoryMap {
	return &MemoryMap{
		markers:   make(map[string]*memoryMarker),
		clickSubs: make(map[int]func(LatLng)),
	}
}

func (m *MemoryMap) AddMarker(opts MarkerOptions) (Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return nil, ErrDisposed
	}
	mk := &memoryMarker{id: uuid.New().String(), opts: opts}
	m.markers[mk.id] = mk
	m.creates++
	return mk, nil
}

func (m *MemoryMap) RemoveMarker(marker Marker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return ErrDisposed
	}
	if _, ok := m.markers[marker.ID()]; !ok {
		return nil
	}
	delete(m.markers, marker.ID())
	m.removes++
	return nil
}

func (m *MemoryMap) FitBounds(v Viewport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return ErrDisposed
	}
	vv := v
	m.viewport = &vv
	m.fits++
	return nil
}

func (m *MemoryMap) OnClick(fn func(LatLng)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return nil, ErrDisposed
	}
	id := m.nextSub
	m.nextSub++
	m.clickSubs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.clickSubs, id)
		m.mu.Unlock()
	}, nil
}

func (m *MemoryMap) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	m.markers = map[string]*memoryMarker{}
	m.clickSubs = map[int]func(LatLng){}
}

// Click simulates a user tap at the given coordinate.
func (m *MemoryMap) Click(at LatLng) {
	m.mu.Lock()
	fns := make([]func(LatLng), 0, len(m.clickSubs))
	for _, fn := range m.clickSubs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(at)
	}
}

// MarkerCount returns how many markers are currently rendered.
func (m *MemoryMap) MarkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markers)
}

// MarkersByRole returns the rendered markers carrying the given role.
func (m *MemoryMap) MarkersByRole(role IconRole) []Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Marker
	for _, mk := range m.markers {
		if mk.opts.Role == role {
			out = append(out, mk)
		}
	}
	return out
}

// Viewport returns the last fitted region, or nil when bounds were never
// fitted.
func (m *MemoryMap) Viewport() *Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

// Ops returns the cumulative create/remove/fit operation counts.
func (m *MemoryMap) Ops() (creates, removes, fits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates, m.removes, m.fits
}
