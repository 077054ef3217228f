package media

import (
	"fmt"
	"sync"
)

type EventType int

const (
	EventStart EventType = iota
	EventEnd
	EventError
	EventLoad
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	case EventLoad:
		return "load"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

type Event struct {
	Type   EventType
	URL    string
	Loaded int
	Total  int
	Err    error
}

type Listener func(e Event)

// LoadingManager counts issued and settled media requests and fires onLoad
// once every request settled. Requests may settle before Seal is called;
// completion is only possible after it.
type LoadingManager struct {
	mu        sync.Mutex
	onLoad    func()
	listeners []Listener

	total   int
	loaded  int
	pending int
	sealed  bool
	fired   bool
	done    chan struct{}
}

func NewLoadingManager(onLoad func()) *LoadingManager {
	return &LoadingManager{
		onLoad: onLoad,
		done:   make(chan struct{}),
	}
}

// Subscribe registers a listener for every following event.
// Listeners run on the goroutine that caused the event and must not block.
func (m *LoadingManager) Subscribe(l Listener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

func (m *LoadingManager) ItemStart(url string) {
	m.mu.Lock()
	m.total++
	m.pending++
	ev := Event{Type: EventStart, URL: url, Loaded: m.loaded, Total: m.total}
	ls := m.listeners
	m.mu.Unlock()

	notify(ls, ev)
}

func (m *LoadingManager) ItemError(url string, err error) {
	m.mu.Lock()
	ev := Event{Type: EventError, URL: url, Loaded: m.loaded, Total: m.total, Err: err}
	ls := m.listeners
	m.mu.Unlock()

	notify(ls, ev)
}

func (m *LoadingManager) ItemEnd(url string) {
	m.mu.Lock()
	if m.pending == 0 {
		m.mu.Unlock()
		return
	}
	m.pending--
	m.loaded++
	ev := Event{Type: EventEnd, URL: url, Loaded: m.loaded, Total: m.total}
	ls := m.listeners
	complete := m.completeLocked()
	m.mu.Unlock()

	notify(ls, ev)
	if complete {
		m.finish(ls)
	}
}

// Seal marks the end of request issuing. When nothing was requested Done
// is closed without calling onLoad.
func (m *LoadingManager) Seal() {
	m.mu.Lock()
	if m.sealed {
		m.mu.Unlock()
		return
	}
	m.sealed = true
	ls := m.listeners
	if m.total == 0 {
		m.fired = true
		close(m.done)
		m.mu.Unlock()
		return
	}
	complete := m.completeLocked()
	m.mu.Unlock()

	if complete {
		m.finish(ls)
	}
}

func (m *LoadingManager) completeLocked() bool {
	if m.fired || !m.sealed || m.pending != 0 || m.total == 0 {
		return false
	}
	m.fired = true
	return true
}

func (m *LoadingManager) finish(ls []Listener) {
	m.mu.Lock()
	ev := Event{Type: EventLoad, Loaded: m.loaded, Total: m.total}
	m.mu.Unlock()

	if m.onLoad != nil {
		m.onLoad()
	}
	notify(ls, ev)
	close(m.done)
}

// Requested is the number of requests issued so far.
func (m *LoadingManager) Requested() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

func (m *LoadingManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Done is closed after completion, or on Seal when nothing was requested.
func (m *LoadingManager) Done() <-chan struct{} {
	return m.done
}

func notify(ls []Listener, ev Event) {
	for _, l := range ls {
		l(ev)
	}
}
