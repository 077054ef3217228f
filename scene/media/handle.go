package media

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type Kind int

const (
	KindImage Kind = iota
	KindVideo
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Slot tells the two handles of a video apart. Images and audio use SlotSingle.
type Slot int

const (
	SlotSingle Slot = iota
	SlotActive
	SlotDormant
)

func (s Slot) String() string {
	switch s {
	case SlotSingle:
		return "single"
	case SlotActive:
		return "active"
	case SlotDormant:
		return "dormant"
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

type State int32

const (
	StatePending State = iota
	StateAvailable
	StateNetworkError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAvailable:
		return "available"
	case StateNetworkError:
		return "network-error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Payload is what a fetcher produced for a url.
// Width and Height are zero when the format carries no dimensions (audio, unknown video).
type Payload struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Handle is one in-flight or settled media element.
// It leaves StatePending exactly once.
type Handle struct {
	URL         string
	Kind        Kind
	Slot        Slot
	CrossOrigin string

	state atomic.Int32
	done  chan struct{}

	mu        sync.Mutex
	className string
	payload   *Payload
	err       error
}

func newHandle(url string, kind Kind, slot Slot, crossOrigin string) *Handle {
	return &Handle{
		URL:         url,
		Kind:        kind,
		Slot:        slot,
		CrossOrigin: crossOrigin,
		done:        make(chan struct{}),
	}
}

func (h *Handle) State() State {
	return State(h.state.Load())
}

func (h *Handle) Available() bool {
	return h != nil && h.State() == StateAvailable
}

func (h *Handle) Failed() bool {
	return h != nil && h.State() == StateNetworkError
}

// Done is closed once the handle settles.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Payload returns nil until the handle is available.
func (h *Handle) Payload() *Payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.payload
}

func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) ClassName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.className
}

func (h *Handle) SetClassName(name string) {
	h.mu.Lock()
	h.className = name
	h.mu.Unlock()
}

// settle moves a pending handle to its terminal state. Later calls are ignored.
func (h *Handle) settle(p *Payload, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.State() != StatePending {
		return false
	}
	if err != nil {
		h.err = err
		h.state.Store(int32(StateNetworkError))
	} else {
		h.payload = p
		h.state.Store(int32(StateAvailable))
	}
	close(h.done)
	return true
}
