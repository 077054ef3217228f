package media

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_browser/scene/diag"
)

// gatedFetcher blocks every request until the test releases its url
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[string]chan error)}
}

func (f *gatedFetcher) gate(url string) chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gates[url]
	if !ok {
		g = make(chan error, 2)
		f.gates[url] = g
	}
	return g
}

func (f *gatedFetcher) FetchMedia(ctx context.Context, url string, kind Kind) (*Payload, error) {
	if err := <-f.gate(url); err != nil {
		return nil, err
	}
	return &Payload{Data: []byte(url), MIME: "image/png", Width: 1, Height: 1}, nil
}

func (f *gatedFetcher) release(url string, err error) {
	f.gate(url) <- err
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestResolveURL(t *testing.T) {
	r := &Resolver{BasePath: "scenes/a/"}
	for _, test := range []struct {
		in, out string
	}{
		{"tex.png", "scenes/a/tex.png"},
		{"sub/tex.png", "scenes/a/sub/tex.png"},
		{"http://host/tex.png", "http://host/tex.png"},
		{"HTTPS://host/tex.png", "HTTPS://host/tex.png"},
		{"//cdn/tex.png", "//cdn/tex.png"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"blob:abc", "blob:abc"},
		{"/abs/tex.png", "scenes/a//abs/tex.png"},
	} {
		assert.Equal(t, test.out, r.ResolveURL(test.in), test.in)
	}
}

func TestCompletionFiresOnceInAnyOrder(t *testing.T) {
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			f := newGatedFetcher()
			var fired atomic.Int32
			m := NewLoadingManager(func() { fired.Add(1) })
			r := &Resolver{Manager: m, Fetcher: f, BasePath: "base/"}

			images := r.ParseImages(context.Background(), []*Descriptor{
				{UUID: "i0", URL: "0.png"}, {UUID: "i1", URL: "1.png"}, {UUID: "i2", URL: "2.png"},
			})
			m.Seal()
			require.Equal(t, 3, m.Requested())

			for n, i := range order {
				assert.Equal(t, int32(0), fired.Load())
				f.release(fmt.Sprintf("base/%d.png", i), nil)
				waitClosed(t, images[fmt.Sprintf("i%d", i)].Active().Done())
				if n < len(order)-1 {
					assert.Greater(t, m.Pending(), 0)
				}
			}

			waitClosed(t, m.Done())
			assert.Equal(t, int32(1), fired.Load())
			assert.Equal(t, 0, m.Pending())
			for _, a := range images {
				assert.True(t, a.Active().Available())
			}
		})
	}
}

func TestCompletionWaitsForSeal(t *testing.T) {
	fetch := FetcherFunc(func(ctx context.Context, url string, kind Kind) (*Payload, error) {
		return &Payload{}, nil
	})
	var fired atomic.Int32
	m := NewLoadingManager(func() { fired.Add(1) })
	r := &Resolver{Manager: m, Fetcher: fetch}

	a := r.ParseImages(context.Background(), []*Descriptor{{UUID: "x", URL: "x.png"}})["x"]
	waitClosed(t, a.Active().Done())
	// settle may race ItemEnd, give it a moment
	require.Eventually(t, func() bool { return m.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	m.Seal()
	waitClosed(t, m.Done())
	assert.Equal(t, int32(1), fired.Load())

	m.Seal()
	m.ItemEnd("x.png")
	assert.Equal(t, int32(1), fired.Load())
}

func TestSealWithoutRequests(t *testing.T) {
	var fired atomic.Int32
	m := NewLoadingManager(func() { fired.Add(1) })
	m.Seal()
	waitClosed(t, m.Done())
	assert.Equal(t, int32(0), fired.Load())
}

type reports struct {
	mu   sync.Mutex
	errs []error
}

func (r *reports) Report(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func TestFailedMediaStillCompletes(t *testing.T) {
	f := newGatedFetcher()
	rep := &reports{}
	var fired atomic.Int32
	m := NewLoadingManager(func() { fired.Add(1) })

	var mu sync.Mutex
	var events []EventType
	m.Subscribe(func(e Event) {
		mu.Lock()
		events = append(events, e.Type)
		mu.Unlock()
	})

	r := &Resolver{Manager: m, Fetcher: f, Reporter: rep}
	images := r.ParseImages(context.Background(), []*Descriptor{{UUID: "ok", URL: "ok.png"}, {UUID: "bad", URL: "bad.png"}})
	m.Seal()

	f.release("bad.png", errors.New("404"))
	f.release("ok.png", nil)
	waitClosed(t, m.Done())

	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, StateNetworkError, images["bad"].Active().State())
	assert.EqualError(t, images["bad"].Active().Err(), "404")
	assert.Nil(t, images["bad"].Active().Payload())
	assert.True(t, images["ok"].Active().Available())

	require.Len(t, rep.errs, 1)
	var me *diag.MediaError
	require.ErrorAs(t, rep.errs[0], &me)
	assert.Equal(t, "bad", me.ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventStart, events[0])
	assert.Equal(t, EventLoad, events[len(events)-1])
	assert.Contains(t, events, EventError)
}

func TestVideoHasTwoHandles(t *testing.T) {
	f := newGatedFetcher()
	m := NewLoadingManager(nil)
	r := &Resolver{Manager: m, Fetcher: f}

	videos := r.ParseVideos(context.Background(), []*Descriptor{{UUID: "v1", URL: "clip.mp4"}})
	m.Seal()

	v := videos["v1"]
	require.NotNil(t, v)
	require.Len(t, v.Handles, 2)
	assert.Equal(t, SlotActive, v.Active().Slot)
	assert.Equal(t, SlotDormant, v.Dormant().Slot)
	assert.Equal(t, v.Active().URL, v.Dormant().URL)
	assert.Equal(t, StatePending, v.Active().State())
	assert.Equal(t, StatePending, v.Dormant().State())
	assert.Equal(t, 2, m.Requested())
	assert.False(t, v.Settled())

	f.release("clip.mp4", nil)
	f.release("clip.mp4", nil)
	waitClosed(t, m.Done())
	assert.True(t, v.Settled())
}

func TestNilFetcherSettlesWithError(t *testing.T) {
	m := NewLoadingManager(nil)
	r := &Resolver{Manager: m}
	a := r.RequestAudio(context.Background(), "node-1", "sound.mp3")
	m.Seal()

	waitClosed(t, m.Done())
	assert.Equal(t, "node-1", a.Active().ClassName())
	assert.Equal(t, KindAudio, a.Kind)
	assert.True(t, a.Active().Failed())
}

func TestCancelledContextDoesNotAbortRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := FetcherFunc(func(ctx context.Context, url string, kind Kind) (*Payload, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Payload{}, nil
	})
	cancel()

	m := NewLoadingManager(nil)
	r := &Resolver{Manager: m, Fetcher: fetch}
	a := r.ParseImages(ctx, []*Descriptor{{UUID: "i", URL: "i.png"}})["i"]
	m.Seal()

	waitClosed(t, m.Done())
	assert.True(t, a.Active().Available())
}

func TestBrokenDescriptorsAreSkipped(t *testing.T) {
	var descs []*Descriptor
	require.NoError(t, json.Unmarshal([]byte(`[
		{"uuid": "a", "url": "a.png", "name": 3},
		{"uuid": "b"},
		5,
		{"uuid": "c", "url": 7}
	]`), &descs))

	rep := &reports{}
	m := NewLoadingManager(nil)
	r := &Resolver{Manager: m, Fetcher: newGatedFetcher(), Reporter: rep}
	images := r.ParseImages(context.Background(), descs)

	require.Len(t, images, 1)
	assert.Equal(t, "a.png", images["a"].URL)
	assert.Equal(t, "", images["a"].Name)
	assert.Equal(t, 1, m.Requested())

	// a name, b url, the number, c url type and c url
	rep.mu.Lock()
	defer rep.mu.Unlock()
	require.Len(t, rep.errs, 5)
	for _, err := range rep.errs {
		assert.IsType(t, &diag.InvalidRecordError{}, err)
	}
}
