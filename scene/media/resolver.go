package media

import (
	"context"
	"regexp"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/utils"
)

// Fetcher produces the bytes behind a media url.
type Fetcher interface {
	FetchMedia(ctx context.Context, url string, kind Kind) (*Payload, error)
}

type FetcherFunc func(ctx context.Context, url string, kind Kind) (*Payload, error)

func (f FetcherFunc) FetchMedia(ctx context.Context, url string, kind Kind) (*Payload, error) {
	return f(ctx, url, kind)
}

// Descriptor is one entry of the document "images" or "videos" arrays.
type Descriptor struct {
	UUID string `json:"uuid"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`

	fieldErrs []error
	malformed error
}

func (d *Descriptor) UnmarshalJSON(b []byte) error {
	type alias Descriptor
	*d = Descriptor{}
	d.fieldErrs, d.malformed = utils.UnmarshalFields(b, (*alias)(d))
	return nil
}

type Asset struct {
	ID      string
	Name    string
	URL     string
	Kind    Kind
	Handles []*Handle
}

// Active is the handle textures bind to.
func (a *Asset) Active() *Handle {
	if a == nil || len(a.Handles) == 0 {
		return nil
	}
	return a.Handles[0]
}

// Dormant is the second video buffer, nil for other kinds.
func (a *Asset) Dormant() *Handle {
	if a == nil || len(a.Handles) < 2 {
		return nil
	}
	return a.Handles[1]
}

// Settled reports whether every handle left the pending state.
func (a *Asset) Settled() bool {
	for _, h := range a.Handles {
		if h.State() == StatePending {
			return false
		}
	}
	return true
}

type Table map[string]*Asset

func (t Table) Get(id string) (*Asset, bool) {
	a, ok := t[id]
	return a, ok
}

var absoluteURL = regexp.MustCompile(`(?i)^(//|[a-z][a-z0-9+.\-]*:)`)

// Resolver issues media requests and keeps the manager count in step with them.
// It never fetches anything itself.
type Resolver struct {
	Manager     *LoadingManager
	Fetcher     Fetcher
	BasePath    string
	CrossOrigin string
	Reporter    diag.Reporter
	Log         *logger.Logger
}

func IsAbsoluteURL(u string) bool {
	return absoluteURL.MatchString(u)
}

func (r *Resolver) ResolveURL(u string) string {
	if IsAbsoluteURL(u) {
		return u
	}
	return r.BasePath + u
}

func (r *Resolver) ParseImages(ctx context.Context, descs []*Descriptor) Table {
	table := make(Table, len(descs))
	for _, d := range descs {
		if !r.accept("image", d) {
			continue
		}
		url := r.ResolveURL(d.URL)
		a := &Asset{ID: d.UUID, Name: d.Name, URL: url, Kind: KindImage}
		a.Handles = []*Handle{newHandle(url, KindImage, SlotSingle, r.CrossOrigin)}
		r.issue(ctx, a)
		table[d.UUID] = a
	}
	return table
}

// ParseVideos allocates an active and a dormant handle per video, both loading the same url.
func (r *Resolver) ParseVideos(ctx context.Context, descs []*Descriptor) Table {
	table := make(Table, len(descs))
	for _, d := range descs {
		if !r.accept("video", d) {
			continue
		}
		url := r.ResolveURL(d.URL)
		a := &Asset{ID: d.UUID, Name: d.Name, URL: url, Kind: KindVideo}
		a.Handles = []*Handle{
			newHandle(url, KindVideo, SlotActive, r.CrossOrigin),
			newHandle(url, KindVideo, SlotDormant, r.CrossOrigin),
		}
		r.issue(ctx, a)
		table[d.UUID] = a
	}
	return table
}

// accept reports the decode problems of d, descriptors without an url are skipped.
func (r *Resolver) accept(table string, d *Descriptor) bool {
	if d == nil {
		return false
	}
	report := func(err error) {
		if r.Reporter != nil {
			r.Reporter.Report(err)
		}
	}
	if d.malformed != nil {
		report(&diag.InvalidRecordError{Table: table, Reason: d.malformed.Error()})
		return false
	}
	for _, err := range d.fieldErrs {
		report(&diag.InvalidRecordError{Table: table, ID: d.UUID, Reason: err.Error()})
	}
	if d.URL == "" {
		report(&diag.InvalidRecordError{Table: table, ID: d.UUID, Reason: "missing url"})
		return false
	}
	return true
}

// RequestAudio loads the sound attached to a node, the handle is tagged with the node id.
func (r *Resolver) RequestAudio(ctx context.Context, nodeID string, url string) *Asset {
	url = r.ResolveURL(url)
	h := newHandle(url, KindAudio, SlotSingle, r.CrossOrigin)
	h.SetClassName(nodeID)
	a := &Asset{ID: nodeID, URL: url, Kind: KindAudio, Handles: []*Handle{h}}
	r.issue(ctx, a)
	return a
}

func (r *Resolver) issue(ctx context.Context, a *Asset) {
	// issued requests run to completion regardless of the caller
	ctx = context.WithoutCancel(ctx)
	for _, h := range a.Handles {
		r.Manager.ItemStart(h.URL)
		go r.load(ctx, a.ID, h)
	}
}

func (r *Resolver) fetch(ctx context.Context, h *Handle) (p *Payload, err error) {
	if r.Fetcher == nil {
		return nil, errors.Errorf("No media fetcher configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, errors.Errorf("Media fetcher panic: %v", rec)
		}
	}()
	return r.Fetcher.FetchMedia(ctx, h.URL, h.Kind)
}

func (r *Resolver) load(ctx context.Context, id string, h *Handle) {
	log := r.Log.Component("media")

	p, err := r.fetch(ctx, h)
	if err == nil && p == nil {
		err = errors.Errorf("Empty payload")
	}
	if err != nil {
		h.settle(nil, err)
		if r.Reporter != nil {
			r.Reporter.Report(&diag.MediaError{ID: id, URL: h.URL, Err: err})
		}
		r.Manager.ItemError(h.URL, err)
	} else {
		h.settle(p, nil)
		log.Debug("media available", "id", id, "url", h.URL, "kind", h.Kind.String(), "slot", h.Slot.String())
	}
	r.Manager.ItemEnd(h.URL)
}
