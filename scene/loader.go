package scene

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/animation"
	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/geometry"
	"github.com/mogaika/scene_browser/scene/material"
	"github.com/mogaika/scene_browser/scene/media"
	"github.com/mogaika/scene_browser/scene/object"
	"github.com/mogaika/scene_browser/scene/texture"
	"github.com/mogaika/scene_browser/utils"
)

// TextFetcher reads whole documents.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// DeferredHandler receives the children that were kept out of the tree.
// It runs after the tree is finalized and before completion can fire.
type DeferredHandler func(ctx context.Context, req object.DeferredRequest)

type Loader struct {
	texts       TextFetcher
	media       media.Fetcher
	log         *logger.Logger
	texturePath string
	crossOrigin string
	deferred    DeferredHandler
	subscribers []media.Listener
}

type Option func(*Loader)

func WithFetcher(f TextFetcher) Option {
	return func(l *Loader) { l.texts = f }
}

func WithMediaFetcher(f media.Fetcher) Option {
	return func(l *Loader) { l.media = f }
}

func WithLogger(log *logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithTexturePath sets the prefix of relative media urls. Load derives it
// from the document url when unset.
func WithTexturePath(p string) Option {
	return func(l *Loader) { l.texturePath = p }
}

func WithCrossOrigin(mode string) Option {
	return func(l *Loader) { l.crossOrigin = mode }
}

func WithDeferredHandler(h DeferredHandler) Option {
	return func(l *Loader) { l.deferred = h }
}

// WithSubscriber receives the media events of every following parse.
func WithSubscriber(s media.Listener) Option {
	return func(l *Loader) { l.subscribers = append(l.subscribers, s) }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{log: logger.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches and parses the document at url.
func (l *Loader) Load(ctx context.Context, url string, onLoad func(object.Node)) (*Result, error) {
	if l.texts == nil {
		return nil, &DocumentError{URL: url, Reason: "no text fetcher configured"}
	}
	text, err := l.texts.FetchText(ctx, url)
	if err != nil {
		return nil, &DocumentError{URL: url, Reason: "fetch failed", Err: err}
	}

	basePath := l.texturePath
	if basePath == "" {
		basePath = url[:strings.LastIndex(url, "/")+1]
	}
	res, err := l.parseJSON(ctx, []byte(text), basePath, onLoad)
	if derr, ok := err.(*DocumentError); ok {
		derr.URL = url
	}
	return res, err
}

// ParseJSON decodes a document and parses it. Documents without a type and
// plain geometry files are rejected.
func (l *Loader) ParseJSON(ctx context.Context, data []byte, onLoad func(object.Node)) (*Result, error) {
	return l.parseJSON(ctx, data, l.texturePath, onLoad)
}

func (l *Loader) parseJSON(ctx context.Context, data []byte, basePath string, onLoad func(object.Node)) (*Result, error) {
	text, err := utils.DecodeText(data)
	if err != nil {
		return nil, &DocumentError{Reason: "bad text encoding", Err: err}
	}

	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &DocumentError{Reason: "invalid json", Err: err}
	}
	if doc.Metadata == nil || doc.Metadata.Type == "" {
		return nil, &DocumentError{Reason: "missing metadata type"}
	}
	if strings.EqualFold(doc.Metadata.Type, "geometry") {
		return nil, &DocumentError{Reason: "geometry document, use a geometry loader"}
	}
	return l.parse(ctx, &doc, basePath, onLoad)
}

// Parse builds the graph of an already decoded document. The root is
// returned before media settles. onLoad is called exactly once: inside
// Parse when no media was requested, otherwise from the goroutine that
// settled the last request.
func (l *Loader) Parse(ctx context.Context, doc *Document, onLoad func(object.Node)) (*Result, error) {
	return l.parse(ctx, doc, l.texturePath, onLoad)
}

func (l *Loader) parse(ctx context.Context, doc *Document, basePath string, onLoad func(object.Node)) (*Result, error) {
	if doc == nil || doc.Object == nil {
		return nil, &DocumentError{Reason: "missing object"}
	}
	if err := doc.Object.Malformed(); err != nil {
		return nil, &DocumentError{Reason: "invalid object", Err: err}
	}
	log := l.log.Component("loader")

	res := &Result{diags: diag.NewCollector(l.log.Component("diag"))}

	// root is assigned before Seal, completion can not fire earlier
	res.Manager = media.NewLoadingManager(func() {
		if onLoad != nil {
			onLoad(res.Root)
		}
	})
	for _, s := range l.subscribers {
		res.Manager.Subscribe(s)
	}

	resolver := &media.Resolver{
		Manager:     res.Manager,
		Fetcher:     l.media,
		BasePath:    basePath,
		CrossOrigin: l.crossOrigin,
		Reporter:    res.diags,
		Log:         l.log,
	}

	res.Geometries = geometry.BuildTable(doc.Geometries, res.diags, l.log)
	res.Images = resolver.ParseImages(ctx, doc.Images)
	res.Videos = resolver.ParseVideos(ctx, doc.Videos)
	res.Textures = texture.BuildTable(doc.Textures, res.Images, res.Videos, res.diags, l.log)
	res.Materials = material.BuildTable(doc.Materials, &material.Decoder{
		Textures: res.Textures,
		Reporter: res.diags,
		Log:      l.log,
	})

	b := &object.Builder{
		Geometries: res.Geometries,
		Materials:  res.Materials,
		Media:      resolver,
		Reporter:   res.diags,
		Log:        l.log,
	}
	res.Root = b.Build(ctx, doc.Object)
	res.Audio = b.Audio
	res.Deferred = b.Deferred

	if len(doc.Animations) != 0 {
		clips, err := animation.Parse(doc.Animations)
		if err != nil {
			res.diags.Report(errors.Wrapf(err, "Failed to parse animations"))
		} else {
			res.Animations = clips
			res.Root.Object().Animations = clips
		}
	}

	if l.deferred != nil {
		for _, req := range res.Deferred {
			l.deferred(ctx, req)
		}
	}

	log.Debug("graph built",
		"nodes", res.Root.Object().Count(),
		"geometries", len(res.Geometries),
		"materials", len(res.Materials),
		"textures", len(res.Textures),
		"media", res.Manager.Requested(),
		"deferred", len(res.Deferred))

	res.Manager.Seal()
	if res.Manager.Requested() == 0 && onLoad != nil {
		onLoad(res.Root)
	}
	return res, nil
}
