package fetch

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mogaika/scene_browser/config"
	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/media"
	"github.com/mogaika/scene_browser/utils"
	"github.com/mogaika/scene_browser/vfs"
)

// Fetcher reads documents and media from http(s), data: urls and local files.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	// local paths are resolved below Root, nil allows any path
	Root vfs.Directory

	sem *semaphore.Weighted
	log *logger.Logger
}

func New(cfg config.MediaConfig, log *logger.Logger) *Fetcher {
	f := &Fetcher{
		Client:    &http.Client{Timeout: cfg.Timeout},
		UserAgent: cfg.UserAgent,
		sem:       semaphore.NewWeighted(max(cfg.MaxConcurrent, 1)),
		log:       log.Component("fetch"),
	}
	if cfg.Root != "" {
		f.Root = vfs.NewLocalDir(cfg.Root)
	}
	return f
}

type response struct {
	data        []byte
	contentType string
}

func (f *Fetcher) read(ctx context.Context, rawURL string) (*response, error) {
	if !media.IsAbsoluteURL(rawURL) {
		return f.readLocal(rawURL)
	}
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid url %q", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, u.String())
	case "data":
		return decodeDataURL(rawURL)
	case "file":
		return f.readLocal(u.Path)
	default:
		return nil, errors.Errorf("Unsupported url scheme %q", u.Scheme)
	}
}

func (f *Fetcher) readLocal(p string) (*response, error) {
	var data []byte
	var err error
	if f.Root != nil {
		data, err = vfs.ReadFile(f.Root, p)
	} else {
		var abs string
		if abs, err = filepath.Abs(filepath.FromSlash(p)); err == nil {
			data, err = vfs.ReadFile(vfs.NewLocalDir(filepath.Dir(abs)), filepath.Base(abs))
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read %q", p)
	}
	return &response{data: data, contentType: mime.TypeByExtension(filepath.Ext(p))}, nil
}

func (f *Fetcher) get(ctx context.Context, u string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create request")
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("GET %s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s: reading body", u)
	}
	return &response{data: data, contentType: resp.Header.Get("Content-Type")}, nil
}

// FetchText reads a document, decoding it with the configured text encoding.
func (f *Fetcher) FetchText(ctx context.Context, u string) (string, error) {
	resp, err := f.read(ctx, u)
	if err != nil {
		return "", err
	}
	return utils.DecodeText(resp.data)
}

// FetchMedia reads a media file and checks that its content matches kind.
// Images are decoded far enough to report their size.
func (f *Fetcher) FetchMedia(ctx context.Context, u string, kind media.Kind) (*media.Payload, error) {
	if f.sem != nil {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer f.sem.Release(1)
	}

	resp, err := f.read(ctx, u)
	if err != nil {
		return nil, err
	}

	p := &media.Payload{Data: resp.data, MIME: sniff(resp)}
	switch kind {
	case media.KindImage:
		cfg, format, err := image.DecodeConfig(bytes.NewReader(resp.data))
		if err != nil {
			return nil, errors.Wrapf(err, "%s is not a supported image", u)
		}
		p.Width, p.Height = cfg.Width, cfg.Height
		if p.MIME == "" {
			p.MIME = "image/" + format
		}
	case media.KindVideo:
		if filetype.IsImage(resp.data) || filetype.IsAudio(resp.data) {
			return nil, errors.Errorf("%s is %s, not a video", u, p.MIME)
		}
	case media.KindAudio:
		if filetype.IsImage(resp.data) || filetype.IsVideo(resp.data) {
			return nil, errors.Errorf("%s is %s, not audio", u, p.MIME)
		}
	default:
		return nil, errors.Errorf("Unknown media kind %v", kind)
	}
	if p.MIME == "" {
		p.MIME = "application/octet-stream"
	}

	f.log.Debug("media fetched", "url", u, "mime", p.MIME, "size", len(p.Data))
	return p, nil
}

// sniff prefers the content over the declared type.
func sniff(resp *response) string {
	if t, err := filetype.Match(resp.data); err == nil && t != filetype.Unknown {
		return t.MIME.Value
	}
	if resp.contentType != "" {
		if mt, _, err := mime.ParseMediaType(resp.contentType); err == nil {
			return mt
		}
	}
	return ""
}
