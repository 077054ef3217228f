package web

import (
	"bytes"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/scene"
	"github.com/mogaika/scene_browser/scene/animation"
	"github.com/mogaika/scene_browser/scene/material"
	"github.com/mogaika/scene_browser/scene/object"
	"github.com/mogaika/scene_browser/scene/texture"
	"github.com/mogaika/scene_browser/status"
	"github.com/mogaika/scene_browser/utils"
	"github.com/mogaika/scene_browser/utils/gltfutils"
	"github.com/mogaika/scene_browser/webutils"
)

const maxUploadSize = 64 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type geometryInfo struct {
	Type     string      `json:"type"`
	Name     string      `json:"name,omitempty"`
	Kind     string      `json:"kind"`
	Params   interface{} `json:"params,omitempty"`
	Vertices int         `json:"vertices"`
	Bones    int         `json:"bones,omitempty"`
}

type sceneInfo struct {
	Session    string                     `json:"session"`
	Source     string                     `json:"source,omitempty"`
	Generation int                        `json:"generation"`
	LoadedAt   time.Time                  `json:"loadedAt"`
	Requested  int                        `json:"requested"`
	Pending    int                        `json:"pending"`
	Root       *object.Record             `json:"root"`
	Geometries map[string]*geometryInfo   `json:"geometries"`
	Materials  material.Table             `json:"materials"`
	Textures   map[string]*texture.Record `json:"textures"`
	Animations []*animation.Clip          `json:"animations,omitempty"`
	Deferred   []string                   `json:"deferred,omitempty"`
}

type handleInfo struct {
	Slot   string `json:"slot"`
	State  string `json:"state"`
	Class  string `json:"class,omitempty"`
	MIME   string `json:"mime,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Size   int    `json:"size,omitempty"`
	Error  string `json:"error,omitempty"`
}

type mediaInfo struct {
	ID      string        `json:"id"`
	Name    string        `json:"name,omitempty"`
	Kind    string        `json:"kind"`
	URL     string        `json:"url"`
	Handles []*handleInfo `json:"handles"`
}

func (b *Browser) result(w http.ResponseWriter) *scene.Result {
	res, _ := b.Current()
	if res == nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, errors.Errorf("No scene loaded"))
	}
	return res
}

func (b *Browser) HandlerJsonScene(w http.ResponseWriter, r *http.Request) {
	res, gen := b.Current()
	if res == nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, errors.Errorf("No scene loaded"))
		return
	}

	info := &sceneInfo{
		Session:    b.Session,
		Source:     b.source,
		Generation: gen,
		LoadedAt:   b.LoadedAt(),
		Requested:  res.Manager.Requested(),
		Pending:    res.Manager.Pending(),
		Root:       object.ToRecord(res.Root),
		Geometries: make(map[string]*geometryInfo, len(res.Geometries)),
		Materials:  res.Materials,
		Textures:   make(map[string]*texture.Record, len(res.Textures)),
		Animations: res.Animations,
	}
	for id, g := range res.Geometries {
		gi := &geometryInfo{Type: g.Type, Name: g.Name, Kind: g.Kind.String(), Params: g.Params, Bones: len(g.Bones)}
		if g.Data != nil {
			gi.Vertices = g.Data.VertexCount()
		}
		info.Geometries[id] = gi
	}
	for id, t := range res.Textures {
		info.Textures[id] = t.ToRecord()
	}
	for _, d := range res.Deferred {
		info.Deferred = append(info.Deferred, d.Record.UUID)
	}

	w.Header().Set("X-Scene-Session", b.Session)
	webutils.WriteJson(w, info)
}

func (b *Browser) HandlerJsonNode(w http.ResponseWriter, r *http.Request) {
	res := b.result(w)
	if res == nil {
		return
	}
	id := mux.Vars(r)["id"]
	n := res.Node(id)
	if n == nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, errors.Errorf("Node %q not found", id))
		return
	}
	webutils.WriteJson(w, object.ToRecord(n))
}

func (b *Browser) HandlerJsonMedia(w http.ResponseWriter, r *http.Request) {
	res := b.result(w)
	if res == nil {
		return
	}

	list := make([]*mediaInfo, 0)
	for _, a := range res.Media() {
		mi := &mediaInfo{ID: a.ID, Name: a.Name, Kind: a.Kind.String(), URL: a.URL}
		for _, h := range a.Handles {
			hi := &handleInfo{Slot: h.Slot.String(), State: h.State().String(), Class: h.ClassName()}
			if p := h.Payload(); p != nil {
				hi.MIME, hi.Width, hi.Height, hi.Size = p.MIME, p.Width, p.Height, len(p.Data)
			}
			if err := h.Err(); err != nil {
				hi.Error = err.Error()
			}
			mi.Handles = append(mi.Handles, hi)
		}
		list = append(list, mi)
	}
	webutils.WriteJson(w, list)
}

func (b *Browser) HandlerJsonDiagnostics(w http.ResponseWriter, r *http.Request) {
	res := b.result(w)
	if res == nil {
		return
	}
	diags := res.DiagnosticStrings()
	sort.Strings(diags)
	webutils.WriteJson(w, diags)
}

func (b *Browser) HandlerExportGLTF(w http.ResponseWriter, r *http.Request) {
	res := b.result(w)
	if res == nil {
		return
	}
	doc, err := gltfutils.ExportScene(res.Root, b.log)
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to export scene"))
		return
	}

	var buf bytes.Buffer
	if err := gltfutils.ExportBinary(&buf, doc); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to encode gltf"))
		return
	}
	webutils.WriteFile(w, &buf, "scene.glb")
}

func (b *Browser) HandlerDumpScene(w http.ResponseWriter, r *http.Request) {
	res := b.result(w)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	webutils.WriteResult(w, []byte(utils.SDump(object.ToRecord(res.Root))))
}

func (b *Browser) HandlerUploadScene(w http.ResponseWriter, r *http.Request) {
	data, err := webutils.ReadFormFile(r, "data", maxUploadSize)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if err := b.Replace(r.Context(), data); err != nil {
		code := http.StatusInternalServerError
		var derr *scene.DocumentError
		if errors.As(err, &derr) {
			code = http.StatusUnprocessableEntity
		}
		webutils.WriteErrorStatus(w, code, err)
		return
	}
	b.HandlerJsonScene(w, r)
}

func (b *Browser) HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	status.NewClient(conn)
}
