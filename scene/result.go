package scene

import (
	"context"
	"sort"

	"github.com/mogaika/scene_browser/scene/animation"
	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/geometry"
	"github.com/mogaika/scene_browser/scene/material"
	"github.com/mogaika/scene_browser/scene/media"
	"github.com/mogaika/scene_browser/scene/object"
	"github.com/mogaika/scene_browser/scene/texture"
)

// Result is a parsed scene. Root and the tables are complete when Parse
// returns, media handles keep settling until Manager.Done is closed.
type Result struct {
	Root       object.Node
	Geometries geometry.Table
	Materials  material.Table
	Textures   texture.Table
	Images     media.Table
	Videos     media.Table
	// node audio by node id
	Audio      media.Table
	Animations []*animation.Clip
	Deferred   []object.DeferredRequest
	Manager    *media.LoadingManager

	diags *diag.Collector
}

func (r *Result) Diagnostics() []error {
	return r.diags.Errors()
}

func (r *Result) DiagnosticStrings() []string {
	return r.diags.Strings()
}

// Wait blocks until every media request settled.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.Manager.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Media lists every asset ordered by kind and id.
func (r *Result) Media() []*media.Asset {
	var out []*media.Asset
	for _, t := range []media.Table{r.Images, r.Videos, r.Audio} {
		for _, a := range t {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Node finds a node of the tree by id.
func (r *Result) Node(id string) object.Node {
	if r.Root == nil {
		return nil
	}
	return r.Root.Object().FindByUUID(id)
}
