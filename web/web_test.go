package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_browser/config"
	"github.com/mogaika/scene_browser/fetch"
	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene"
)

type texts map[string]string

func (t texts) FetchText(ctx context.Context, url string) (string, error) {
	s, ok := t[url]
	if !ok {
		return "", errors.Errorf("not found: %s", url)
	}
	return s, nil
}

const redBox = `{
	"metadata": {"version": 4.3, "type": "Object"},
	"geometries": [{"uuid": "g1", "type": "BoxGeometry", "width": 1, "height": 1, "depth": 1}],
	"materials": [{"uuid": "m1", "type": "MeshBasicMaterial", "color": 16711680}],
	"object": {"uuid": "root", "type": "Group", "children": [
		{"uuid": "box", "type": "Mesh", "geometry": "g1", "material": "missing"}
	]}
}`

func newServer(t *testing.T, docs texts, source string) (*Browser, *httptest.Server) {
	t.Helper()
	loader := scene.NewLoader(scene.WithFetcher(docs))
	b := NewBrowser(loader, source, logger.Nop())
	srv := httptest.NewServer(NewRouter(b, ""))
	t.Cleanup(srv.Close)
	return b, srv
}

func getJson(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestNoSceneLoaded(t *testing.T) {
	_, srv := newServer(t, texts{}, "")
	assert.Equal(t, http.StatusNotFound, getJson(t, srv.URL+"/json/scene", nil))
	assert.Equal(t, http.StatusNotFound, getJson(t, srv.URL+"/json/diagnostics", nil))
}

func TestSceneEndpoints(t *testing.T) {
	b, srv := newServer(t, texts{"scenes/box.json": redBox}, "scenes/box.json")
	require.NoError(t, b.Reload(context.Background()))

	var info struct {
		Session    string `json:"session"`
		Generation int    `json:"generation"`
		Root       struct {
			UUID     string `json:"uuid"`
			Children []struct {
				UUID string `json:"uuid"`
			} `json:"children"`
		} `json:"root"`
		Geometries map[string]struct {
			Kind     string `json:"kind"`
			Vertices int    `json:"vertices"`
		} `json:"geometries"`
	}
	require.Equal(t, http.StatusOK, getJson(t, srv.URL+"/json/scene", &info))
	assert.Equal(t, b.Session, info.Session)
	assert.Equal(t, 1, info.Generation)
	assert.Equal(t, "root", info.Root.UUID)
	require.Len(t, info.Root.Children, 1)
	assert.Equal(t, "box", info.Root.Children[0].UUID)
	assert.Equal(t, 24, info.Geometries["g1"].Vertices)

	var node struct {
		UUID string `json:"uuid"`
		Type string `json:"type"`
	}
	require.Equal(t, http.StatusOK, getJson(t, srv.URL+"/json/node/box", &node))
	assert.Equal(t, "Mesh", node.Type)
	assert.Equal(t, http.StatusNotFound, getJson(t, srv.URL+"/json/node/nope", nil))

	var diags []string
	require.Equal(t, http.StatusOK, getJson(t, srv.URL+"/json/diagnostics", &diags))
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "missing")

	var media []interface{}
	require.Equal(t, http.StatusOK, getJson(t, srv.URL+"/json/media", &media))
	assert.Empty(t, media)
}

func TestExportGLTF(t *testing.T) {
	b, srv := newServer(t, texts{"box.json": redBox}, "box.json")
	require.NoError(t, b.Reload(context.Background()))

	resp, err := http.Get(srv.URL + "/export/gltf")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "scene.glb")

	magic := make([]byte, 4)
	_, err = resp.Body.Read(magic)
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(magic))
}

func TestUploadScene(t *testing.T) {
	b, srv := newServer(t, texts{}, "")

	resp, err := http.Post(srv.URL+"/upload/scene", "application/json", strings.NewReader(redBox))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res, gen := b.Current()
	require.NotNil(t, res)
	assert.Equal(t, 1, gen)
	assert.NotNil(t, res.Node("box"))

	resp, err = http.Post(srv.URL+"/upload/scene", "application/json", strings.NewReader(`{"metadata": {}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	_, gen = b.Current()
	assert.Equal(t, 1, gen)
}

func TestReloadWithoutSource(t *testing.T) {
	b, _ := newServer(t, texts{}, "")
	assert.Error(t, b.Reload(context.Background()))
	assert.Error(t, b.Watch(context.Background()))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(source, []byte(redBox), 0644))

	loader := scene.NewLoader(scene.WithFetcher(fetch.New(config.Default().Media, logger.Nop())))
	b := NewBrowser(loader, filepath.ToSlash(source), logger.Nop())
	require.NoError(t, b.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Watch(ctx))

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(source, []byte(strings.Replace(redBox, `"box"`, `"crate"`, 1)), 0644))

	assert.Eventually(t, func() bool {
		res, _ := b.Current()
		return res.Node("crate") != nil
	}, 5*time.Second, 20*time.Millisecond)
}
