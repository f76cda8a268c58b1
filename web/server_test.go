package web

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scenedoc/document"
	"github.com/mogaika/scenedoc/fbx"
	"github.com/mogaika/scenedoc/glb"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/utils"
)

func sampleGLB(t *testing.T) []byte {
	root := scene.NewNode("Scene", scene.KindSpatial)
	mi := scene.NewNode("tri", scene.KindMeshInstance)
	mi.Mesh = &scene.ImporterMesh{Name: "tri"}
	mi.Mesh.AddSurface(&scene.Surface{
		Primitive: scene.PrimitiveTriangles,
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []int{0, 2, 1},
		Material:  scene.DefaultMaterial(),
	})
	root.AddChild(mi)

	d := document.New()
	st, err := d.AppendFromScene(root, document.ImportFlags{})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, d.WriteGLB(&buf, st))
	return buf.Bytes()
}

func upload(t *testing.T, h http.Handler, url, name string, data []byte) *httptest.ResponseRecorder {
	return uploadWith(t, h, url, name, data, nil)
}

func uploadWith(t *testing.T, h http.Handler, url, name string, data []byte, resources map[string][]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for n, d := range resources {
		fw, err := mw.CreateFormFile("resources", n)
		require.NoError(t, err)
		_, err = fw.Write(d)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestConvert(t *testing.T) {
	h := NewServer(document.New(), nil).Handler()
	input := sampleGLB(t)

	rec := upload(t, h, "/api/convert?to=glb", "model.glb", input)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, glb.IsBinary(rec.Body.Bytes()))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "model.glb")

	rec = upload(t, h, "/api/convert?to=gltf&roundtrip=false", "model.glb", input)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc, "nodes")

	rec = upload(t, h, "/api/convert?to=fbx", "model.glb", input)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fbx.IsBinary(rec.Body.Bytes()))
}

func TestConvertErrors(t *testing.T) {
	h := NewServer(document.New(), nil).Handler()

	rec := upload(t, h, "/api/convert?to=obj", "model.glb", sampleGLB(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, h, "/api/convert", "broken.gltf", []byte("{"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var je struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &je))
	assert.Equal(t, "malformed input", je.Kind)

	req := httptest.NewRequest(http.MethodGet, "/api/convert", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

const externalGLTF = `{
	"asset": {"version": "2.0"},
	"scene": 0,
	"scenes": [{"nodes": [0]}],
	"nodes": [{"name": "tri", "mesh": 0}],
	"meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3",
		"min": [0, 0, 0], "max": [1, 1, 0]}],
	"bufferViews": [{"buffer": 0, "byteLength": 36}],
	"buffers": [{"uri": "bin/tri.bin", "byteLength": 36}]
}`

func TestConvertWithResources(t *testing.T) {
	h := NewServer(document.New(), nil).Handler()

	bin := make([]byte, 0, 36)
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		bin = binary.LittleEndian.AppendUint32(bin, math.Float32bits(v))
	}

	rec := upload(t, h, "/api/inspect", "tri.gltf", []byte(externalGLTF))
	assert.Equal(t, http.StatusBadGateway, rec.Code, "missing buffer is unavailable")

	rec = uploadWith(t, h, "/api/inspect", "tri.gltf", []byte(externalGLTF), map[string][]byte{"tri.bin": bin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Meshes []string `json:"meshes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{"scene_tri"}, res.Meshes)
}

func TestInspectAndStatus(t *testing.T) {
	utils.StatusReset()
	h := NewServer(document.New(), nil).Handler()

	rec := upload(t, h, "/api/inspect", "model.glb", sampleGLB(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Scene  string `json:"scene"`
		Nodes  []struct{ Name string }
		Meshes []string `json:"meshes"`
		Dump   string   `json:"dump"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "scene", res.Scene)
	assert.Len(t, res.Nodes, 2)
	assert.Equal(t, []string{"scene_tri"}, res.Meshes)

	rec = upload(t, h, "/api/inspect?download=1", "model.glb", sampleGLB(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "model.json")

	upload(t, h, "/api/convert", "broken.gltf", []byte("{"))
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []struct {
		Text  string `json:"text"`
		Error bool   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.NotEmpty(t, messages)
	assert.True(t, messages[len(messages)-1].Error)
	assert.Contains(t, messages[len(messages)-1].Text, "broken.gltf")
}
