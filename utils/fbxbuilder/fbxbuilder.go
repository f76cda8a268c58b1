// Package fbxbuilder assembles binary FBX 7400 files out of node records.
package fbxbuilder

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/utils/logger"
)

const (
	FBX_VERSION = 7400
	FBX_CREATOR = "FBX SDK/FBX Plugins version 2013.3 build=20121223"
	APP_NAME    = "scenedoc"
	APP_VERSION = "1.0"
)

// Fixed id and epoch timestamp: equal scenes give equal bytes.
var (
	FBX_FILE_ID = []byte{
		0x28, 0xb3, 0x2a, 0xeb, 0xb6, 0x24, 0xcc, 0xc2,
		0xbf, 0xc8, 0xb0, 0x2a, 0xa9, 0x2b, 0xfc, 0xf1}
	FBX_TIME = time.Unix(0, 0).UTC()
)

// prop is one Properties70 entry of a definition template.
type prop struct {
	name, typ, purpose, flags string
	v                         []interface{}
}

func (p prop) node() *fbx.Node {
	switch len(p.v) {
	case 0:
		return bfbx73.P(p.name, p.typ, p.purpose, p.flags)
	case 1:
		return bfbx73.P(p.name, p.typ, p.purpose, p.flags, p.v[0])
	default:
		return bfbx73.P(p.name, p.typ, p.purpose, p.flags, p.v[0], p.v[1], p.v[2])
	}
}

func props(list []prop) *fbx.Node {
	n := bfbx73.Properties70()
	for _, p := range list {
		n.AddNodes(p.node())
	}
	return n
}

func rgb(r, g, b float64) []interface{} { return []interface{}{r, g, b} }
func one(v interface{}) []interface{}   { return []interface{}{v} }

// templates lists the object classes the exporter writes with their defaults.
var templates = []struct {
	object, class string
	props         []prop
}{
	{"Model", "FbxNode", []prop{
		{"QuaternionInterpolate", "enum", "", "", one(int32(0))},
		{"Show", "bool", "", "", one(int32(1))},
		{"Lcl Translation", "Lcl Translation", "", "A", rgb(0, 0, 0)},
		{"Lcl Rotation", "Lcl Rotation", "", "A", rgb(0, 0, 0)},
		{"Lcl Scaling", "Lcl Scaling", "", "A", rgb(1, 1, 1)},
		{"Visibility", "Visibility", "", "A", one(float64(1))},
		{"Visibility Inheritance", "Visibility Inheritance", "", "", one(int32(1))},
	}},
	{"Material", "FbxSurfacePhong", []prop{
		{"ShadingModel", "KString", "", "", one("Phong")},
		{"MultiLayer", "bool", "", "", one(int32(0))},
		{"EmissiveColor", "Color", "", "A", rgb(0, 0, 0)},
		{"EmissiveFactor", "Number", "", "A", one(float64(1))},
		{"AmbientColor", "Color", "", "A", rgb(0.2, 0.2, 0.2)},
		{"DiffuseColor", "Color", "", "A", rgb(1, 1, 1)},
		{"DiffuseFactor", "Number", "", "A", one(float64(1))},
		{"TransparencyFactor", "Number", "", "A", one(float64(0))},
	}},
	{"Geometry", "FbxMesh", []prop{
		{"Color", "ColorRGB", "Color", "", rgb(1, 1, 1)},
		{"Primary Visibility", "bool", "", "", one(int32(1))},
		{"Casts Shadows", "bool", "", "", one(int32(1))},
		{"Receive Shadows", "bool", "", "", one(int32(1))},
	}},
}

// Y up, Z front, X right handed: the glTF frame.
var globalSettings = []prop{
	{"UpAxis", "int", "Integer", "", one(int32(1))},
	{"UpAxisSign", "int", "Integer", "", one(int32(1))},
	{"FrontAxis", "int", "Integer", "", one(int32(2))},
	{"FrontAxisSign", "int", "Integer", "", one(int32(1))},
	{"CoordAxis", "int", "Integer", "", one(int32(0))},
	{"CoordAxisSign", "int", "Integer", "", one(int32(1))},
	{"OriginalUpAxis", "int", "Integer", "", one(int32(1))},
	{"OriginalUpAxisSign", "int", "Integer", "", one(int32(1))},
	{"UnitScaleFactor", "double", "Number", "", one(float64(1))},
	{"OriginalUnitScaleFactor", "double", "Number", "", one(float64(1))},
	{"AmbientColor", "ColorRGB", "Color", "", rgb(0, 0, 0)},
}

type FBXBuilder struct {
	f      *fbx.FBX
	lastId int64
	files  map[string][]byte

	objects     *fbx.Node
	connections *fbx.Node
}

func NewFBXBuilder(filename string) *FBXBuilder {
	f := &FBXBuilder{
		files:       make(map[string][]byte),
		lastId:      1000000,
		f:           fbx.NewFBX(FBX_VERSION),
		objects:     bfbx73.Objects(),
		connections: bfbx73.Connections(),
	}
	f.Root().AddNodes(
		headerExtension(filename),
		bfbx73.FileId(FBX_FILE_ID),
		bfbx73.CreationTime(FBX_TIME.Format("2006-01-02 15:04:05:000")),
		bfbx73.Creator(FBX_CREATOR),
		bfbx73.GlobalSettings().AddNodes(bfbx73.Version(1000), props(globalSettings)),
		f.documents(),
		bfbx73.References(),
		definitions(),
		f.objects,
		f.connections,
		bfbx73.Takes().AddNodes(bfbx73.Current("")),
	)
	return f
}

func sceneInfo(filename string) []prop {
	gmt := FBX_TIME.Format("02/01/2006 15:04:05.000")
	list := []prop{
		{"DocumentUrl", "KString", "Url", "", one(filename)},
		{"SrcDocumentUrl", "KString", "Url", "", one(filename)},
	}
	for _, group := range []string{"Original", "LastSaved"} {
		list = append(list,
			prop{group, "Compound", "", "", nil},
			prop{group + "|ApplicationVendor", "KString", "", "", one(APP_NAME)},
			prop{group + "|ApplicationName", "KString", "", "", one(APP_NAME)},
			prop{group + "|ApplicationVersion", "KString", "", "", one(APP_VERSION)},
			prop{group + "|DateTime_GMT", "DateTime", "", "", one(gmt)},
		)
	}
	return append(list, prop{"Original|FileName", "KString", "", "", one(filepath.Base(filename))})
}

func headerExtension(filename string) *fbx.Node {
	return bfbx73.FBXHeaderExtension().AddNodes(
		bfbx73.FBXHeaderVersion(1003),
		bfbx73.FBXVersion(FBX_VERSION),
		bfbx73.EncryptionType(0),
		bfbx73.CreationTimeStamp().AddNodes(
			bfbx73.Version(1000),
			bfbx73.Year(1970), bfbx73.Month(1), bfbx73.Day(1),
			bfbx73.Hour(0), bfbx73.Minute(0), bfbx73.Second(0), bfbx73.Millisecond(0),
		),
		bfbx73.Creator(FBX_CREATOR),
		bfbx73.SceneInfo("GlobalInfo\x00\x01SceneInfo", "UserData").AddNodes(
			bfbx73.Type("UserData"),
			bfbx73.Version(100),
			bfbx73.MetaData().AddNodes(
				bfbx73.Version(100),
				bfbx73.Title(filepath.Base(filename)), bfbx73.Subject(""), bfbx73.Author(APP_NAME),
				bfbx73.Keywords(""), bfbx73.Revision(""), bfbx73.Comment(""),
			),
			props(sceneInfo(filename)),
		),
	)
}

func (f *FBXBuilder) documents() *fbx.Node {
	return bfbx73.Documents().AddNodes(
		bfbx73.Count(1),
		bfbx73.Document(f.GenerateId(), "Scene", "Scene").AddNodes(
			props([]prop{
				{"SourceObject", "object", "", "", nil},
				{"ActiveAnimStackName", "KString", "", "", one("")},
			}),
			bfbx73.RootNode(0),
		),
	)
}

func definitions() *fbx.Node {
	defs := bfbx73.Definitions().AddNodes(
		bfbx73.Version(100),
		bfbx73.Count(1),
		bfbx73.ObjectType("GlobalSettings").AddNodes(bfbx73.Count(1)),
	)
	for _, t := range templates {
		defs.AddNodes(bfbx73.ObjectType(t.object).AddNodes(
			bfbx73.Count(0),
			bfbx73.PropertyTemplate(t.class).AddNodes(props(t.props)),
		))
	}
	return defs
}

// countDefinitions fills the per class object counts the readers rely on.
func (f *FBXBuilder) countDefinitions() {
	counts := make(map[string]int32)
	for _, object := range f.objects.Nodes {
		counts[object.Name]++
	}

	definitions := f.Root().GetNode("Definitions")
	total := int32(1) // GlobalSettings

	for name, count := range counts {
		total += count

		var objectType *fbx.Node
		for _, ot := range definitions.GetNodes("ObjectType") {
			if ot.Properties[0].(string) == name {
				objectType = ot
			}
		}
		if objectType == nil {
			objectType = bfbx73.ObjectType(name)
			definitions.AddNode(objectType)
		}

		objectType.GetOrAddNode(bfbx73.Count(0)).Properties[0] = count
		logger.L().Debug("fbx definitions", zap.String("stage", "fbx"), zap.String("type", name), zap.Int32("count", count))
	}

	definitions.GetOrAddNode(bfbx73.Count(0)).Properties[0] = total
}

func (f *FBXBuilder) Root() *fbx.Node {
	return &f.f.Root
}

func (f *FBXBuilder) GenerateId() int64 {
	f.lastId++
	return f.lastId
}

// Write encodes the file. The encoder seeks back to patch record offsets, so
// output goes through a temporary file.
func (f *FBXBuilder) Write(w io.Writer) error {
	f.countDefinitions()

	tmp, err := os.CreateTemp("", "scenedoc.*.fbx")
	if err != nil {
		return errors.Wrapf(err, "temp file")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := fbx.Write(tmp, f.f); err != nil {
		return errors.Wrapf(err, "encode")
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek")
	}
	_, err = io.Copy(w, tmp)
	return err
}

// AddExportFile stores a side file (texture) written next to the fbx by WriteZip.
func (f *FBXBuilder) AddExportFile(name string, data []byte) {
	f.files[name] = data
}

func (f *FBXBuilder) WriteZip(w io.Writer, name string) error {
	zw := zip.NewWriter(w)

	fw, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "zip entry %q", name)
	}
	if err := f.Write(fw); err != nil {
		return errors.Wrapf(err, "fbx %q", name)
	}

	for fileName, data := range f.files {
		fw, err := zw.Create(fileName)
		if err != nil {
			return errors.Wrapf(err, "zip entry %q", fileName)
		}
		if _, err := fw.Write(data); err != nil {
			return errors.Wrapf(err, "zip write %q", fileName)
		}
	}
	return zw.Close()
}

func (f *FBXBuilder) AddObjects(nodes ...*fbx.Node)     { f.objects.AddNodes(nodes...) }
func (f *FBXBuilder) AddConnections(nodes ...*fbx.Node) { f.connections.AddNodes(nodes...) }
