package fbx

import (
	"strconv"

	mfbx "github.com/mogaika/fbx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
)

func child(n *mfbx.Node, name string) *mfbx.Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Nodes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func children(n *mfbx.Node, name string) []*mfbx.Node {
	if n == nil {
		return nil
	}
	var out []*mfbx.Node
	for _, c := range n.Nodes {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func prop(n *mfbx.Node, i int) interface{} {
	if n == nil || i >= len(n.Properties) {
		return nil
	}
	return n.Properties[i]
}

func propString(n *mfbx.Node, i int) string {
	s, _ := prop(n, i).(string)
	return s
}

func propInt(n *mfbx.Node, i int) int {
	return int(number(prop(n, i)))
}

func childString(n *mfbx.Node, name string) string { return propString(child(n, name), 0) }
func childInt(n *mfbx.Node, name string) int       { return propInt(child(n, name), 0) }

// objectHeader reads the id, name and class every object record starts with.
func objectHeader(n *mfbx.Node) (id int64, name, element string, err error) {
	id, ok := prop(n, 0).(int64)
	if !ok {
		return 0, "", "", errors.Errorf("%s without id", n.Name)
	}
	name, _ = utils.SplitFBXName(propString(n, 1))
	return id, name, propString(n, 2), nil
}

func scanProperties70(n *mfbx.Node) Properties70 {
	var out Properties70
	for _, p := range children(child(n, "Properties70"), "P") {
		if len(p.Properties) < 4 {
			continue
		}
		out.P = append(out.P, &Property70{
			Name:    propString(p, 0),
			Type:    propString(p, 1),
			Purpose: propString(p, 2),
			Flags:   propString(p, 3),
			Value:   p.Properties[4:],
		})
	}
	return out
}

func scanLayerElement(n *mfbx.Node) *LayerElement {
	return &LayerElement{
		Index:                    propInt(n, 0),
		Name:                     childString(n, "Name"),
		MappingInformationType:   childString(n, "MappingInformationType"),
		ReferenceInformationType: childString(n, "ReferenceInformationType"),
		Normals:                  float64s(prop(child(n, "Normals"), 0)),
		NormalsIndex:             int32s(prop(child(n, "NormalsIndex"), 0)),
		UV:                       float64s(prop(child(n, "UV"), 0)),
		UVIndex:                  int32s(prop(child(n, "UVIndex"), 0)),
		Materials:                int32s(prop(child(n, "Materials"), 0)),
	}
}

func scanGeometry(n *mfbx.Node) (*Geometry, error) {
	id, name, element, err := objectHeader(n)
	if err != nil {
		return nil, err
	}
	g := &Geometry{
		Id:                 id,
		Name:               name,
		Element:            element,
		Properties70:       scanProperties70(n),
		Vertices:           float64s(prop(child(n, "Vertices"), 0)),
		PolygonVertexIndex: int32s(prop(child(n, "PolygonVertexIndex"), 0)),
		GeometryVersion:    childInt(n, "GeometryVersion"),
	}
	if len(g.Vertices)%3 != 0 {
		return nil, errors.Errorf("geometry %q has %d vertex components", name, len(g.Vertices))
	}
	for _, le := range children(n, "LayerElementNormal") {
		g.LayerElementNormal = append(g.LayerElementNormal, scanLayerElement(le))
	}
	for _, le := range children(n, "LayerElementUV") {
		g.LayerElementUV = append(g.LayerElementUV, scanLayerElement(le))
	}
	if le := child(n, "LayerElementMaterial"); le != nil {
		g.LayerElementMaterial = scanLayerElement(le)
	}
	return g, nil
}

// Scan builds the typed view of root. Records it does not know are skipped.
func Scan(root *mfbx.Node) (*Scene, error) {
	s := &Scene{}
	if h := child(root, "FBXHeaderExtension"); h != nil {
		s.FBXHeaderExtension = HeaderExtension{
			FBXHeaderVersion: childInt(h, "FBXHeaderVersion"),
			FBXVersion:       childInt(h, "FBXVersion"),
			Creator:          childString(h, "Creator"),
		}
		s.Version = uint32(s.FBXHeaderExtension.FBXVersion)
	}

	objects := child(root, "Objects")
	if objects == nil {
		return nil, errors.Errorf("no Objects section")
	}
	log := logger.L()
	for _, o := range objects.Nodes {
		switch o.Name {
		case "Model":
			id, name, element, err := objectHeader(o)
			if err != nil {
				return nil, err
			}
			log.Debug("Object: "+name, zap.String("stage", "fbx"), zap.String("class", element))
			s.Objects.Model = append(s.Objects.Model, &Model{
				Id:           id,
				Name:         name,
				Element:      element,
				Version:      childInt(o, "Version"),
				Properties70: scanProperties70(o),
				Shading:      number(prop(child(o, "Shading"), 0)) != 0,
				Culling:      childString(o, "Culling"),
			})
		case "Geometry":
			g, err := scanGeometry(o)
			if err != nil {
				return nil, err
			}
			if g.Element == "Mesh" {
				log.Debug("-> mesh with "+strconv.Itoa(g.FaceCount())+" faces", zap.String("stage", "fbx"), zap.String("geometry", g.Name))
			}
			s.Objects.Geometry = append(s.Objects.Geometry, g)
		case "Material":
			id, name, element, err := objectHeader(o)
			if err != nil {
				return nil, err
			}
			s.Objects.Material = append(s.Objects.Material, &Material{
				Id:           id,
				Name:         name,
				Element:      element,
				Version:      childInt(o, "Version"),
				Properties70: scanProperties70(o),
				ShadingModel: childString(o, "ShadingModel"),
				MultiLayer:   childInt(o, "MultiLayer"),
			})
		}
	}

	if conns := child(root, "Connections"); conns != nil {
		for _, c := range children(conns, "C") {
			childID, ok1 := prop(c, 1).(int64)
			parentID, ok2 := prop(c, 2).(int64)
			if !ok1 || !ok2 {
				continue
			}
			s.Connections.C = append(s.Connections.C, Connection{
				Type:     propString(c, 0),
				Child:    childID,
				Parent:   parentID,
				Property: propString(c, 3),
			})
		}
	}
	return s, nil
}
