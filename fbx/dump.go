package fbx

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// dumper prints a scanned scene in the ASCII FBX layout. Only the records
// Scan keeps are printed, so the dump shows what the importer sees.
type dumper struct {
	w     *bufio.Writer
	depth int
}

func (d *dumper) line(format string, args ...interface{}) {
	for i := 0; i < d.depth; i++ {
		d.w.WriteByte('\t')
	}
	fmt.Fprintf(d.w, format, args...)
	d.w.WriteByte('\n')
}

func (d *dumper) open(format string, args ...interface{}) {
	d.line(format+" {", args...)
	d.depth++
}

func (d *dumper) close() {
	d.depth--
	d.line("}")
	if d.depth == 0 {
		d.w.WriteByte('\n')
	}
}

func value(v interface{}) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case bool:
		if v {
			return "T"
		}
		return "F"
	case float32, float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func values(vs ...interface{}) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = value(v)
	}
	return strings.Join(parts, ", ")
}

func (d *dumper) array(name string, a []interface{}) {
	if len(a) == 0 {
		return
	}
	d.open("%s: *%d", name, len(a))
	d.line("a: %s", strings.ReplaceAll(values(a...), " ", ""))
	d.close()
}

func boxed[T int32 | float64](a []T) []interface{} {
	out := make([]interface{}, len(a))
	for i, v := range a {
		out[i] = v
	}
	return out
}

func (d *dumper) properties(p Properties70) {
	if len(p.P) == 0 {
		return
	}
	d.open("Properties70:")
	for _, prop := range p.P {
		args := append([]interface{}{prop.Name, prop.Type, prop.Purpose, prop.Flags}, prop.Value...)
		d.line("P: %s", values(args...))
	}
	d.close()
}

func (d *dumper) layer(kind string, l *LayerElement) {
	if l == nil {
		return
	}
	d.open("%s: %d", kind, l.Index)
	d.line("Name: %s", value(l.Name))
	d.line("MappingInformationType: %s", value(l.MappingInformationType))
	d.line("ReferenceInformationType: %s", value(l.ReferenceInformationType))
	d.array("Normals", boxed(l.Normals))
	d.array("NormalsIndex", boxed(l.NormalsIndex))
	d.array("UV", boxed(l.UV))
	d.array("UVIndex", boxed(l.UVIndex))
	d.array("Materials", boxed(l.Materials))
	d.close()
}

func (d *dumper) geometry(g *Geometry) {
	d.open("Geometry: %s", values(g.Id, "Geometry::"+g.Name, g.Element))
	d.properties(g.Properties70)
	d.array("Vertices", boxed(g.Vertices))
	d.array("PolygonVertexIndex", boxed(g.PolygonVertexIndex))
	d.line("GeometryVersion: %d", g.GeometryVersion)
	for _, l := range g.LayerElementNormal {
		d.layer("LayerElementNormal", l)
	}
	for _, l := range g.LayerElementUV {
		d.layer("LayerElementUV", l)
	}
	d.layer("LayerElementMaterial", g.LayerElementMaterial)
	d.close()
}

func (d *dumper) model(m *Model) {
	d.open("Model: %s", values(m.Id, "Model::"+m.Name, m.Element))
	d.line("Version: %d", m.Version)
	d.properties(m.Properties70)
	d.line("Shading: %s", value(m.Shading))
	d.line("Culling: %s", value(m.Culling))
	d.close()
}

func (d *dumper) material(m *Material) {
	d.open("Material: %s", values(m.Id, "Material::"+m.Name, m.Element))
	d.line("Version: %d", m.Version)
	d.line("ShadingModel: %s", value(m.ShadingModel))
	d.line("MultiLayer: %d", m.MultiLayer)
	d.properties(m.Properties70)
	d.close()
}

// Dump writes s in the ASCII FBX layout, for inspection.
func Dump(s *Scene, w io.Writer) error {
	bw := bufio.NewWriter(w)
	d := &dumper{w: bw}

	d.line("; FBX %d.%d.0 project file", s.Version/1000, s.Version%1000/100)
	d.line("")

	h := s.FBXHeaderExtension
	d.open("FBXHeaderExtension:")
	d.line("FBXHeaderVersion: %d", h.FBXHeaderVersion)
	d.line("FBXVersion: %d", h.FBXVersion)
	if h.Creator != "" {
		d.line("Creator: %s", value(h.Creator))
	}
	d.close()

	d.open("Objects:")
	for _, g := range s.Objects.Geometry {
		d.geometry(g)
	}
	for _, m := range s.Objects.Model {
		d.model(m)
	}
	for _, m := range s.Objects.Material {
		d.material(m)
	}
	d.close()

	d.open("Connections:")
	for _, c := range s.Connections.C {
		args := []interface{}{c.Type, c.Child, c.Parent}
		if c.Property != "" {
			args = append(args, c.Property)
		}
		d.line("C: %s", values(args...))
	}
	d.close()

	return bw.Flush()
}
