package fbx

import (
	"bytes"
	"compress/zlib"
	"io"
	"math"
	"strings"

	mfbx "github.com/mogaika/fbx"
	"github.com/pkg/errors"

	"github.com/mogaika/scenedoc/utils"
)

const (
	binaryMagic = "Kaydara FBX Binary  \x00"
	headerSize  = 27

	// record headers widen to 64 bit offsets from this version on
	wideVersion = 7500
)

// IsBinary reports whether data starts with the binary FBX magic.
func IsBinary(data []byte) bool {
	return len(data) >= headerSize && string(data[:len(binaryMagic)]) == binaryMagic
}

type reader struct {
	bs      *utils.BufStack
	version uint32
}

// Read parses a binary FBX 7.x file into a node tree. The returned root is
// nameless and holds the top level records.
func Read(r io.Reader) (*mfbx.Node, uint32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "read")
	}
	if !IsBinary(data) {
		head := data
		if len(head) > len(binaryMagic) {
			head = head[:len(binaryMagic)]
		}
		return nil, 0, errors.Errorf("not a binary fbx file, starts with %q", utils.DumpToOneLineString(head))
	}
	rd := &reader{bs: utils.NewBufStack("fbx", data)}
	rd.bs.Skip(len(binaryMagic) + 2)
	rd.version = rd.bs.ReadLU32()
	if rd.version < 7000 || rd.version >= 8000 {
		return nil, rd.version, errors.Errorf("unsupported fbx version %d", rd.version)
	}

	root := &mfbx.Node{}
	for {
		n, err := rd.record()
		if err != nil {
			return nil, rd.version, err
		}
		if n == nil {
			break
		}
		root.Nodes = append(root.Nodes, n)
	}
	return root, rd.version, nil
}

func (rd *reader) offset() uint64 {
	if rd.version >= wideVersion {
		return rd.bs.ReadLU64()
	}
	return uint64(rd.bs.ReadLU32())
}

func (rd *reader) headerLen() int {
	if rd.version >= wideVersion {
		return 25
	}
	return 13
}

// record reads one node record. A zeroed header ends a node list and
// yields nil; running out of data does the same for the top level.
func (rd *reader) record() (*mfbx.Node, error) {
	bs := rd.bs
	if bs.Remain() < rd.headerLen() {
		return nil, nil
	}
	start := bs.Pos()
	end := rd.offset()
	numProps := rd.offset()
	propsLen := rd.offset()
	nameLen := int(bs.ReadU8())
	if end == 0 {
		return nil, nil
	}
	if end > uint64(bs.Size()) || end <= uint64(start) {
		return nil, errors.Errorf("record at 0x%x ends at 0x%x outside of file", start, end)
	}
	if err := bs.Need(nameLen); err != nil {
		return nil, errors.Wrapf(err, "record name")
	}
	n := &mfbx.Node{Name: string(bs.Read(nameLen))}

	propsStart := bs.Pos()
	for i := uint64(0); i < numProps; i++ {
		p, err := rd.property()
		if err != nil {
			return nil, errors.Wrapf(err, "%s property %d", n.Name, i)
		}
		n.Properties = append(n.Properties, p)
	}
	if got := uint64(bs.Pos() - propsStart); got != propsLen {
		return nil, errors.Errorf("%s: property list is %d bytes, header says %d", n.Name, got, propsLen)
	}

	for uint64(bs.Pos()) < end {
		child, err := rd.record()
		if err != nil {
			return nil, errors.Wrapf(err, "%s", n.Name)
		}
		if child == nil {
			break
		}
		n.Nodes = append(n.Nodes, child)
	}
	if err := bs.Seek(int(end)); err != nil {
		return nil, err
	}
	return n, nil
}

// decodeName converts an 8-bit string property. Object names embed their
// class after "\x00\x01", both halves are decoded separately.
func decodeName(raw []byte) string {
	parts := strings.Split(string(raw), "\x00\x01")
	for i, p := range parts {
		parts[i] = utils.BytesToString([]byte(p))
	}
	return strings.Join(parts, "\x00\x01")
}

func (rd *reader) property() (interface{}, error) {
	bs := rd.bs
	if err := bs.Need(1); err != nil {
		return nil, err
	}
	code := bs.ReadU8()
	scalar := map[byte]int{'Y': 2, 'C': 1, 'I': 4, 'F': 4, 'D': 8, 'L': 8}
	if size, ok := scalar[code]; ok {
		if err := bs.Need(size); err != nil {
			return nil, err
		}
	}

	switch code {
	case 'Y':
		return int16(bs.ReadLU16()), nil
	case 'C':
		return bs.ReadU8() != 0, nil
	case 'I':
		return int32(bs.ReadLU32()), nil
	case 'F':
		return bs.ReadLF(), nil
	case 'D':
		return bs.ReadLD(), nil
	case 'L':
		return int64(bs.ReadLU64()), nil
	case 'S', 'R':
		if err := bs.Need(4); err != nil {
			return nil, err
		}
		size := int(bs.ReadLU32())
		if err := bs.Need(size); err != nil {
			return nil, err
		}
		raw := bs.Read(size)
		if code == 'S' {
			return decodeName(raw), nil
		}
		return append([]byte(nil), raw...), nil
	case 'f', 'd', 'l', 'i', 'b':
		return rd.array(code)
	}
	return nil, errors.Errorf("unknown property type %q at 0x%x", code, bs.Pos()-1)
}

func (rd *reader) array(code byte) (interface{}, error) {
	bs := rd.bs
	if err := bs.Need(12); err != nil {
		return nil, err
	}
	count := int(bs.ReadLU32())
	encoding := bs.ReadLU32()
	size := int(bs.ReadLU32())
	if err := bs.Need(size); err != nil {
		return nil, err
	}
	raw := bs.Read(size)

	elem := map[byte]int{'f': 4, 'd': 8, 'l': 8, 'i': 4, 'b': 1}[code]
	switch encoding {
	case 0:
	case 1:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "array zlib")
		}
		defer zr.Close()
		if raw, err = io.ReadAll(zr); err != nil {
			return nil, errors.Wrapf(err, "array zlib")
		}
	default:
		return nil, errors.Errorf("unknown array encoding %d", encoding)
	}
	if len(raw) < count*elem {
		return nil, errors.Errorf("array of %d elements holds only %d bytes", count, len(raw))
	}

	ab := utils.NewBufStack("array", raw)
	switch code {
	case 'f':
		out := make([]float32, count)
		for i := range out {
			out[i] = ab.ReadLF()
		}
		return out, nil
	case 'd':
		out := make([]float64, count)
		for i := range out {
			out[i] = ab.ReadLD()
		}
		return out, nil
	case 'l':
		out := make([]int64, count)
		for i := range out {
			out[i] = int64(ab.ReadLU64())
		}
		return out, nil
	case 'i':
		out := make([]int32, count)
		for i := range out {
			out[i] = int32(ab.ReadLU32())
		}
		return out, nil
	default:
		out := make([]bool, count)
		for i := range out {
			out[i] = ab.ReadU8() != 0
		}
		return out, nil
	}
}

// float64s widens any numeric array property.
func float64s(p interface{}) []float64 {
	switch v := p.(type) {
	case []float64:
		return v
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out
	case []int32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out
	}
	return nil
}

func int32s(p interface{}) []int32 {
	switch v := p.(type) {
	case []int32:
		return v
	case []int64:
		out := make([]int32, len(v))
		for i, e := range v {
			if e > math.MaxInt32 || e < math.MinInt32 {
				return nil
			}
			out[i] = int32(e)
		}
		return out
	}
	return nil
}

// number reads an integer or float scalar property.
func number(p interface{}) float64 {
	switch v := p.(type) {
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}
