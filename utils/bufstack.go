package utils

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// BufStack is a little-endian cursor over nested regions of one byte slice.
// Regions remember their parents so StringTree can show the parsed layout.
type BufStack struct {
	parent   *BufStack
	children []*BufStack
	buf      []byte
	offset   int // in parent
	base     int // in root
	pos      int
	kind     string
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{buf: b, kind: kind}
}

// SubBuf creates child region [offset, offset+size).
func (bs *BufStack) SubBuf(kind string, offset, size int) (*BufStack, error) {
	if offset < 0 || size < 0 || offset+size > len(bs.buf) {
		return nil, errors.Errorf("region %s [0x%x+0x%x] out of %v", kind, offset, size, bs)
	}
	child := &BufStack{
		parent: bs,
		offset: offset,
		base:   bs.base + offset,
		kind:   kind,
		buf:    bs.buf[offset : offset+size : offset+size],
	}
	i := sort.Search(len(bs.children), func(i int) bool { return bs.children[i].offset > offset })
	bs.children = append(bs.children, nil)
	copy(bs.children[i+1:], bs.children[i:])
	bs.children[i] = child
	return child, nil
}

func (bs *BufStack) Size() int         { return len(bs.buf) }
func (bs *BufStack) Raw() []byte       { return bs.buf }
func (bs *BufStack) Parent() *BufStack { return bs.parent }

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>[o:0x%x,s:0x%x,ao:0x%x]", bs.kind, bs.offset, len(bs.buf), bs.base)
}

func (bs *BufStack) StringChain() string {
	if bs.parent == nil {
		return bs.String()
	}
	return bs.String() + "::" + bs.parent.StringChain()
}

func (bs *BufStack) writeTree(out *strings.Builder, depth int) {
	pad := strings.Repeat(".  ", depth)
	out.WriteString(pad + bs.String() + "\n")
	pos := 0
	for _, child := range bs.children {
		if child.offset > pos {
			fmt.Fprintf(out, "%s.  gap [o:0x%x,s:0x%x]\n", pad, pos, child.offset-pos)
		}
		child.writeTree(out, depth+1)
		pos = child.offset + len(child.buf)
	}
}

// StringTree lists regions and the gaps between them.
func (bs *BufStack) StringTree() string {
	var out strings.Builder
	bs.writeTree(&out, 0)
	return out.String()
}

func (bs *BufStack) Pos() int    { return bs.pos }
func (bs *BufStack) Remain() int { return len(bs.buf) - bs.pos }

func (bs *BufStack) Seek(pos int) error {
	if pos < 0 || pos > len(bs.buf) {
		return errors.Errorf("seek to 0x%x out of %v", pos, bs.StringChain())
	}
	bs.pos = pos
	return nil
}

// Need fails when fewer than amount bytes remain. Read* calls panic on short
// buffers, so callers check Need first.
func (bs *BufStack) Need(amount int) error {
	if amount < 0 || bs.pos+amount > len(bs.buf) {
		return errors.Errorf("need 0x%x bytes at 0x%x of %v", amount, bs.pos, bs.StringChain())
	}
	return nil
}

func (bs *BufStack) Read(amount int) []byte {
	oldPos := bs.pos
	bs.pos += amount
	return bs.buf[oldPos:bs.pos]
}

func (bs *BufStack) Skip(amount int) {
	bs.pos += amount
	if bs.pos > len(bs.buf) {
		panic("skipped over buf")
	}
}

func (bs *BufStack) ReadLU64() uint64 { return binary.LittleEndian.Uint64(bs.Read(8)) }
func (bs *BufStack) ReadLU32() uint32 { return binary.LittleEndian.Uint32(bs.Read(4)) }
func (bs *BufStack) ReadLU16() uint16 { return binary.LittleEndian.Uint16(bs.Read(2)) }
func (bs *BufStack) ReadU8() byte     { return bs.Read(1)[0] }

func (bs *BufStack) ReadLF() float32 { return math.Float32frombits(bs.ReadLU32()) }
func (bs *BufStack) ReadLD() float64 { return math.Float64frombits(bs.ReadLU64()) }

func (bs *BufStack) ReadStringBuffer(size int) string {
	return BytesToString(bs.Read(size))
}
