// Package glb reads the binary container: a 12 byte header followed by a
// JSON chunk and an optional BIN chunk.
package glb

import (
	"bytes"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/utils"
)

const (
	Magic     = 0x46546c67 // glTF
	ChunkJSON = 0x4e4f534a
	ChunkBIN  = 0x004e4942

	HeaderSize = 12
)

// IsBinary reports whether data starts with the container magic.
func IsBinary(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte("glTF"))
}

// Read splits a container into its JSON text and BIN payload. bin is nil
// when the container has no BIN chunk.
func Read(data []byte) (json []byte, bin []byte, err error) {
	bs := utils.NewBufStack("glb", data)
	if err := bs.Need(HeaderSize); err != nil {
		return nil, nil, errs.Malformed("glb: short header: %v", err)
	}
	if magic := bs.ReadLU32(); magic != Magic {
		return nil, nil, errs.Malformed("glb: bad magic 0x%08x", magic)
	}
	if version := bs.ReadLU32(); version != 2 {
		return nil, nil, errs.Malformed("glb: unsupported version %d", version)
	}
	bs.ReadLU32() // total length, chunk sizes are authoritative

	jsonChunk, err := chunk(bs, "json")
	if err != nil {
		return nil, nil, err
	}
	if jsonChunk.kind != ChunkJSON {
		return nil, nil, errs.Malformed("glb: first chunk type 0x%08x is not JSON", jsonChunk.kind)
	}
	if bs.Remain() < 8 {
		return jsonChunk.data, nil, nil
	}
	binChunk, err := chunk(bs, "bin")
	if err != nil {
		return nil, nil, err
	}
	if binChunk.kind != ChunkBIN {
		return nil, nil, errs.Malformed("glb: second chunk type 0x%08x is not BIN", binChunk.kind)
	}
	return jsonChunk.data, binChunk.data, nil
}

type rawChunk struct {
	kind uint32
	data []byte
}

func chunk(bs *utils.BufStack, name string) (rawChunk, error) {
	if err := bs.Need(8); err != nil {
		return rawChunk{}, errs.Malformed("glb: %s chunk header: %v", name, err)
	}
	length := int(bs.ReadLU32())
	kind := bs.ReadLU32()
	sub, err := bs.SubBuf(name, bs.Pos(), length)
	if err != nil {
		return rawChunk{}, errs.Malformed("glb: %s chunk: %v", name, err)
	}
	bs.Skip(length)
	return rawChunk{kind: kind, data: sub.Raw()}, nil
}
