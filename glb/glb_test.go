package glb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scenedoc/errs"
)

func container(version uint32, chunks ...[]byte) []byte {
	out := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(out[0:], Magic)
	binary.LittleEndian.PutUint32(out[4:], version)
	for _, c := range chunks {
		out = append(out, c...)
	}
	binary.LittleEndian.PutUint32(out[8:], uint32(len(out)))
	return out
}

func chunkOf(kind uint32, data []byte) []byte {
	out := make([]byte, 8, 8+len(data))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], kind)
	return append(out, data...)
}

func TestRead(t *testing.T) {
	data := container(2, chunkOf(ChunkJSON, []byte(`{"a":1}`)), chunkOf(ChunkBIN, []byte{1, 2, 3, 4}))
	assert.True(t, IsBinary(data))

	js, bin, err := Read(data)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(js))
	assert.Equal(t, []byte{1, 2, 3, 4}, bin)
}

func TestReadWithoutBin(t *testing.T) {
	js, bin, err := Read(container(2, chunkOf(ChunkJSON, []byte(`{}`))))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(js))
	assert.Nil(t, bin)
}

func TestReadMalformed(t *testing.T) {
	for name, data := range map[string][]byte{
		"short":          []byte("glTF"),
		"version":        container(1, chunkOf(ChunkJSON, []byte(`{}`))),
		"first not json": container(2, chunkOf(ChunkBIN, []byte{0, 0, 0, 0})),
		"second not bin": container(2, chunkOf(ChunkJSON, []byte(`{}`)), chunkOf(ChunkJSON, []byte(`{}`))),
		"chunk overrun":  container(2, chunkOf(ChunkJSON, []byte(`{}`))[:9]),
	} {
		_, _, err := Read(data)
		assert.True(t, errs.Is(err, errs.MalformedInput), name)
	}
	assert.False(t, IsBinary([]byte("{}")))
}
