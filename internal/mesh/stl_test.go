package mesh_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"printforge-backend/internal/apperr"
	"printforge-backend/internal/mesh"
)

type triangle [3][3]float32

// cubeTriangles returns the 12 triangles of an axis-aligned cube with the
// given edge length in millimeters, anchored at the origin.
func cubeTriangles(edge float32) []triangle {
	e := edge
	v := [8][3]float32{
		{0, 0, 0}, {e, 0, 0}, {e, e, 0}, {0, e, 0},
		{0, 0, e}, {e, 0, e}, {e, e, e}, {0, e, e},
	}
	quads := [6][4]int{
		{0, 3, 2, 1}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4}, // front
		{2, 3, 7, 6}, // back
		{1, 2, 6, 5}, // right
		{0, 4, 7, 3}, // left
	}
	tris := make([]triangle, 0, 12)
	for _, q := range quads {
		tris = append(tris,
			triangle{v[q[0]], v[q[1]], v[q[2]]},
			triangle{v[q[0]], v[q[2]], v[q[3]]},
		)
	}
	return tris
}

func encodeBinarySTL(t *testing.T, tris []triangle) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(tris))))
	for _, tri := range tris {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, [3]float32{0, 0, 0}))
		for _, vert := range tri {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, vert))
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))
	}
	return buf.Bytes()
}

func TestVolume_UnitCube(t *testing.T) {
	// 10mm cube = 1000 mm^3 = 1 cm^3
	data := encodeBinarySTL(t, cubeTriangles(10))

	vol, err := mesh.Volume(data)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vol, 1e-9)
}

func TestVolume_TriangleOrderIndependent(t *testing.T) {
	tris := cubeTriangles(7)
	want, err := mesh.Volume(encodeBinarySTL(t, tris))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := make([]triangle, len(tris))
		copy(shuffled, tris)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got, err := mesh.Volume(encodeBinarySTL(t, shuffled))
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestVolume_WindingDoesNotFlipSign(t *testing.T) {
	tris := cubeTriangles(10)
	reversed := make([]triangle, len(tris))
	for i, tri := range tris {
		reversed[i] = triangle{tri[2], tri[1], tri[0]}
	}

	vol, err := mesh.Volume(encodeBinarySTL(t, reversed))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vol, 1e-9)
	assert.False(t, math.Signbit(vol))
}

func TestVolume_EmptyBuffer(t *testing.T) {
	_, err := mesh.Volume(nil)
	require.Error(t, err)
	assert.Equal(t, apperr.Parse, apperr.KindOf(err))
}

func TestVolume_TruncatedFacets(t *testing.T) {
	data := encodeBinarySTL(t, cubeTriangles(10))
	_, err := mesh.Volume(data[:len(data)-30])
	require.Error(t, err)
	assert.Equal(t, apperr.Parse, apperr.KindOf(err))
}

func TestVolume_ShortHeader(t *testing.T) {
	_, err := mesh.Volume(make([]byte, 40))
	require.Error(t, err)
	assert.Equal(t, apperr.Parse, apperr.KindOf(err))
}

func TestVolume_ASCIIRejected(t *testing.T) {
	ascii := []byte("solid cube\n facet normal 0 0 0\n  outer loop\n   vertex 0 0 0\n   vertex 1 0 0\n   vertex 0 1 0\n  endloop\n endfacet\nendsolid cube\n")
	// Pad so the buffer clears the binary header length check.
	ascii = append(ascii, bytes.Repeat([]byte(" "), 128)...)

	_, err := mesh.Volume(ascii)
	require.Error(t, err)
	assert.Equal(t, apperr.Parse, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "ASCII")
}

func TestVolume_ZeroFacets(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0)))

	_, err := mesh.Volume(buf.Bytes())
	require.Error(t, err)
	assert.Equal(t, apperr.Parse, apperr.KindOf(err))
}
