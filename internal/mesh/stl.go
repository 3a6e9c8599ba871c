// Package mesh computes enclosed volumes of binary STL solids.
package mesh

import (
	"bytes"
	"encoding/binary"
	"math"

	"printforge-backend/internal/apperr"
)

const (
	headerSize = 80
	facetSize  = 50 // 12 float32 (normal + 3 vertices) + uint16 attribute
)

type vec3 struct {
	x, y, z float64
}

// Volume parses a binary STL buffer and returns the enclosed volume in cubic
// centimeters. The surface is decomposed into signed tetrahedra against the
// origin; the absolute value of the sum makes the result independent of the
// exporter's winding convention. Malformed input is always a Parse error, a
// client fault rather than a server one.
func Volume(buf []byte) (float64, error) {
	if len(buf) == 0 {
		return 0, apperr.New(apperr.Parse, "empty mesh buffer")
	}
	if len(buf) < headerSize+4 {
		return 0, apperr.New(apperr.Parse, "mesh buffer shorter than STL header")
	}

	count := binary.LittleEndian.Uint32(buf[headerSize:])
	expected := int64(headerSize) + 4 + int64(count)*facetSize
	if count == 0 || int64(len(buf)) < expected {
		if looksASCII(buf) {
			return 0, apperr.New(apperr.Parse, "ASCII STL is not supported, export the mesh as binary STL")
		}
		if count == 0 {
			return 0, apperr.New(apperr.Parse, "mesh contains no facets")
		}
		return 0, apperr.New(apperr.Parse, "truncated STL facet data")
	}

	var totalMm3 float64
	offset := headerSize + 4
	for i := 0; i < int(count); i++ {
		base := offset + i*facetSize + 12 // skip the facet normal
		v1 := vertexAt(buf, base)
		v2 := vertexAt(buf, base+12)
		v3 := vertexAt(buf, base+24)
		totalMm3 += signedTetraVolume(v1, v2, v3)
	}

	return math.Abs(totalMm3) / 1000.0, nil
}

func vertexAt(buf []byte, off int) vec3 {
	return vec3{
		x: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))),
		y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))),
		z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:]))),
	}
}

// signedTetraVolume is v1 . (v2 x v3) / 6, the signed volume of the
// tetrahedron spanned by the triangle and the origin.
func signedTetraVolume(v1, v2, v3 vec3) float64 {
	cx := v2.y*v3.z - v2.z*v3.y
	cy := v2.z*v3.x - v2.x*v3.z
	cz := v2.x*v3.y - v2.y*v3.x
	return (v1.x*cx + v1.y*cy + v1.z*cz) / 6.0
}

func looksASCII(buf []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(buf, " \t\r\n"), []byte("solid"))
}
