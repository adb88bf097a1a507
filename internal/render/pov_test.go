package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/mesh"
)

func TestWritePOV(t *testing.T) {
	tri := &mesh.Mesh{
		Verts: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 3}},
		Tris:  [][3]int{{0, 1, 2}},
	}
	var buf bytes.Buffer
	require.NoError(t, WritePOV(&buf, &Scene{
		Meshes: []*mesh.Mesh{tri, tri},
		Sun:    r3.Vec{Z: 1},
		Target: r3.Vec{X: 1, Y: 2, Z: 3},
		Camera: r3.Vec{Y: -10, Z: 5},
	}))
	src := buf.String()

	assert.Contains(t, src, "#declare Target = <1, 3, 2>;")
	assert.Contains(t, src, "location <1, 8, -8>")
	assert.Contains(t, src, "<1, 100003, 2>")
	assert.Equal(t, 2, strings.Count(src, "mesh2 {"))
	// Y and Z swap.
	assert.Contains(t, src, "<0, 3, 2>")
	assert.Contains(t, src, "face_indices {\n\t\t1,\n\t\t<0, 1, 2>")
}
