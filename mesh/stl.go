package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReadSTL reads a binary STL file. Vertices shared between triangles are
// merged, so the result is an indexed mesh. Stored normals are used when
// they are non-zero; otherwise they are derived from the winding.
func ReadSTL(r io.Reader) (*Mesh, error) {
	m := new(Mesh)

	var header struct {
		H    [80]byte
		NTri uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("reading STL header: %w", err)
	}
	m.Header = strings.TrimRight(string(header.H[:]), " \x00")

	vertMap := make(map[[3]float32]int)

	var vert [3]float32
	var tri [3]int
	triBuf := make([]byte, 4*3*4+2)
	m.Tris = make([][3]int, 0, header.NTri)
	m.Normals = make([]r3.Vec, 0, header.NTri)
	for i := 0; i < int(header.NTri); i++ {
		if _, err := io.ReadFull(r, triBuf); err != nil {
			return nil, fmt.Errorf("reading STL triangle %d of %d: %w", i, header.NTri, err)
		}
		n := r3.Vec{
			X: float64(f32(triBuf[0:])),
			Y: float64(f32(triBuf[4:])),
			Z: float64(f32(triBuf[8:])),
		}
		for v := range tri {
			for c := range vert {
				const start = 3 * 4 // Skip normal
				vert[c] = f32(triBuf[start+12*v+4*c:])
			}
			vertIndex, ok := vertMap[vert]
			if !ok {
				vertIndex = len(m.Verts)
				m.Verts = append(m.Verts, r3.Vec{X: float64(vert[0]), Y: float64(vert[1]), Z: float64(vert[2])})
				vertMap[vert] = vertIndex
			}
			tri[v] = vertIndex
		}
		m.Tris = append(m.Tris, tri)
		if r3.Norm(n) == 0 {
			n = unitNormal(m.Triangle(len(m.Tris) - 1))
		}
		m.Normals = append(m.Normals, n)
	}

	return m, nil
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// WriteSTL writes m as a binary STL file. Coordinates are narrowed to
// float32, as the format requires.
func (m *Mesh) WriteSTL(w io.Writer) error {
	bw := bufio.NewWriter(w)

	var header [80]byte
	copy(header[:], m.Header)
	bw.Write(header[:])
	var buf [4*3*4 + 2]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(m.Tris)))
	bw.Write(buf[:4])

	put := func(off int, v r3.Vec) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v.X)))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(v.Y)))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(v.Z)))
	}
	for i, t := range m.Tris {
		put(0, m.Normal(i))
		for v, idx := range t {
			put(12+12*v, m.Verts[idx])
		}
		buf[48], buf[49] = 0, 0 // Attribute byte count
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
