package render

import (
	"bufio"
	"fmt"
	"io"
	"text/template"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zonewise/shade/mesh"
)

// A Scene is a set of meshes lit by the sun, for rendering with POV-Ray.
//
// Coordinates are local meters with X east, Y north and Z up. POV-Ray is
// Y-up, so the written scene swaps Y and Z.
type Scene struct {
	Meshes []*mesh.Mesh

	// Sun is the unit direction toward the sun.
	Sun r3.Vec

	// Target is marked with a sphere and compass axes. The camera sits at
	// Target+Camera looking at it.
	Target r3.Vec
	Camera r3.Vec
}

// pov formats v as a POV-Ray vector.
func pov(v r3.Vec) string {
	return fmt.Sprintf("<%g, %g, %g>", v.X, v.Z, v.Y)
}

// WritePOV writes s as POV-Ray source.
func WritePOV(w io.Writer, s *Scene) error {
	bw := bufio.NewWriter(w)
	err := sceneTemplate.Execute(bw, map[string]string{
		"Target": pov(s.Target),
		"Camera": pov(r3.Add(s.Target, s.Camera)),
		"Sun":    pov(r3.Add(s.Target, r3.Scale(1e5, s.Sun))),
	})
	if err != nil {
		return fmt.Errorf("writing POV-Ray scene: %w", err)
	}
	for _, m := range s.Meshes {
		fmt.Fprintf(bw, "mesh2 {\n\tvertex_vectors {\n\t\t%d", len(m.Verts))
		for _, v := range m.Verts {
			fmt.Fprintf(bw, ",\n\t\t%s", pov(v))
		}
		fmt.Fprintf(bw, "\n\t}\n\tface_indices {\n\t\t%d", len(m.Tris))
		for _, t := range m.Tris {
			fmt.Fprintf(bw, ",\n\t\t<%d, %d, %d>", t[0], t[1], t[2])
		}
		fmt.Fprint(bw, "\n\t}\n\ttexture { pigment { color rgb 1 } }\n}\n")
	}
	return bw.Flush()
}

var sceneTemplate = template.Must(template.New("").Parse(`// Rendered with POV-Ray 3.7 or later.
#declare Target = {{.Target}};

global_settings {
	ambient_light 0
	radiosity {
		pretrace_start 0.08
		pretrace_end   0.01
		count 120
		error_bound 0.25
		recursion_limit 1
	}
	assumed_gamma 1.0
}

sky_sphere {
	pigment {
		gradient y
		color_map {
			[0.0 color rgb <1, 1, 1>]
			[0.3 color rgb <0.18, 0.28, 0.75>*0.8]
			[1.0 color rgb <0.15, 0.28, 0.75>*0.5]
		}
		scale 1.05
		translate <0, -0.05, 0>
	}
}

camera {
	location {{.Camera}}
	look_at Target
}

light_source {
	{{.Sun}}
	color rgb 1
	parallel
	point_at Target
}

sphere {
	Target, 0.25
	texture { pigment { color rgb <0, 1, 0> } }
}

// East, up and north.
cylinder {
	Target, Target + <1, 0, 0>, 0.05
	texture { pigment { color rgb <1, 0, 0> } }
}
cylinder {
	Target, Target + <0, 1, 0>, 0.05
	texture { pigment { color rgb <0, 0, 1> } }
}
cylinder {
	Target, Target + <0, 0, 1>, 0.05
	texture { pigment { color rgb <0, 1, 0> } }
}

`))
