package envelope

import "github.com/zonewise/shade/geom"

// Export is an envelope in flat arrays, for renderers and JSON clients.
type Export struct {
	// Vertices holds x,y,z per vertex, Indices three vertex indices per
	// triangle and Normals x,y,z per triangle.
	Vertices []float64 `json:"vertices"`
	Indices  []int     `json:"indices"`
	Normals  []float64 `json:"normals"`

	// Footprint is the buildable polygon in WGS84.
	Footprint []geom.LonLat `json:"footprint"`

	LotArea         float64 `json:"lot_area"`
	BuildableArea   float64 `json:"buildable_area"`
	MaxGFA          float64 `json:"max_gfa"`
	EffectiveHeight float64 `json:"effective_height"`
	Floors          int     `json:"floors"`
	Strategy        string  `json:"strategy"`
	Unit            Unit    `json:"unit"`
}

// Export converts e to unit u: lengths scale by the unit factor, areas by
// its square. Normals are unitless and pass through unchanged.
func (e *Envelope) Export(u Unit) Export {
	verts, indices, normals := e.Mesh.Flatten()
	for i := range verts {
		verts[i] = u.FromMeters(verts[i])
	}
	return Export{
		Vertices:        verts,
		Indices:         indices,
		Normals:         normals,
		Footprint:       e.Projection.InverseRing(e.BuildablePolygon),
		LotArea:         u.AreaFromMeters(e.Metrics.LotArea),
		BuildableArea:   u.AreaFromMeters(e.Metrics.BuildableArea),
		MaxGFA:          u.AreaFromMeters(e.Metrics.MaxGFA),
		EffectiveHeight: u.FromMeters(e.EffectiveHeight),
		Floors:          e.Metrics.Floors,
		Strategy:        e.Strategy,
		Unit:            Unit(u.String()),
	}
}
