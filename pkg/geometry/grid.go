// Package geometry builds the meshes of the scene and owns the per-frame
// deformation of the wobbling plane.
package geometry

import "fmt"

// Vertex attribute colours of the plane, cycled by vertex index.
var PlaneColors = [3][3]float32{
	{1.0, 0xfa / 255.0, 0x6e / 255.0}, // #fffa6e yellow
	{0.0, 0x48 / 255.0, 1.0},          // #0048ff blue
	{0xc2 / 255.0, 1.0, 0x9c / 255.0}, // #c2ff9c green
}

// Grid is a subdivided plane in the XY plane. Positions are packed as
// x, y, z triples; only z changes after construction.
type Grid struct {
	Width    float64
	Height   float64
	SegX     int
	SegY     int
	Position []float32
	Colors   []float32
	UV       []float32
	Indices  []uint32

	dirty bool
}

// NewPlane builds a width x height plane split into segX x segY cells.
// Vertices run row by row from the top-left corner.
func NewPlane(width, height float64, segX, segY int) (*Grid, error) {
	if segX < 1 || segY < 1 {
		return nil, fmt.Errorf("plane needs at least one segment per axis, got %dx%d", segX, segY)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid plane size %vx%v", width, height)
	}

	cols, rows := segX+1, segY+1
	count := cols * rows
	g := &Grid{
		Width:    width,
		Height:   height,
		SegX:     segX,
		SegY:     segY,
		Position: make([]float32, 0, count*3),
		Colors:   make([]float32, 0, count*3),
		UV:       make([]float32, 0, count*2),
		Indices:  make([]uint32, 0, segX*segY*6),
	}

	cellW := width / float64(segX)
	cellH := height / float64(segY)
	for iy := 0; iy < rows; iy++ {
		y := height/2 - float64(iy)*cellH
		for ix := 0; ix < cols; ix++ {
			x := float64(ix)*cellW - width/2
			g.Position = append(g.Position, float32(x), float32(y), 0)
			g.UV = append(g.UV, float32(ix)/float32(segX), 1-float32(iy)/float32(segY))

			c := PlaneColors[(iy*cols+ix)%3]
			g.Colors = append(g.Colors, c[0], c[1], c[2])
		}
	}

	for iy := 0; iy < segY; iy++ {
		for ix := 0; ix < segX; ix++ {
			a := uint32(ix + cols*iy)
			b := uint32(ix + cols*(iy+1))
			c := uint32(ix + 1 + cols*(iy+1))
			d := uint32(ix + 1 + cols*iy)
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}

	return g, nil
}

// Count returns the number of vertices.
func (g *Grid) Count() int {
	return len(g.Position) / 3
}

// XY returns the fixed planar coordinates of vertex i.
func (g *Grid) XY(i int) (float64, float64) {
	return float64(g.Position[i*3]), float64(g.Position[i*3+1])
}

// Z returns the current height of vertex i.
func (g *Grid) Z(i int) float64 {
	return float64(g.Position[i*3+2])
}

// SetZ updates the height of vertex i without touching the dirty flag.
func (g *Grid) SetZ(i int, z float64) {
	g.Position[i*3+2] = float32(z)
}

// MarkDirty flags the positions for re-upload.
func (g *Grid) MarkDirty() {
	g.dirty = true
}

// TakeDirty reports whether positions changed since the last call and
// clears the flag. The renderer calls it once per draw.
func (g *Grid) TakeDirty() bool {
	d := g.dirty
	g.dirty = false
	return d
}
