package geometry

// Mesh is an indexed triangle mesh with flat attribute arrays.
type Mesh struct {
	Position []float32
	Normal   []float32
	UV       []float32
	Indices  []uint32
}

// Box builds an axis-aligned box centred at the origin. Each face has its
// own four vertices so normals stay flat and every face gets the full
// [0,1]² texture.
func Box(width, height, depth float64) *Mesh {
	m := &Mesh{}
	w, h, d := float32(width/2), float32(height/2), float32(depth/2)

	// corner order per face: bottom-left, bottom-right, top-right, top-left
	// as seen from outside along the face normal
	faces := []struct {
		normal  [3]float32
		corners [4][3]float32
	}{
		{[3]float32{1, 0, 0}, [4][3]float32{{w, -h, d}, {w, -h, -d}, {w, h, -d}, {w, h, d}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-w, -h, -d}, {-w, -h, d}, {-w, h, d}, {-w, h, -d}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-w, h, d}, {w, h, d}, {w, h, -d}, {-w, h, -d}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-w, -h, -d}, {w, -h, -d}, {w, -h, d}, {-w, -h, d}}},
		{[3]float32{0, 0, 1}, [4][3]float32{{-w, -h, d}, {w, -h, d}, {w, h, d}, {-w, h, d}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{w, -h, -d}, {-w, -h, -d}, {-w, h, -d}, {w, h, -d}}},
	}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	for _, f := range faces {
		base := uint32(len(m.Position) / 3)
		for i, c := range f.corners {
			m.Position = append(m.Position, c[0], c[1], c[2])
			m.Normal = append(m.Normal, f.normal[0], f.normal[1], f.normal[2])
			m.UV = append(m.UV, uvs[i][0], uvs[i][1])
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+3, base)
	}

	return m
}

// Wireframe lists every distinct triangle edge of the grid as line-segment
// index pairs. The result refers to the grid's vertex order but is meant to
// be uploaded once as a snapshot of the flat plane.
func Wireframe(g *Grid) []uint32 {
	seen := make(map[[2]uint32]struct{}, len(g.Indices))
	lines := make([]uint32, 0, len(g.Indices)*2)

	for t := 0; t+2 < len(g.Indices); t += 3 {
		tri := [3]uint32{g.Indices[t], g.Indices[t+1], g.Indices[t+2]}
		for e := 0; e < 3; e++ {
			a, b := tri[e], tri[(e+1)%3]
			key := [2]uint32{a, b}
			if b < a {
				key = [2]uint32{b, a}
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			lines = append(lines, a, b)
		}
	}

	return lines
}
