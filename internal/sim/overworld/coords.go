package overworld

// ChunkSize is the side length of one generation chunk, in cells.
const ChunkSize = 16

// GridCoord addresses one cell on the unbounded plane.
type GridCoord struct {
	X int
	Y int
}

// Chunk returns the coordinate of the chunk owning this cell.
func (g GridCoord) Chunk() ChunkCoord {
	return ChunkCoord{CX: floorDiv(g.X, ChunkSize), CY: floorDiv(g.Y, ChunkSize)}
}

// Local returns the cell offset inside its owning chunk, each component in [0, ChunkSize).
func (g GridCoord) Local() (lx, ly int) {
	return mod(g.X, ChunkSize), mod(g.Y, ChunkSize)
}

// Cardinals returns the 4 edge-adjacent cells in a fixed order (+x, -x, +y, -y).
func (g GridCoord) Cardinals() [4]GridCoord {
	return [4]GridCoord{
		{X: g.X + 1, Y: g.Y},
		{X: g.X - 1, Y: g.Y},
		{X: g.X, Y: g.Y + 1},
		{X: g.X, Y: g.Y - 1},
	}
}

// ChunkCoord identifies one chunk.
type ChunkCoord struct {
	CX int
	CY int
}

// Origin returns the world coordinate of the chunk's (0,0) cell.
func (c ChunkCoord) Origin() GridCoord {
	return GridCoord{X: c.CX * ChunkSize, Y: c.CY * ChunkSize}
}

// Neighbors returns the 8 surrounding chunk coordinates (cardinal + diagonal)
// in a fixed scan order.
func (c ChunkCoord) Neighbors() [8]ChunkCoord {
	var out [8]ChunkCoord
	i := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			out[i] = ChunkCoord{CX: c.CX + dx, CY: c.CY + dy}
			i++
		}
	}
	return out
}

// CardinalNeighbors returns the 4 edge-adjacent chunk coordinates.
func (c ChunkCoord) CardinalNeighbors() [4]ChunkCoord {
	return [4]ChunkCoord{
		{CX: c.CX + 1, CY: c.CY},
		{CX: c.CX - 1, CY: c.CY},
		{CX: c.CX, CY: c.CY + 1},
		{CX: c.CX, CY: c.CY - 1},
	}
}

// Bounds is an inclusive cell-space rectangle.
type Bounds struct {
	Min GridCoord
	Max GridCoord
}

func (b Bounds) extend(g GridCoord) Bounds {
	if g.X < b.Min.X {
		b.Min.X = g.X
	}
	if g.Y < b.Min.Y {
		b.Min.Y = g.Y
	}
	if g.X > b.Max.X {
		b.Max.X = g.X
	}
	if g.Y > b.Max.Y {
		b.Max.Y = g.Y
	}
	return b
}

// Center returns the midpoint of the rectangle (rounded toward Min).
func (b Bounds) Center() GridCoord {
	return GridCoord{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

func boundsOf(cells []GridCoord) Bounds {
	b := Bounds{Min: cells[0], Max: cells[0]}
	for _, c := range cells[1:] {
		b = b.extend(c)
	}
	return b
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
