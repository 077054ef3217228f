package geometry

type face struct {
	u, v, w    int
	udir, vdir float32
	width      float32
	height     float32
	depth      float32
	gridX      int
	gridY      int
}

// appendFace emits a (gridX+1)*(gridY+1) vertex grid lying in the u/v plane
// at w = depth/2, two triangles per cell, and records it as one group.
func (b *Buffer) appendFace(f face, normalW float32, materialIndex int) {
	base := uint32(len(b.Positions))
	start := len(b.Indices)

	segW := f.width / float32(f.gridX)
	segH := f.height / float32(f.gridY)
	gridX1 := f.gridX + 1

	for iy := 0; iy <= f.gridY; iy++ {
		y := float32(iy)*segH - f.height/2
		for ix := 0; ix <= f.gridX; ix++ {
			x := float32(ix)*segW - f.width/2

			var pos, norm [3]float32
			pos[f.u] = x * f.udir
			pos[f.v] = y * f.vdir
			pos[f.w] = f.depth / 2
			norm[f.w] = normalW

			b.Positions = append(b.Positions, pos)
			b.Normals = append(b.Normals, norm)
			b.UVs = append(b.UVs, [2]float32{
				float32(ix) / float32(f.gridX),
				1 - float32(iy)/float32(f.gridY),
			})
		}
	}

	for iy := 0; iy < f.gridY; iy++ {
		for ix := 0; ix < f.gridX; ix++ {
			a := base + uint32(ix+gridX1*iy)
			bb := base + uint32(ix+gridX1*(iy+1))
			c := base + uint32(ix+1+gridX1*(iy+1))
			d := base + uint32(ix+1+gridX1*iy)
			b.Indices = append(b.Indices, a, bb, d, bb, c, d)
		}
	}

	b.Groups = append(b.Groups, Group{
		Start:         start,
		Count:         len(b.Indices) - start,
		MaterialIndex: materialIndex,
	})
}

const (
	axisX = 0
	axisY = 1
	axisZ = 2
)

func sign(v float32) float32 {
	if v > 0 {
		return 1
	}
	return -1
}

func (p *BoxParams) generate() *Buffer {
	wx, wy, wz := int(p.WidthSegments), int(p.HeightSegments), int(p.DepthSegments)
	faces := []face{
		{axisZ, axisY, axisX, -1, -1, p.Depth, p.Height, p.Width, wz, wy},  // +x
		{axisZ, axisY, axisX, 1, -1, p.Depth, p.Height, -p.Width, wz, wy},  // -x
		{axisX, axisZ, axisY, 1, 1, p.Width, p.Depth, p.Height, wx, wz},    // +y
		{axisX, axisZ, axisY, 1, -1, p.Width, p.Depth, -p.Height, wx, wz},  // -y
		{axisX, axisY, axisZ, 1, -1, p.Width, p.Height, p.Depth, wx, wy},   // +z
		{axisX, axisY, axisZ, -1, -1, p.Width, p.Height, -p.Depth, wx, wy}, // -z
	}

	b := &Buffer{}
	for i, f := range faces {
		b.appendFace(f, sign(f.depth), i)
	}
	return b
}

func (p *PlaneParams) generate() *Buffer {
	b := &Buffer{}
	b.appendFace(face{
		u: axisX, v: axisY, w: axisZ,
		udir: 1, vdir: -1,
		width: p.Width, height: p.Height,
		gridX: int(p.WidthSegments), gridY: int(p.HeightSegments),
	}, 1, 0)
	// single face planes carry no groups
	b.Groups = nil
	return b
}

// VertexCount is the number of vertices the buffer holds.
func (b *Buffer) VertexCount() int {
	if b == nil {
		return 0
	}
	return len(b.Positions)
}
