package importer

import "github.com/go-gl/mathgl/mgl32"

// stripToTriangles expands a triangle strip, keeping winding consistent.
func stripToTriangles(strip []uint32) []uint32 {
	if len(strip) < 3 {
		return nil
	}
	out := make([]uint32, 0, (len(strip)-2)*3)
	for i := 2; i < len(strip); i++ {
		a, b, c := strip[i-2], strip[i-1], strip[i]
		if i%2 == 1 {
			a, b = b, a
		}
		if a == b || b == c || a == c {
			continue // degenerate, used to stitch strips
		}
		out = append(out, a, b, c)
	}
	return out
}

// fanToTriangles expands a triangle fan around its first index.
func fanToTriangles(fan []uint32) []uint32 {
	if len(fan) < 3 {
		return nil
	}
	out := make([]uint32, 0, (len(fan)-2)*3)
	for i := 2; i < len(fan); i++ {
		out = append(out, fan[0], fan[i-1], fan[i])
	}
	return out
}

// sequence returns 0..n-1, for expanding non-indexed primitives.
func sequence(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// smoothNormals computes area-weighted vertex normals from the triangles of m.
func smoothNormals(m *Mesh) {
	normals := make([]mgl32.Vec3, len(m.Positions))
	indices := m.Indices
	if indices == nil {
		indices = sequence(len(m.Positions))
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(normals) || int(b) >= len(normals) || int(c) >= len(normals) {
			continue
		}
		pa, pb, pc := m.Positions[a], m.Positions[b], m.Positions[c]
		face := pb.Sub(pa).Cross(pc.Sub(pa))
		normals[a] = normals[a].Add(face)
		normals[b] = normals[b].Add(face)
		normals[c] = normals[c].Add(face)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	m.Normals = normals
}

// transformed returns a copy of m with positions and normals moved by world.
func transformed(m *Mesh, world mgl32.Mat4) *Mesh {
	out := *m
	out.Positions = make([]mgl32.Vec3, len(m.Positions))
	for i, p := range m.Positions {
		out.Positions[i] = mgl32.TransformCoordinate(p, world)
	}
	if len(m.Normals) > 0 {
		normalMat := world.Mat3().Inv().Transpose()
		out.Normals = make([]mgl32.Vec3, len(m.Normals))
		for i, n := range m.Normals {
			v := normalMat.Mul3x1(n)
			if v.Len() > 0 {
				v = v.Normalize()
			}
			out.Normals[i] = v
		}
	}
	// Mirroring transforms flip winding.
	if world.Mat3().Det() < 0 && len(m.Indices) > 0 {
		out.Indices = make([]uint32, len(m.Indices))
		copy(out.Indices, m.Indices)
		for i := 0; i+2 < len(out.Indices); i += 3 {
			out.Indices[i+1], out.Indices[i+2] = out.Indices[i+2], out.Indices[i+1]
		}
	}
	return &out
}

// flipV replaces v with 1-v in every UV channel of m.
func flipV(m *Mesh) {
	for _, ch := range m.UVs {
		for i := range ch {
			ch[i][1] = 1 - ch[i][1]
		}
	}
}
