package animator

import "encoding/binary"
import "math"

// Mat4 is a 4x4 row-major transform.
type Mat4 [16]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromTRS builds a row-major 4x4 from a translation and quaternion rotation
// (x, y, z, w).
func FromTRS(tx, ty, tz, qx, qy, qz, qw float64) Mat4 {
	xx, yy, zz := qx*qx, qy*qy, qz*qz
	xy, xz, yz := qx*qy, qx*qz, qy*qz
	wx, wy, wz := qw*qx, qw*qy, qw*qz

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy), tx,
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx), ty,
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy), tz,
		0, 0, 0, 1,
	}
}

// Mul returns a*b (row-major, a applied after b — i.e. a parent's world
// transform times a child's local transform).
func (a Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[r*4+k] * b[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return out
}

// PutBytes writes the matrix into dst as 16 little-endian float64s.
func (a Mat4) PutBytes(dst []byte) {
	for i, v := range a {
		binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(v))
	}
}

// ComposeWorld walks bones in order (parents always precede children) and
// writes each bone's world transform into dst, FrameSize bytes total.
// locals[i] is bone i's current local transform for this tick.
func ComposeWorld(bones []Bone, locals []Mat4, dst []byte) {
	world := make([]Mat4, len(bones))
	for i, bone := range bones {
		if bone.Parent < 0 {
			world[i] = locals[i]
		} else {
			world[i] = world[bone.Parent].Mul(locals[i])
		}
		world[i].PutBytes(dst[i*16*8:])
	}
}
