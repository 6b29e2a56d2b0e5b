package trellis

import (
	"image"
	"math"
)

// identityTransform is the identity affine matrix. Affine matrices are laid
// out as [a, b, c, d, tx, ty], mapping (x, y) to (a*x + c*y + tx, b*x + d*y + ty).
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// identityMat4 is the identity 4x4 matrix in row-major order.
var identityMat4 = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular (determinant ~ 0).
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// translateAffine returns a pure translation matrix.
func translateAffine(tx, ty float64) [6]float64 {
	return [6]float64{1, 0, 0, 1, tx, ty}
}

// projectPoint transforms (x, y, z) by a row-major view-projection matrix,
// divides by w and maps normalised device coordinates into the viewport.
// ok is false for points behind the camera (w <= 0).
//
// NDC y points up; screen y points down.
func projectPoint(m [16]float64, x, y, z float64, vp Rect) (sx, sy float64, ok bool) {
	cx := m[0]*x + m[1]*y + m[2]*z + m[3]
	cy := m[4]*x + m[5]*y + m[6]*z + m[7]
	cw := m[12]*x + m[13]*y + m[14]*z + m[15]
	if cw <= 1e-9 {
		return 0, 0, false
	}
	nx := cx / cw
	ny := cy / cw
	sx = vp.X + (nx+1)*0.5*vp.Width
	sy = vp.Y + (1-ny)*0.5*vp.Height
	return sx, sy, true
}

// multiplyMat4 multiplies two row-major 4x4 matrices: result = a * b.
func multiplyMat4(a, b [16]float64) [16]float64 {
	var r [16]float64
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += a[row*4+k] * b[k*4+col]
			}
			r[row*4+col] = s
		}
	}
	return r
}

// Perspective returns a row-major perspective projection matrix with a
// vertical field of view fovY (radians), mapping depth into [-1, 1].
func Perspective(fovY, aspect, near, far float64) [16]float64 {
	f := 1 / math.Tan(fovY/2)
	nf := 1 / (near - far)
	return [16]float64{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, 2 * far * near * nf,
		0, 0, -1, 0,
	}
}

// LookAt returns a row-major view matrix for a camera at eye looking at
// target with the given up vector.
func LookAt(eyeX, eyeY, eyeZ, targetX, targetY, targetZ, upX, upY, upZ float64) [16]float64 {
	fx, fy, fz := normalize3(targetX-eyeX, targetY-eyeY, targetZ-eyeZ)
	sx, sy, sz := normalize3(cross3(fx, fy, fz, upX, upY, upZ))
	ux, uy, uz := cross3(sx, sy, sz, fx, fy, fz)
	return [16]float64{
		sx, sy, sz, -(sx*eyeX + sy*eyeY + sz*eyeZ),
		ux, uy, uz, -(ux*eyeX + uy*eyeY + uz*eyeZ),
		-fx, -fy, -fz, fx*eyeX + fy*eyeY + fz*eyeZ,
		0, 0, 0, 1,
	}
}

func cross3(ax, ay, az, bx, by, bz float64) (float64, float64, float64) {
	return ay*bz - az*by, az*bx - ax*bz, ax*by - ay*bx
}

func normalize3(x, y, z float64) (float64, float64, float64) {
	l := math.Sqrt(x*x + y*y + z*z)
	if l == 0 {
		return 0, 0, 0
	}
	return x / l, y / l, z / l
}

// rectToImage converts a float rect to the integer pixel rect covering it.
func rectToImage(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
}
