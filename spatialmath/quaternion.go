package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/quat"
)

// quaternion is an Orientation held as a unit quaternion.
type quaternion quat.Number

// Quaternion returns orientation in quaternion representation.
func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// EulerAngles returns orientation in Euler angle representation, in radians.
func (q *quaternion) EulerAngles() *EulerAngles {
	return QuatToEulerAngles(quat.Number(*q))
}

// Normalize a quaternion, returning its unit version. The zero quaternion normalizes to identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage,
// q == -q, so b is also compared flipped.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	if math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol {
		return true
	}
	return QuaternionAlmostEqualFlipped(a, b, tol)
}

// QuaternionAlmostEqualFlipped checks a against the flipped b, since q and -q describe the same rotation.
func QuaternionAlmostEqualFlipped(a, b quat.Number, tol float64) bool {
	f := Flip(b)
	return math.Abs(a.Real-f.Real) < tol &&
		math.Abs(a.Imag-f.Imag) < tol &&
		math.Abs(a.Jmag-f.Jmag) < tol &&
		math.Abs(a.Kmag-f.Kmag) < tol
}

// QuatToEulerAngles converts a unit quaternion to roll, pitch and yaw in radians, such that
// Rz(yaw)·Ry(pitch)·Rx(roll) reproduces the rotation.
// Euler angles are terrible, don't use them for anything other than display.
func QuatToEulerAngles(q quat.Number) *EulerAngles {
	q = Normalize(q)
	mat := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Mat4()
	return MatToEulerAngles(mat)
}

// MatToEulerAngles converts the rotation part of a 4x4 homogeneous matrix to Euler angles in radians.
func MatToEulerAngles(mat mgl64.Mat4) *EulerAngles {
	sy := math.Sqrt(mat.At(0, 0)*mat.At(0, 0) + mat.At(1, 0)*mat.At(1, 0))
	if sy < 1e-6 {
		return &EulerAngles{
			Roll:  math.Atan2(-mat.At(1, 2), mat.At(1, 1)),
			Pitch: math.Atan2(-mat.At(2, 0), sy),
			Yaw:   0,
		}
	}
	return &EulerAngles{
		Roll:  math.Atan2(mat.At(2, 1), mat.At(2, 2)),
		Pitch: math.Atan2(-mat.At(2, 0), sy),
		Yaw:   math.Atan2(mat.At(1, 0), mat.At(0, 0)),
	}
}

// slerp interpolates along the shortest arc between two unit quaternions.
func slerp(qN1, qN2 quat.Number, by float64) quat.Number {
	qN1 = Normalize(qN1)
	qN2 = Normalize(qN2)

	dot := qN1.Real*qN2.Real + qN1.Imag*qN2.Imag + qN1.Jmag*qN2.Jmag + qN1.Kmag*qN2.Kmag
	if dot < 0 {
		// q and -q are the same rotation; going through -q2 takes the short way round.
		qN2 = Flip(qN2)
		dot = -dot
	}

	// Nearly parallel: the arc is indistinguishable from the chord.
	if dot > 0.9995 {
		return Normalize(quat.Add(qN1, quat.Scale(by, quat.Sub(qN2, qN1))))
	}

	theta0 := math.Acos(dot)
	theta := theta0 * by
	sinTheta0 := math.Sin(theta0)
	s1 := math.Cos(theta) - dot*math.Sin(theta)/sinTheta0
	s2 := math.Sin(theta) / sinTheta0
	return Normalize(quat.Add(quat.Scale(s1, qN1), quat.Scale(s2, qN2)))
}
