package bundle

import "github.com/go-gl/mathgl/mgl64"

// Scalar is one float per lane
type Scalar [Width]float64

func (s *Scalar) CopyLane(lane int, source *Scalar, sourceLane int) {
	s[lane] = source[sourceLane]
}

func (s *Scalar) ClearLane(lane int) {
	s[lane] = 0
}

// Ints is one index per lane
type Ints [Width]int

func (s *Ints) CopyLane(lane int, source *Ints, sourceLane int) {
	s[lane] = source[sourceLane]
}

func (s *Ints) ClearLane(lane int) {
	s[lane] = 0
}

type Vec2 struct {
	X, Y Scalar
}

func (v *Vec2) Get(lane int) mgl64.Vec2 {
	return mgl64.Vec2{v.X[lane], v.Y[lane]}
}

func (v *Vec2) Set(lane int, value mgl64.Vec2) {
	v.X[lane] = value[0]
	v.Y[lane] = value[1]
}

func (v *Vec2) CopyLane(lane int, source *Vec2, sourceLane int) {
	v.X[lane] = source.X[sourceLane]
	v.Y[lane] = source.Y[sourceLane]
}

func (v *Vec2) ClearLane(lane int) {
	v.X[lane], v.Y[lane] = 0, 0
}

type Vec3 struct {
	X, Y, Z Scalar
}

func (v *Vec3) Get(lane int) mgl64.Vec3 {
	return mgl64.Vec3{v.X[lane], v.Y[lane], v.Z[lane]}
}

func (v *Vec3) Set(lane int, value mgl64.Vec3) {
	v.X[lane] = value[0]
	v.Y[lane] = value[1]
	v.Z[lane] = value[2]
}

func (v *Vec3) CopyLane(lane int, source *Vec3, sourceLane int) {
	v.X[lane] = source.X[sourceLane]
	v.Y[lane] = source.Y[sourceLane]
	v.Z[lane] = source.Z[sourceLane]
}

func (v *Vec3) ClearLane(lane int) {
	v.X[lane], v.Y[lane], v.Z[lane] = 0, 0, 0
}

type Quat struct {
	X, Y, Z, W Scalar
}

func (q *Quat) Get(lane int) mgl64.Quat {
	return mgl64.Quat{W: q.W[lane], V: mgl64.Vec3{q.X[lane], q.Y[lane], q.Z[lane]}}
}

func (q *Quat) Set(lane int, value mgl64.Quat) {
	q.X[lane] = value.V[0]
	q.Y[lane] = value.V[1]
	q.Z[lane] = value.V[2]
	q.W[lane] = value.W
}

func (q *Quat) CopyLane(lane int, source *Quat, sourceLane int) {
	q.X[lane] = source.X[sourceLane]
	q.Y[lane] = source.Y[sourceLane]
	q.Z[lane] = source.Z[sourceLane]
	q.W[lane] = source.W[sourceLane]
}

func (q *Quat) ClearLane(lane int) {
	q.X[lane], q.Y[lane], q.Z[lane], q.W[lane] = 0, 0, 0, 0
}

// Symmetric2 stores the lower triangle of a symmetric 2x2 matrix
type Symmetric2 struct {
	XX, YX, YY Scalar
}

func (m *Symmetric2) Get(lane int) mgl64.Mat2 {
	// mgl64 matrices are column major
	return mgl64.Mat2{
		m.XX[lane], m.YX[lane],
		m.YX[lane], m.YY[lane],
	}
}

// Set keeps the lower triangle of value
func (m *Symmetric2) Set(lane int, value mgl64.Mat2) {
	m.XX[lane] = value.At(0, 0)
	m.YX[lane] = value.At(1, 0)
	m.YY[lane] = value.At(1, 1)
}

func (m *Symmetric2) CopyLane(lane int, source *Symmetric2, sourceLane int) {
	m.XX[lane] = source.XX[sourceLane]
	m.YX[lane] = source.YX[sourceLane]
	m.YY[lane] = source.YY[sourceLane]
}

func (m *Symmetric2) ClearLane(lane int) {
	m.XX[lane], m.YX[lane], m.YY[lane] = 0, 0, 0
}

// Symmetric3 stores the lower triangle of a symmetric 3x3 matrix
type Symmetric3 struct {
	XX, YX, YY, ZX, ZY, ZZ Scalar
}

func (m *Symmetric3) Get(lane int) mgl64.Mat3 {
	return mgl64.Mat3{
		m.XX[lane], m.YX[lane], m.ZX[lane],
		m.YX[lane], m.YY[lane], m.ZY[lane],
		m.ZX[lane], m.ZY[lane], m.ZZ[lane],
	}
}

// Set keeps the lower triangle of value
func (m *Symmetric3) Set(lane int, value mgl64.Mat3) {
	m.XX[lane] = value.At(0, 0)
	m.YX[lane] = value.At(1, 0)
	m.YY[lane] = value.At(1, 1)
	m.ZX[lane] = value.At(2, 0)
	m.ZY[lane] = value.At(2, 1)
	m.ZZ[lane] = value.At(2, 2)
}

func (m *Symmetric3) CopyLane(lane int, source *Symmetric3, sourceLane int) {
	m.XX[lane] = source.XX[sourceLane]
	m.YX[lane] = source.YX[sourceLane]
	m.YY[lane] = source.YY[sourceLane]
	m.ZX[lane] = source.ZX[sourceLane]
	m.ZY[lane] = source.ZY[sourceLane]
	m.ZZ[lane] = source.ZZ[sourceLane]
}

func (m *Symmetric3) ClearLane(lane int) {
	m.XX[lane], m.YX[lane], m.YY[lane] = 0, 0, 0
	m.ZX[lane], m.ZY[lane], m.ZZ[lane] = 0, 0, 0
}
