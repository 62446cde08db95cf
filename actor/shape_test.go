package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// Helper functions
func vec3Equal(a, b mgl64.Vec3, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) < tolerance &&
		math.Abs(a.Y()-b.Y()) < tolerance &&
		math.Abs(a.Z()-b.Z()) < tolerance
}

func floatEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

// mat3Equal compares two 3x3 matrices element-wise
func mat3Equal(a, b mgl64.Mat3, tolerance float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) >= tolerance {
				return false
			}
		}
	}
	return true
}

// ========== INERTIA ==========
func TestBoxComputeInertia(t *testing.T) {
	tests := []struct {
		name         string
		box          *Box
		mass         float64
		expectedDiag mgl64.Vec3 // diagonal elements (ix, iy, iz)
	}{
		{
			name:         "unit cube",
			box:          &Box{HalfExtents: mgl64.Vec3{1, 1, 1}},
			mass:         12.0,                // m/12 = 1.0
			expectedDiag: mgl64.Vec3{8, 8, 8}, // (2*2 + 2*2, 2*2 + 2*2, 2*2 + 2*2)
		},
		{
			name:         "rectangular box 2x3x4",
			box:          &Box{HalfExtents: mgl64.Vec3{2, 3, 4}},
			mass:         12.0,
			expectedDiag: mgl64.Vec3{100, 80, 52}, // (m/12)*(3²+4²), (m/12)*(2²+4²), (m/12)*(2²+3²)
		},
		{
			name:         "thin box",
			box:          &Box{HalfExtents: mgl64.Vec3{0.1, 5, 0.1}},
			mass:         60.0,
			expectedDiag: mgl64.Vec3{500.2, 0.4, 500.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.box.ComputeInertia(tt.mass)

			// off-diagonal terms must be zero
			if !floatEqual(result.At(0, 1), 0.0, 1e-9) || !floatEqual(result.At(0, 2), 0.0, 1e-9) ||
				!floatEqual(result.At(1, 0), 0.0, 1e-9) || !floatEqual(result.At(1, 2), 0.0, 1e-9) ||
				!floatEqual(result.At(2, 0), 0.0, 1e-9) || !floatEqual(result.At(2, 1), 0.0, 1e-9) {
				t.Errorf("ComputeInertia() returned non-diagonal matrix: %v", result)
			}

			// diagonal terms
			if !vec3Equal(result.Diag(), tt.expectedDiag, 1e-6) {
				t.Errorf("ComputeInertia() diagonal = %v, want %v", result.Diag(), tt.expectedDiag)
			}
		})
	}
}

func TestSphereComputeInertia(t *testing.T) {
	tests := []struct {
		name      string
		sphere    *Sphere
		mass      float64
		expectedI float64 // same value on every axis
	}{
		{
			name:      "unit sphere",
			sphere:    &Sphere{Radius: 1.0},
			mass:      5.0,
			expectedI: (2.0 / 5.0) * 5.0 * 1.0 * 1.0, // 2
		},
		{
			name:      "sphere radius 2",
			sphere:    &Sphere{Radius: 2.0},
			mass:      10.0,
			expectedI: (2.0 / 5.0) * 10.0 * 4.0, // 16
		},
		{
			name:      "small sphere",
			sphere:    &Sphere{Radius: 0.5},
			mass:      1.0,
			expectedI: (2.0 / 5.0) * 1.0 * 0.25, // 0.1
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.sphere.ComputeInertia(tt.mass)

			// diagonal matrix with equal terms
			expectedMat := mgl64.Mat3{
				tt.expectedI, 0, 0,
				0, tt.expectedI, 0,
				0, 0, tt.expectedI,
			}

			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					if !floatEqual(result.At(i, j), expectedMat.At(i, j), 1e-9) {
						t.Errorf("ComputeInertia()[%d][%d] = %v, want %v", i, j, result.At(i, j), expectedMat.At(i, j))
					}
				}
			}
		})
	}
}

// ========== MASS ==========
func TestComputeMass(t *testing.T) {
	tests := []struct {
		name     string
		shape    ShapeInterface
		density  float64
		expected float64
	}{
		{"unit cube", &Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, 3.0, 3.0},
		{"box 2x4x6", &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}, 0.5, 24.0},
		{"unit sphere", &Sphere{Radius: 1}, 1.0, 4.0 / 3.0 * math.Pi},
		{"zero density", &Sphere{Radius: 2}, 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.ComputeMass(tt.density); !floatEqual(got, tt.expected, 1e-9) {
				t.Errorf("ComputeMass(%v) = %v, want %v", tt.density, got, tt.expected)
			}
		})
	}
}

func TestNewDynamicInertia(t *testing.T) {
	t.Run("box", func(t *testing.T) {
		box := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
		inertia := NewDynamicInertia(box, 1.5) // mass 12

		if !floatEqual(inertia.InverseMass, 1.0/12.0, 1e-12) {
			t.Errorf("InverseMass = %v, want %v", inertia.InverseMass, 1.0/12.0)
		}
		want := mgl64.Diag3(mgl64.Vec3{1.0 / 8, 1.0 / 8, 1.0 / 8})
		if !mat3Equal(inertia.InverseInertiaTensor, want, 1e-9) {
			t.Errorf("InverseInertiaTensor = %v, want %v", inertia.InverseInertiaTensor, want)
		}
		if inertia.IsKinematic() {
			t.Error("a box with density should be dynamic")
		}
	})

	t.Run("zero density is kinematic", func(t *testing.T) {
		inertia := NewDynamicInertia(&Sphere{Radius: 1}, 0)
		if !inertia.IsKinematic() {
			t.Error("zero density should give a kinematic inertia")
		}
		if inertia.InverseInertiaTensor != (mgl64.Mat3{}) {
			t.Errorf("InverseInertiaTensor = %v, want zero", inertia.InverseInertiaTensor)
		}
	})
}
