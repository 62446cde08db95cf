package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/akmonengine/ballast"
	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	dt       = 1.0 / 60.0
	maxSteps = 240
	boxCount = 8
)

// groundManifold builds the four point contact between the ground plane (y=0) and a unit box.
// There is no collision detection here, the host rebuilds the manifold from the box pose.
func groundManifold(box actor.RigidPose) *constraint.Contact4 {
	description := &constraint.Contact4{
		// From the box (B) to the ground (A)
		Normal:                  mgl64.Vec3{0, -1, 0},
		FrictionCoefficient:     constraint.CombineFriction(0.8, 0.6),
		SpringSettings:          constraint.SpringSettings{NaturalFrequency: 120 * math.Pi, DampingRatio: 1},
		MaximumRecoveryVelocity: 2,
	}
	corners := []mgl64.Vec3{{0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}, {-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}}
	for i, corner := range corners {
		offsetB := box.Orientation.Rotate(corner)
		point := box.Position.Add(offsetB)
		description.Contacts[i] = constraint.ContactPoint{
			OffsetA: mgl64.Vec3{point.X(), 0, point.Z()},
			OffsetB: offsetB,
			Depth:   -point.Y(),
		}
	}

	return description
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	world, err := ballast.NewWorld(boxCount+1, ballast.DEFAULT_ITERATIONS)
	if err != nil {
		logger.Error("cannot create world", "error", err)
		os.Exit(1)
	}
	world.Gravity = mgl64.Vec3{0, -9.81, 0}
	world.Workers = 4
	world.Logger = logger
	world.Solver.Logger = logger
	world.Compressor.Logger = logger

	ground := world.AddBody(actor.BodyDescription{Pose: actor.NewRigidPose()})
	inertia := actor.NewDynamicInertia(&actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, 1)

	// Boxes dropped side by side, each one with its own ground manifold.
	boxes := make([]int, boxCount)
	contacts := make([]int, boxCount)
	for i := range boxes {
		boxes[i] = world.AddBody(actor.BodyDescription{
			Pose:         actor.RigidPose{Position: mgl64.Vec3{float64(i) * 2, 1 + 0.25*float64(i), 0}, Orientation: mgl64.QuatIdent()},
			LocalInertia: inertia,
		})
		contacts[i], err = world.AddConstraint([]int{ground, boxes[i]}, groundManifold(world.Bodies.GetPose(boxes[i])))
		if err != nil {
			logger.Error("cannot add contact", "error", err)
			os.Exit(1)
		}
	}
	fmt.Printf("%d boxes, %d constraint batches\n", boxCount, len(world.Solver.Batches))

	for step := 0; step < maxSteps; step++ {
		for i, box := range boxes {
			world.Solver.ApplyDescription(contacts[i], groundManifold(world.Bodies.GetPose(box)))
		}
		if err := world.Step(dt); err != nil {
			logger.Error("step failed", "error", err)
			os.Exit(1)
		}

		if step%60 == 59 {
			fmt.Printf("t=%.2fs\n", float64(step+1)*dt)
			for i, box := range boxes {
				pose, velocity := world.Bodies.GetPose(box), world.Bodies.GetVelocity(box)
				fmt.Printf("   box %d: y=%.4f vy=%+.5f\n", i, pose.Position.Y(), velocity.Linear.Y())
			}
		}
	}

	// Releasing the contacts lets the compressor fold the batches back.
	for i := 1; i < boxCount; i++ {
		if err := world.RemoveConstraint(contacts[i]); err != nil {
			logger.Error("cannot remove contact", "error", err)
			os.Exit(1)
		}
		if err := world.RemoveBody(boxes[i]); err != nil {
			logger.Error("cannot remove box", "error", err)
			os.Exit(1)
		}
	}
	fmt.Printf("1 box left, %d constraint batches\n", len(world.Solver.Batches))
}
