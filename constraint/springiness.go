package constraint

import "github.com/akmonengine/ballast/bundle"

// SpringSettings describe how a constraint yields to error
type SpringSettings struct {
	// NaturalFrequency in radians per second
	NaturalFrequency float64
	// DampingRatio, 1 is critically damped
	DampingRatio float64
}

// SpringSettingsBundle holds one SpringSettings per lane
type SpringSettingsBundle struct {
	NaturalFrequency bundle.Scalar
	DampingRatio     bundle.Scalar
}

func (s *SpringSettingsBundle) Get(lane int) SpringSettings {
	return SpringSettings{NaturalFrequency: s.NaturalFrequency[lane], DampingRatio: s.DampingRatio[lane]}
}

func (s *SpringSettingsBundle) Set(lane int, settings SpringSettings) {
	s.NaturalFrequency[lane] = settings.NaturalFrequency
	s.DampingRatio[lane] = settings.DampingRatio
}

func (s *SpringSettingsBundle) CopyLane(lane int, source *SpringSettingsBundle, sourceLane int) {
	s.NaturalFrequency.CopyLane(lane, &source.NaturalFrequency, sourceLane)
	s.DampingRatio.CopyLane(lane, &source.DampingRatio, sourceLane)
}

func (s *SpringSettingsBundle) ClearLane(lane int) {
	s.NaturalFrequency.ClearLane(lane)
	s.DampingRatio.ClearLane(lane)
}

// ComputeSpringiness converts spring settings into the scale from position error to bias velocity,
// the scale applied to the effective mass and the scale applied to the accumulated impulse.
func ComputeSpringiness(settings SpringSettings, dt float64) (positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale float64) {
	frequencyDt := settings.NaturalFrequency * dt
	twiceDampingRatio := settings.DampingRatio * 2
	if frequencyDt <= 0 {
		// no stiffness at all, the constraint never pushes back
		return 0, 0, 1
	}
	positionErrorToVelocity = settings.NaturalFrequency / (frequencyDt + twiceDampingRatio)
	extra := 1 / (frequencyDt * (frequencyDt + twiceDampingRatio))
	effectiveMassCFMScale = 1 / (1 + extra)
	softnessImpulseScale = extra * effectiveMassCFMScale

	return positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale
}
