// Package thresholds holds the scoring engine's tunable constants.
package thresholds

// Thresholds groups every ok/bad/max-penalty triple the scoring engine
// reads. It is a flat, immutable record: passing it by value is always
// safe because the scoring engine never mutates it.
type Thresholds struct {
	SwimWaveOkM   float64
	SwimWaveBadM  float64
	SwimWaveMax   float64

	SwimDogWaveOkM  float64
	SwimDogWaveBadM float64
	SwimDogWaveMax  float64

	RunHeatOkC  float64
	RunHeatBadC float64
	RunHeatMax  float64

	SwimHeatOkC  float64
	SwimHeatBadC float64
	SwimHeatMax  float64

	SwimColdOkC  float64
	SwimColdBadC float64
	SwimColdMax  float64

	DogSwimHeatOkC  float64
	DogSwimHeatBadC float64
	DogSwimHeatMax  float64

	UVOk            float64
	UVBad           float64
	UVRunMax        float64
	UVSwimDogMax    float64

	AQIOk      float64
	AQIBad     float64
	AQISwimMax float64
	AQIRunMax  float64

	WindOkMS    float64
	WindBadMS   float64
	WindSwimMax float64
	WindRunMax  float64

	RainProbOkPct  float64
	RainProbBadPct float64
	RainRunMax     float64

	RainGateMM        float64
	RainGateProbPct   float64
	WindGateMS        float64
	DogHeatGateC      float64
	DogHeatCompoundC  float64
	DogHeatCompoundUV float64

	DogMultiplier float64
}

// balanced is the authoritative preset (the only one shipped). Alternate
// presets can be constructed the same way without changing the scoring
// engine.
var balanced = Thresholds{
	SwimWaveOkM: 0.3, SwimWaveBadM: 1.5, SwimWaveMax: 70,

	SwimDogWaveOkM: 0.3, SwimDogWaveBadM: 1.0, SwimDogWaveMax: 80,

	RunHeatOkC: 26, RunHeatBadC: 38, RunHeatMax: 60,

	SwimHeatOkC: 28, SwimHeatBadC: 40, SwimHeatMax: 10,

	SwimColdOkC: 18, SwimColdBadC: 10, SwimColdMax: 15,

	DogSwimHeatOkC: 24, DogSwimHeatBadC: 34, DogSwimHeatMax: 20,

	UVOk: 4, UVBad: 10, UVRunMax: 25, UVSwimDogMax: 15,

	AQIOk: 40, AQIBad: 120, AQISwimMax: 25, AQIRunMax: 40,

	WindOkMS: 7, WindBadMS: 14, WindSwimMax: 15, WindRunMax: 12,

	RainProbOkPct: 30, RainProbBadPct: 79, RainRunMax: 10,

	RainGateMM: 3.0, RainGateProbPct: 80, WindGateMS: 14.0,
	DogHeatGateC: 29.0, DogHeatCompoundC: 26.0, DogHeatCompoundUV: 8.0,

	DogMultiplier: 1.2,
}

// Balanced returns a copy of the balanced preset. The struct has no pointer
// fields, so the caller cannot mutate the shared constants through it.
func Balanced() Thresholds {
	return balanced
}
