package scoring

import (
	"testing"
	"time"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
	"github.com/dl-alexandre/gonow-ingest/internal/thresholds"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func baseHour() model.HourData {
	noon := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	sunset := noon.Add(6 * time.Hour)
	return model.HourData{
		HourUTC:       noon,
		WaveHeightM:   ptrF(0.2),
		FeelslikeC:    ptrF(24),
		GustMS:        ptrF(2),
		PrecipProbPct: ptrI(5),
		PrecipMM:      ptrF(0),
		UVIndex:       ptrF(2),
		EuAQI:         ptrI(20),
		SunsetUTC:     &sunset,
	}
}

func TestLinearPenaltyRising(t *testing.T) {
	if p := linearPenalty(5, 10, 20, 100); p != 0 {
		t.Errorf("below ok: got %v, want 0", p)
	}
	if p := linearPenalty(25, 10, 20, 100); p != 100 {
		t.Errorf("above bad: got %v, want 100", p)
	}
	if p := linearPenalty(15, 10, 20, 100); p != 50 {
		t.Errorf("midpoint: got %v, want 50", p)
	}
}

func TestLinearPenaltyFalling(t *testing.T) {
	if p := linearPenalty(20, 18, 10, 15); p != 0 {
		t.Errorf("above ok: got %v, want 0", p)
	}
	if p := linearPenalty(5, 18, 10, 15); p != 15 {
		t.Errorf("below bad: got %v, want 15", p)
	}
	if p := linearPenalty(14, 18, 10, 15); p != 7.5 {
		t.Errorf("midpoint: got %v, want 7.5", p)
	}
}

func TestScoreToLabelBoundaries(t *testing.T) {
	cases := map[int]string{100: "Perfect", 85: "Perfect", 84: "Good", 70: "Good", 69: "Meh", 45: "Meh", 44: "Bad", 20: "Bad", 19: "Nope", 0: "Nope"}
	for score, want := range cases {
		if got := scoreToLabel(score); got != want {
			t.Errorf("scoreToLabel(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestScoreClampNeverNegativeOrOver100(t *testing.T) {
	if clampScore(-50) != 0 {
		t.Error("expected clamp to 0")
	}
	if clampScore(150) != 100 {
		t.Error("expected clamp to 100")
	}
}

func TestAllAbsentScoresPerfectOrNeutral(t *testing.T) {
	hour := model.HourData{HourUTC: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)}
	out := Score(hour, thresholds.Balanced())
	if out.SwimSolo.Score != 100 {
		t.Errorf("swim_solo score = %d, want 100", out.SwimSolo.Score)
	}
	if out.RunSolo.Score != 100 {
		t.Errorf("run_solo score = %d, want 100", out.RunSolo.Score)
	}
	if len(out.SwimSolo.Reasons) < 2 || len(out.SwimSolo.Reasons) > 5 {
		t.Errorf("swim_solo reasons count = %d, want 2-5", len(out.SwimSolo.Reasons))
	}
}

func TestChipCountAlwaysBetween2And5(t *testing.T) {
	t_ := thresholds.Balanced()
	hours := []model.HourData{baseHour()}
	h2 := baseHour()
	h2.WaveHeightM = ptrF(2.0)
	h2.GustMS = ptrF(10)
	h2.EuAQI = ptrI(100)
	hours = append(hours, h2)
	for _, h := range hours {
		out := Score(h, t_)
		for _, m := range []ModeScore{out.SwimSolo, out.SwimDog, out.RunSolo, out.RunDog} {
			if m.HardGated {
				continue
			}
			if len(m.Reasons) < 2 || len(m.Reasons) > 5 {
				t.Errorf("reason chip count = %d, want 2-5", len(m.Reasons))
			}
		}
	}
}

func TestGateImpliesSingleSentinelChip(t *testing.T) {
	hour := baseHour()
	hour.PrecipMM = ptrF(5.0)
	out := Score(hour, thresholds.Balanced())
	if !out.SwimSolo.HardGated || out.SwimSolo.Score != 0 || out.SwimSolo.Label != "Nope" {
		t.Errorf("expected rain-gated swim_solo, got %+v", out.SwimSolo)
	}
	if len(out.SwimSolo.Reasons) != 1 {
		t.Errorf("gated reasons = %d, want 1", len(out.SwimSolo.Reasons))
	}
}

func TestPerfectHourScoresPerfectAcrossModes(t *testing.T) {
	out := Score(baseHour(), thresholds.Balanced())
	for name, m := range map[string]ModeScore{
		"swim_solo": out.SwimSolo, "swim_dog": out.SwimDog, "run_solo": out.RunSolo, "run_dog": out.RunDog,
	} {
		if m.Score < 85 {
			t.Errorf("%s score = %d, want >=85", name, m.Score)
		}
	}
}

func TestRainGatesAllModesToZero(t *testing.T) {
	hour := baseHour()
	hour.PrecipMM = ptrF(4.0)
	out := Score(hour, thresholds.Balanced())
	for name, m := range map[string]ModeScore{
		"swim_solo": out.SwimSolo, "swim_dog": out.SwimDog, "run_solo": out.RunSolo, "run_dog": out.RunDog,
	} {
		if m.Score != 0 || !m.HardGated {
			t.Errorf("%s: expected rain-gated zero, got %+v", name, m)
		}
	}
}

func TestGustGatesRunModesOnly(t *testing.T) {
	hour := baseHour()
	hour.GustMS = ptrF(15)
	out := Score(hour, thresholds.Balanced())
	if !out.RunSolo.HardGated || out.RunSolo.Score != 0 {
		t.Errorf("run_solo should be wind-gated, got %+v", out.RunSolo)
	}
	if !out.RunDog.HardGated || out.RunDog.Score != 0 {
		t.Errorf("run_dog should be wind-gated, got %+v", out.RunDog)
	}
	if out.SwimSolo.HardGated {
		t.Errorf("swim_solo should not be wind-gated by gust, got %+v", out.SwimSolo)
	}
}

func TestDogHeatGatesRunDogOnly(t *testing.T) {
	hour := baseHour()
	hour.FeelslikeC = ptrF(30)
	out := Score(hour, thresholds.Balanced())
	if !out.RunDog.HardGated || out.RunDog.Score != 0 {
		t.Errorf("run_dog should be dog-heat-gated at feelslike=30, got %+v", out.RunDog)
	}
	if out.RunSolo.HardGated {
		t.Errorf("run_solo should not be dog-heat-gated, got %+v", out.RunSolo)
	}
}

func TestRunSoloExactlySeventyAtFeelslike32(t *testing.T) {
	hour := baseHour()
	hour.FeelslikeC = ptrF(32)
	out := Score(hour, thresholds.Balanced())
	if out.RunSolo.Score != 70 {
		t.Errorf("run_solo score = %d, want 70", out.RunSolo.Score)
	}
}

func TestWaveHeightScenario(t *testing.T) {
	hour := baseHour()
	hour.WaveHeightM = ptrF(0.85)
	out := Score(hour, thresholds.Balanced())
	if out.SwimSolo.Score != 68 {
		t.Errorf("swim_solo score = %d, want 68", out.SwimSolo.Score)
	}
	if out.SwimDog.Score != 37 {
		t.Errorf("swim_dog score = %d, want 37", out.SwimDog.Score)
	}
}

func TestFeelslike28RunScenario(t *testing.T) {
	hour := baseHour()
	hour.FeelslikeC = ptrF(28)
	out := Score(hour, thresholds.Balanced())
	if out.RunSolo.Score != 90 {
		t.Errorf("run_solo score = %d, want 90", out.RunSolo.Score)
	}
	if out.RunDog.Score != 88 {
		t.Errorf("run_dog score = %d, want 88", out.RunDog.Score)
	}
}

func TestAfterDarkGatesSwimModes(t *testing.T) {
	hour := baseHour()
	past := hour.HourUTC.Add(-1 * time.Hour)
	hour.SunsetUTC = &past
	out := Score(hour, thresholds.Balanced())
	if !out.SwimSolo.HardGated || out.SwimSolo.Reasons[0].Factor != "dark" {
		t.Errorf("expected after-dark gate on swim_solo, got %+v", out.SwimSolo)
	}
	if !out.SwimDog.HardGated {
		t.Errorf("expected after-dark gate on swim_dog, got %+v", out.SwimDog)
	}
}

func TestSunsetMultiplierDampensNearDusk(t *testing.T) {
	hour := baseHour()
	soon := hour.HourUTC.Add(-15 * time.Minute)
	hour.SunsetUTC = &soon
	out := Score(hour, thresholds.Balanced())
	if out.SwimSolo.HardGated {
		t.Fatalf("should not be hard-gated 15 min after sunset")
	}
	if out.SwimSolo.Score >= 100 {
		t.Errorf("expected dampened score near dusk, got %d", out.SwimSolo.Score)
	}
}

func TestMonotonicWorseConditionsNeverIncreaseScore(t *testing.T) {
	t_ := thresholds.Balanced()
	mild := baseHour()
	mild.EuAQI = ptrI(30)
	severe := baseHour()
	severe.EuAQI = ptrI(100)
	mildOut := Score(mild, t_)
	severeOut := Score(severe, t_)
	if severeOut.RunSolo.Score > mildOut.RunSolo.Score {
		t.Errorf("worse AQI increased score: mild=%d severe=%d", mildOut.RunSolo.Score, severeOut.RunSolo.Score)
	}
}

func TestIdempotentScoring(t *testing.T) {
	hour := baseHour()
	t_ := thresholds.Balanced()
	first := Score(hour, t_)
	second := Score(hour, t_)
	if first.SwimSolo.Score != second.SwimSolo.Score || first.RunDog.Score != second.RunDog.Score {
		t.Error("scoring the same hour twice produced different results")
	}
}
