// Package scoring implements the pure, I/O-free scoring engine: one hour of
// normalized forecast data in, four mode scores out.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
	"github.com/dl-alexandre/gonow-ingest/internal/thresholds"
)

// factorPriority breaks ties between equally-penalizing factors when
// selecting the top reason chips.
var factorPriority = []string{"rain", "heat", "waves", "uv", "aqi", "wind", "cold"}

// ReasonChip is a short explanatory tuple attached to a mode result.
type ReasonChip struct {
	Factor  string
	Text    string
	Emoji   string // check | warning | danger | info
	Penalty int
}

// ModeScore is one mode's verdict for an hour.
type ModeScore struct {
	Score     int
	Label     string
	Reasons   []ReasonChip
	HardGated bool
}

// Output is the scoring engine's result for one hour across all four modes.
type Output struct {
	HourUTC        model.HourData
	ScoringVersion string
	SwimSolo       ModeScore
	SwimDog        ModeScore
	RunSolo        ModeScore
	RunDog         ModeScore
}

// penalty is an internal (factor, penalty, text) tuple. Negative penalties
// subtract from the starting score of 100; zero-penalty tuples double as
// "data unavailable" info chips (when the text contains "unavailable") or
// as neutral facts available to pad the chip list.
type penalty struct {
	factor  string
	value   int
	text    string
}

// Score computes the four mode scores for a single hour against t.
func Score(hour model.HourData, t thresholds.Thresholds) Output {
	return Output{
		HourUTC:        hour,
		ScoringVersion: "score_v2",
		SwimSolo:       scoreSwimSolo(hour, t),
		SwimDog:        scoreSwimDog(hour, t),
		RunSolo:        scoreRunSolo(hour, t),
		RunDog:         scoreRunDog(hour, t),
	}
}

func scoreToLabel(score int) string {
	switch {
	case score >= 85:
		return "Perfect"
	case score >= 70:
		return "Good"
	case score >= 45:
		return "Meh"
	case score >= 20:
		return "Bad"
	default:
		return "Nope"
	}
}

// linearPenalty implements the piecewise-linear ramp. ok < bad is the
// rising direction (heat, waves, UV, AQI, wind, rain); ok > bad is the
// falling direction (cold only).
func linearPenalty(value, ok, bad, max float64) float64 {
	if ok < bad {
		switch {
		case value <= ok:
			return 0
		case value >= bad:
			return max
		default:
			return max * (value - ok) / (bad - ok)
		}
	}
	switch {
	case value >= ok:
		return 0
	case value <= bad:
		return max
	default:
		return max * (ok - value) / (ok - bad)
	}
}

func isRainGated(hour model.HourData, t thresholds.Thresholds) bool {
	if hour.PrecipMM != nil && *hour.PrecipMM >= t.RainGateMM {
		return true
	}
	if hour.PrecipProbPct != nil && float64(*hour.PrecipProbPct) >= t.RainGateProbPct {
		return true
	}
	return false
}

func isWindGated(hour model.HourData, t thresholds.Thresholds) bool {
	return hour.GustMS != nil && *hour.GustMS >= t.WindGateMS
}

func isDogHeatGated(hour model.HourData, t thresholds.Thresholds) bool {
	if hour.FeelslikeC == nil {
		return false
	}
	basic := *hour.FeelslikeC >= t.DogHeatGateC
	compound := hour.UVIndex != nil && *hour.UVIndex >= t.DogHeatCompoundUV && *hour.FeelslikeC >= t.DogHeatCompoundC
	return basic || compound
}

func rainGateChip(hour model.HourData, t thresholds.Thresholds) ReasonChip {
	if hour.PrecipMM != nil && *hour.PrecipMM >= t.RainGateMM {
		return ReasonChip{Factor: "rain", Text: "Heavy rain", Emoji: "danger"}
	}
	return ReasonChip{Factor: "rain", Text: "Rain very likely", Emoji: "danger"}
}

func sunsetMultiplier(hour model.HourData) float64 {
	if hour.SunsetUTC == nil {
		return 1.0
	}
	delta := hour.HourUTC.Sub(*hour.SunsetUTC).Seconds()
	switch {
	case delta <= 0:
		return 1.0
	case delta >= 1800:
		return 0.0
	default:
		return 1.0 - delta/1800
	}
}

func wavesText(value float64, p int) string {
	if p >= 50 {
		return fmt.Sprintf("Waves %gm — rough", value)
	}
	return fmt.Sprintf("Waves %gm", value)
}

func wavesDogText(value float64, p int) string {
	if p >= 50 {
		return "Waves too rough for dog"
	}
	return fmt.Sprintf("Waves %gm — watch your dog", value)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func scoreSwimSolo(hour model.HourData, t thresholds.Thresholds) ModeScore {
	if isRainGated(hour, t) {
		return ModeScore{Score: 0, Label: "Nope", HardGated: true, Reasons: []ReasonChip{rainGateChip(hour, t)}}
	}

	var penalties []penalty

	if hour.WaveHeightM != nil {
		p := linearPenalty(*hour.WaveHeightM, t.SwimWaveOkM, t.SwimWaveBadM, t.SwimWaveMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"waves", -rp, wavesText(*hour.WaveHeightM, rp)})
		}
	} else {
		penalties = append(penalties, penalty{"waves", 0, "Wave data unavailable"})
	}

	if hour.GustMS != nil {
		p := linearPenalty(*hour.GustMS, t.WindOkMS, t.WindBadMS, t.WindSwimMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"wind", -rp, fmt.Sprintf("Gusty %.0fm/s", *hour.GustMS)})
		}
	} else {
		penalties = append(penalties, penalty{"wind", 0, "Wind data unavailable"})
	}

	if hour.EuAQI != nil {
		p := linearPenalty(float64(*hour.EuAQI), t.AQIOk, t.AQIBad, t.AQISwimMax)
		if p > 0 {
			rp := roundInt(p)
			text := "AQI moderate"
			if p >= t.AQISwimMax*0.7 {
				text = "Air quality poor"
			}
			penalties = append(penalties, penalty{"aqi", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"aqi", 0, "AQI data unavailable"})
	}

	if hour.FeelslikeC != nil {
		pHeat := linearPenalty(*hour.FeelslikeC, t.SwimHeatOkC, t.SwimHeatBadC, t.SwimHeatMax)
		pCold := linearPenalty(*hour.FeelslikeC, t.SwimColdOkC, t.SwimColdBadC, t.SwimColdMax)
		switch {
		case pCold > 0:
			rp := roundInt(pCold)
			penalties = append(penalties, penalty{"cold", -rp, fmt.Sprintf("Chilly %.0f°C", *hour.FeelslikeC)})
		case pHeat > 0:
			rp := roundInt(pHeat)
			penalties = append(penalties, penalty{"heat", -rp, fmt.Sprintf("Hot %.0f°C", *hour.FeelslikeC)})
		}
	} else {
		penalties = append(penalties, penalty{"heat", 0, "Temp data unavailable"})
	}

	if hour.UVIndex == nil {
		penalties = append(penalties, penalty{"uv", 0, "UV data unavailable"})
	}

	score := clampScore(100 + sumPenalties(penalties))

	sunMult := sunsetMultiplier(hour)
	if sunMult == 0.0 {
		return ModeScore{
			Score: 0, Label: "Nope", HardGated: true,
			Reasons: []ReasonChip{{Factor: "dark", Text: "After dark — no night swimming", Emoji: "danger", Penalty: 100}},
		}
	}
	if sunMult < 1.0 {
		score = int(math.Max(0, float64(score)*sunMult))
	}

	return ModeScore{Score: score, Label: scoreToLabel(score), Reasons: buildReasonChips(penalties, score, "swim_solo")}
}

func scoreSwimDog(hour model.HourData, t thresholds.Thresholds) ModeScore {
	if isRainGated(hour, t) {
		return ModeScore{Score: 0, Label: "Nope", HardGated: true, Reasons: []ReasonChip{rainGateChip(hour, t)}}
	}

	var penalties []penalty

	if hour.WaveHeightM != nil {
		p := linearPenalty(*hour.WaveHeightM, t.SwimDogWaveOkM, t.SwimDogWaveBadM, t.SwimDogWaveMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"waves", -rp, wavesDogText(*hour.WaveHeightM, rp)})
		}
	} else {
		penalties = append(penalties, penalty{"waves", 0, "Wave data unavailable"})
	}

	if hour.GustMS != nil {
		p := linearPenalty(*hour.GustMS, t.WindOkMS, t.WindBadMS, t.WindSwimMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"wind", -rp, fmt.Sprintf("Gusty %.0fm/s", *hour.GustMS)})
		}
	} else {
		penalties = append(penalties, penalty{"wind", 0, "Wind data unavailable"})
	}

	if hour.EuAQI != nil {
		p := linearPenalty(float64(*hour.EuAQI), t.AQIOk, t.AQIBad, t.AQISwimMax)
		if p > 0 {
			rp := roundInt(p)
			text := "AQI moderate"
			if p >= t.AQISwimMax*0.7 {
				text = "Air quality poor"
			}
			penalties = append(penalties, penalty{"aqi", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"aqi", 0, "AQI data unavailable"})
	}

	if hour.FeelslikeC != nil {
		p := linearPenalty(*hour.FeelslikeC, t.DogSwimHeatOkC, t.DogSwimHeatBadC, t.DogSwimHeatMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"heat", -rp, "Warm for paws"})
		}
	} else {
		penalties = append(penalties, penalty{"heat", 0, "Temp data unavailable"})
	}

	if hour.UVIndex != nil {
		p := linearPenalty(*hour.UVIndex, t.UVOk, t.UVBad, t.UVSwimDogMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"uv", -rp, "UV elevated"})
		}
	} else {
		penalties = append(penalties, penalty{"uv", 0, "UV data unavailable"})
	}

	score := clampScore(100 + sumPenalties(penalties))

	sunMult := sunsetMultiplier(hour)
	if sunMult == 0.0 {
		return ModeScore{
			Score: 0, Label: "Nope", HardGated: true,
			Reasons: []ReasonChip{{Factor: "dark", Text: "After dark — no night swimming", Emoji: "danger", Penalty: 100}},
		}
	}
	if sunMult < 1.0 {
		score = int(math.Max(0, float64(score)*sunMult))
	}

	return ModeScore{Score: score, Label: scoreToLabel(score), Reasons: buildReasonChips(penalties, score, "swim_dog")}
}

func scoreRunSolo(hour model.HourData, t thresholds.Thresholds) ModeScore {
	if isRainGated(hour, t) {
		return ModeScore{Score: 0, Label: "Nope", HardGated: true, Reasons: []ReasonChip{rainGateChip(hour, t)}}
	}
	if isWindGated(hour, t) {
		return ModeScore{Score: 0, Label: "Nope", HardGated: true, Reasons: []ReasonChip{{Factor: "wind", Text: "Wind too strong", Emoji: "danger"}}}
	}

	var penalties []penalty

	if hour.FeelslikeC != nil {
		p := linearPenalty(*hour.FeelslikeC, t.RunHeatOkC, t.RunHeatBadC, t.RunHeatMax)
		if p > 0 {
			rp := roundInt(p)
			text := fmt.Sprintf("Warm %.0f°C", *hour.FeelslikeC)
			if p >= t.RunHeatMax*0.8 {
				text = "Too hot to run"
			}
			penalties = append(penalties, penalty{"heat", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"heat", 0, "Temp data unavailable"})
	}

	if hour.UVIndex != nil {
		p := linearPenalty(*hour.UVIndex, t.UVOk, t.UVBad, t.UVRunMax)
		if p > 0 {
			rp := roundInt(p)
			text := "UV elevated"
			if p >= t.UVRunMax*0.7 {
				text = "UV very high"
			}
			penalties = append(penalties, penalty{"uv", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"uv", 0, "UV data unavailable"})
	}

	if hour.EuAQI != nil {
		p := linearPenalty(float64(*hour.EuAQI), t.AQIOk, t.AQIBad, t.AQIRunMax)
		if p > 0 {
			rp := roundInt(p)
			text := "AQI moderate"
			if p >= t.AQIRunMax*0.7 {
				text = "Air quality poor"
			}
			penalties = append(penalties, penalty{"aqi", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"aqi", 0, "AQI data unavailable"})
	}

	if hour.GustMS != nil {
		p := linearPenalty(*hour.GustMS, t.WindOkMS, t.WindBadMS, t.WindRunMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"wind", -rp, fmt.Sprintf("Gusty %.0fm/s", *hour.GustMS)})
		}
	} else {
		penalties = append(penalties, penalty{"wind", 0, "Wind data unavailable"})
	}

	if hour.PrecipProbPct != nil {
		p := linearPenalty(float64(*hour.PrecipProbPct), t.RainProbOkPct, t.RainProbBadPct, t.RainRunMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"rain", -rp, "Rain possible"})
		}
	}

	score := clampScore(100 + sumPenalties(penalties))
	return ModeScore{Score: score, Label: scoreToLabel(score), Reasons: buildReasonChips(penalties, score, "run_solo")}
}

func scoreRunDog(hour model.HourData, t thresholds.Thresholds) ModeScore {
	if isRainGated(hour, t) {
		return ModeScore{Score: 0, Label: "Nope", HardGated: true, Reasons: []ReasonChip{rainGateChip(hour, t)}}
	}
	if isWindGated(hour, t) {
		return ModeScore{Score: 0, Label: "Nope", HardGated: true, Reasons: []ReasonChip{{Factor: "wind", Text: "Wind too strong", Emoji: "danger"}}}
	}
	if isDogHeatGated(hour, t) {
		return ModeScore{Score: 0, Label: "Nope", HardGated: true, Reasons: []ReasonChip{{Factor: "heat", Text: "Too hot for dog", Emoji: "danger"}}}
	}

	var penalties []penalty
	dogMult := t.DogMultiplier

	if hour.FeelslikeC != nil {
		p := linearPenalty(*hour.FeelslikeC, t.RunHeatOkC, t.RunHeatBadC, t.RunHeatMax) * dogMult
		if p > 0 {
			rp := roundInt(p)
			text := fmt.Sprintf("Warm %.0f°C", *hour.FeelslikeC)
			if p >= t.RunHeatMax*dogMult*0.8 {
				text = "Too hot to run"
			}
			penalties = append(penalties, penalty{"heat", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"heat", 0, "Temp data unavailable"})
	}

	if hour.UVIndex != nil {
		p := linearPenalty(*hour.UVIndex, t.UVOk, t.UVBad, t.UVRunMax) * dogMult
		if p > 0 {
			rp := roundInt(p)
			text := "UV elevated"
			if p >= t.UVRunMax*dogMult*0.7 {
				text = "UV very high"
			}
			penalties = append(penalties, penalty{"uv", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"uv", 0, "UV data unavailable"})
	}

	if hour.EuAQI != nil {
		p := linearPenalty(float64(*hour.EuAQI), t.AQIOk, t.AQIBad, t.AQIRunMax) * dogMult
		if p > 0 {
			rp := roundInt(p)
			text := "AQI moderate"
			if p >= t.AQIRunMax*dogMult*0.7 {
				text = "Air quality poor"
			}
			penalties = append(penalties, penalty{"aqi", -rp, text})
		}
	} else {
		penalties = append(penalties, penalty{"aqi", 0, "AQI data unavailable"})
	}

	if hour.GustMS != nil {
		p := linearPenalty(*hour.GustMS, t.WindOkMS, t.WindBadMS, t.WindRunMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"wind", -rp, fmt.Sprintf("Gusty %.0fm/s", *hour.GustMS)})
		}
	} else {
		penalties = append(penalties, penalty{"wind", 0, "Wind data unavailable"})
	}

	if hour.PrecipProbPct != nil {
		p := linearPenalty(float64(*hour.PrecipProbPct), t.RainProbOkPct, t.RainProbBadPct, t.RainRunMax)
		if p > 0 {
			rp := roundInt(p)
			penalties = append(penalties, penalty{"rain", -rp, "Rain possible"})
		}
	}

	score := clampScore(100 + sumPenalties(penalties))
	return ModeScore{Score: score, Label: scoreToLabel(score), Reasons: buildReasonChips(penalties, score, "run_dog")}
}

func sumPenalties(penalties []penalty) int {
	total := 0
	for _, p := range penalties {
		total += p.value
	}
	return total
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func factorPriorityIndex(factor string) int {
	for i, f := range factorPriority {
		if f == factor {
			return i
		}
	}
	return len(factorPriority) + 1
}

// buildReasonChips assembles the 2-5 chips attached to a non-gated mode
// result: top negative penalties first, then an optional positive chip,
// then info chips for missing data, then padding to guarantee a minimum
// of two.
func buildReasonChips(penalties []penalty, score int, mode string) []ReasonChip {
	var negative []penalty
	var infoChips []penalty
	var zeroFactors []penalty

	for _, p := range penalties {
		switch {
		case p.value < 0:
			negative = append(negative, p)
		case p.value == 0 && containsUnavailable(p.text):
			infoChips = append(infoChips, p)
		default:
			zeroFactors = append(zeroFactors, p)
		}
	}

	sort.SliceStable(negative, func(i, j int) bool {
		ai, aj := abs(negative[i].value), abs(negative[j].value)
		if ai != aj {
			return ai > aj
		}
		return factorPriorityIndex(negative[i].factor) < factorPriorityIndex(negative[j].factor)
	})

	if len(negative) > 4 {
		negative = negative[:4]
	}

	var chips []ReasonChip
	for _, p := range negative {
		emoji := "warning"
		if abs(p.value) >= 30 {
			emoji = "danger"
		}
		chips = append(chips, ReasonChip{Factor: p.factor, Text: p.text, Emoji: emoji, Penalty: p.value})
	}

	if score >= 70 {
		if positive := selectPositiveChip(penalties, mode); positive != nil {
			chips = append(chips, *positive)
		}
	}

	for _, p := range infoChips {
		if len(chips) >= 5 {
			break
		}
		chips = append(chips, ReasonChip{Factor: p.factor, Text: p.text, Emoji: "info"})
	}

	if len(chips) < 2 {
		for _, p := range zeroFactors {
			if len(chips) >= 2 {
				break
			}
			if hasFactor(chips, p.factor) {
				continue
			}
			chips = append(chips, ReasonChip{Factor: p.factor, Text: p.text, Emoji: "check"})
		}
	}

	if len(chips) < 2 && score >= 70 {
		generic := []ReasonChip{
			{Factor: "wind", Text: "Calm wind", Emoji: "check"},
			{Factor: "aqi", Text: "Air quality good", Emoji: "check"},
		}
		for _, g := range generic {
			if len(chips) >= 2 {
				break
			}
			if hasFactor(chips, g.Factor) {
				continue
			}
			chips = append(chips, g)
		}
	}

	if len(chips) > 5 {
		chips = chips[:5]
	}
	return chips
}

func selectPositiveChip(penalties []penalty, mode string) *ReasonChip {
	penalized := map[string]bool{}
	info := map[string]bool{}
	for _, p := range penalties {
		if p.value < 0 {
			penalized[p.factor] = true
		} else if p.value == 0 && containsUnavailable(p.text) {
			info[p.factor] = true
		}
	}

	isSwim := mode == "swim_solo" || mode == "swim_dog"

	var candidates []ReasonChip
	if isSwim {
		candidates = append(candidates, ReasonChip{Factor: "waves", Text: "Waves calm", Emoji: "check"})
	}
	candidates = append(candidates,
		ReasonChip{Factor: "heat", Text: "Nice temperature", Emoji: "check"},
		ReasonChip{Factor: "uv", Text: "UV low", Emoji: "check"},
		ReasonChip{Factor: "aqi", Text: "Air quality good", Emoji: "check"},
		ReasonChip{Factor: "wind", Text: "Calm wind", Emoji: "check"},
	)

	for _, c := range candidates {
		if !penalized[c.Factor] && !info[c.Factor] {
			chip := c
			return &chip
		}
	}
	return nil
}

func hasFactor(chips []ReasonChip, factor string) bool {
	for _, c := range chips {
		if c.Factor == factor {
			return true
		}
	}
	return false
}

func containsUnavailable(text string) bool {
	return len(text) >= 11 && (text[len(text)-11:] == "unavailable")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
