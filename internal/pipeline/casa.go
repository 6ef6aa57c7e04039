package pipeline

import "math"

// ComputeCASA derives concentration, motility and vitality from detection.
// Immotile is the remainder of the rounded categories so the three always
// sum to exactly 100.
func ComputeCASA(r *Rand, det Detection, mt MediaType) CASA {
	divisor := 100.0
	if mt == MediaVideo {
		divisor = r.Uniform(4, 7)
	}
	base := math.Round(float64(det.TotalDetected) / divisor)
	concentration := int64(math.Round(base / 1e6))

	mediaFactor := 0.7
	if mt == MediaVideo {
		mediaFactor = 1.0
	}
	trackingQuality := det.TrackingAccuracy / 100
	baseMotility := (40 + trackingQuality*30) * mediaFactor

	progressive := clamp(baseMotility+r.Uniform(-10, 10), 15, 65)
	nonProgressive := clamp(r.Uniform(0, 15)+10, 5, 25)
	p := int(math.Round(progressive))
	np := int(math.Round(nonProgressive))
	immotile := 100 - p - np

	vitality := r.IntRange(65, 85)
	if mt == MediaVideo {
		vitality = r.IntRange(70, 95)
	}

	return CASA{
		Concentration: concentration,
		TotalCount:    det.TotalDetected,
		Motility: Motility{
			Progressive:    p,
			NonProgressive: np,
			Immotile:       immotile,
			TotalMotile:    p + np,
		},
		Vitality: vitality,
		QualityAssurance: QualityAssurance{
			SampleQuality:    Round2(r.Uniform(85, 100)),
			TechnicalQuality: Round2(r.Uniform(88, 100)),
			StatisticalPower: Round2(r.Uniform(80, 100)),
		},
	}
}
