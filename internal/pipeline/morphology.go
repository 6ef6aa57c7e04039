package pipeline

import (
	"context"
	"math"
)

// MorphologyInput carries the detection result to classify.
type MorphologyInput struct {
	JobID     string
	Detection Detection
}

// RemoteMorphology asks the platform for morphology percentages. The
// normal share is clamped into the WHO reference range and abnormal is
// recomputed so the pair always sums to 100.
type RemoteMorphology struct {
	Platform Platform
	Rand     *Rand
}

func (m *RemoteMorphology) Provide(ctx context.Context, in MorphologyInput) (MorphologyResult, error) {
	resp, err := m.Platform.Morphology(ctx, koyebMorphologyRequest(in))
	if err != nil {
		return MorphologyResult{}, err
	}

	sim := simulateMorphology(m.Rand)
	normal := sim.Normal
	if resp.NormalPercentage > 0 && !math.IsNaN(resp.NormalPercentage) {
		normal = int(clamp(math.Round(resp.NormalPercentage), 4, 16))
	}
	out := MorphologyResult{
		Morphology: Morphology{
			Normal:          normal,
			Abnormal:        100 - normal,
			HeadDefects:     pickPercent(resp.HeadDefects, sim.HeadDefects),
			MidpieceDefects: pickPercent(resp.MidpieceDefects, sim.MidpieceDefects),
			TailDefects:     pickPercent(resp.TailDefects, sim.TailDefects),
			MultipleDefects: pickPercent(resp.MultipleDefects, sim.MultipleDefects),
		},
		ClassificationAccuracy: percentOr(resp.Accuracy, sim.ClassificationAccuracy),
	}
	return out, nil
}

// SimulatedMorphology synthesizes a bounded random classification.
type SimulatedMorphology struct {
	Rand *Rand
}

func (s *SimulatedMorphology) Provide(_ context.Context, _ MorphologyInput) (MorphologyResult, error) {
	out := simulateMorphology(s.Rand)
	out.Fallback = true
	return out, nil
}

func simulateMorphology(r *Rand) MorphologyResult {
	normal := r.IntRange(4, 16)
	return MorphologyResult{
		Morphology: Morphology{
			Normal:          normal,
			Abnormal:        100 - normal,
			HeadDefects:     r.IntRange(20, 45),
			MidpieceDefects: r.IntRange(10, 25),
			TailDefects:     r.IntRange(15, 35),
			MultipleDefects: r.IntRange(5, 15),
		},
		ClassificationAccuracy: Round2(r.Uniform(94, 100)),
	}
}

func pickPercent(remote float64, fallback int) int {
	if math.IsNaN(remote) || remote <= 0 {
		return fallback
	}
	return int(clamp(math.Round(remote), 0, 100))
}
