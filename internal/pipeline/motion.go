package pipeline

// ComputeMotion branches on media type: kinematics for video, a structural
// position block for photos.
func ComputeMotion(r *Rand, det Detection, meta Metadata) Motion {
	if meta.MediaType == MediaPhoto {
		return Motion{Structural: structural(r)}
	}
	return Motion{Kinematics: kinematics(r, det.TrackingAccuracy/100)}
}

func kinematics(r *Rand, trackingQuality float64) *Kinematics {
	baseSpeed := 20 + trackingQuality*40
	vcl := Round2(baseSpeed + r.Uniform(0, 35) + 25)
	vsl := Round2(vcl * r.Uniform(0.6, 0.85))
	vap := Round2(vcl * r.Uniform(0.7, 0.88))
	return &Kinematics{
		VCL:                  vcl,
		VSL:                  vsl,
		VAP:                  vap,
		LIN:                  Round2(vsl / vcl),
		STR:                  Round2(vsl / vap),
		WOB:                  Round2(vap / vcl),
		ALH:                  Round2(r.Uniform(2.5, 5)),
		BCF:                  Round2(r.Uniform(15, 25)),
		HyperactivationIndex: Round2(r.Uniform(10, 40)),
	}
}

func structural(r *Rand) *Structural {
	return &Structural{
		SpatialDistribution: SpatialDistribution{
			ClusteringCoefficient:   Round2(r.Uniform(0.3, 0.7)),
			DispersionIndex:         Round2(r.Uniform(0.8, 2.3)),
			NearestNeighborDistance: Round2(r.Uniform(15, 35)),
		},
		OrientationAnalysis: OrientationAnalysis{
			AlignmentCoefficient: Round2(r.Uniform(0.2, 0.8)),
			AngularDistribution:  Round2(r.Uniform(30, 75)),
		},
		MorphometricFeatures: MorphometricFeatures{
			HeadAreaAvg:      Round2(r.Uniform(4, 6)),
			LengthWidthRatio: Round2(r.Uniform(1.3, 1.8)),
			SymmetryIndex:    Round2(r.Uniform(0.8, 1.0)),
		},
		QualityIndicators: QualityIndicators{
			ImageClarity:    Round2(r.Uniform(85, 100)),
			ContrastQuality: Round2(r.Uniform(80, 100)),
			FocusScore:      Round2(r.Uniform(88, 100)),
		},
	}
}
