package analyses

import "casa-backend/internal/pipeline"

// Interpret applies the WHO 2010 reference thresholds. Concentration is in
// millions per ml.
func Interpret(m pipeline.Motility, normal int, concentration int64) MedicalInterpretation {
	return MedicalInterpretation{
		OverallAssessment:    overallAssessment(m.TotalMotile, normal, concentration),
		FertilityIndicators:  fertilityIndicators(m.Progressive, normal, concentration),
		ClinicalSignificance: clinicalSignificance(m.TotalMotile, normal),
		Recommendations:      recommendations(m.TotalMotile, normal, concentration),
	}
}

func overallAssessment(totalMotile, normal int, concentration int64) string {
	switch {
	case totalMotile >= 40 && normal >= 4 && concentration >= 15:
		return "normal_parameters"
	case totalMotile >= 32 && normal >= 3 && concentration >= 10:
		return "borderline_normal"
	default:
		return "abnormal_parameters"
	}
}

func fertilityIndicators(progressive, normal int, concentration int64) []string {
	out := []string{}
	if progressive >= 32 {
		out = append(out, "adequate_progressive_motility")
	}
	if normal >= 4 {
		out = append(out, "normal_morphology_percentage")
	}
	if concentration >= 15 {
		out = append(out, "adequate_concentration")
	}
	return out
}

func clinicalSignificance(totalMotile, normal int) string {
	switch {
	case totalMotile >= 40 && normal >= 4:
		return "good_fertility_potential"
	case totalMotile >= 32 || normal >= 3:
		return "moderate_fertility_potential"
	default:
		return "reduced_fertility_potential"
	}
}

func recommendations(totalMotile, normal int, concentration int64) []string {
	var out []string
	if totalMotile < 40 {
		out = append(out, "lifestyle_modifications_for_motility")
	}
	if normal < 4 {
		out = append(out, "antioxidant_therapy_consideration")
	}
	if concentration < 15 {
		out = append(out, "hormonal_evaluation_recommended")
	}
	return append(out, "repeat_analysis_in_2-3_months")
}
