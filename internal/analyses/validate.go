package analyses

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"casa-backend/internal/pipeline"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(reportRules, Report{})
	return v
}

// reportRules enforces the cross-field invariants tags cannot express.
func reportRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(Report)

	m := r.Motility
	if m.Progressive+m.NonProgressive+m.Immotile != 100 {
		sl.ReportError(m, "Motility", "motility", "sum100", "")
	}
	if m.TotalMotile != m.Progressive+m.NonProgressive {
		sl.ReportError(m.TotalMotile, "TotalMotile", "total_motile", "motile_sum", "")
	}
	if r.Morphology.Normal+r.Morphology.Abnormal != 100 {
		sl.ReportError(r.Morphology, "Morphology", "morphology", "sum100", "")
	}

	switch r.MediaType {
	case pipeline.MediaVideo:
		k := r.MotionParameters.Kinematics
		if k == nil || r.MotionParameters.Structural != nil {
			sl.ReportError(r.MotionParameters, "MotionParameters", "motion_parameters", "video_kinematics", "")
			return
		}
		if k.VSL > k.VCL || k.VAP > k.VCL {
			sl.ReportError(k.VSL, "VSL", "vsl", "lte_vcl", "")
		}
	case pipeline.MediaPhoto:
		if r.MotionParameters.Structural == nil || r.MotionParameters.Kinematics != nil {
			sl.ReportError(r.MotionParameters, "MotionParameters", "motion_parameters", "photo_structural", "")
		}
		if r.SpeedAvg != 0 {
			sl.ReportError(r.SpeedAvg, "SpeedAvg", "speed_avg", "photo_no_speed", "")
		}
	}
}

// ValidateReport checks a report against its schema rules.
func ValidateReport(r Report) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid report: %s", strings.Join(fields, ", "))
	}
	return err
}
