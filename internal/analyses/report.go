package analyses

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"casa-backend/internal/pipeline"
)

const StatusCompleted = "completed"

// Report is the persisted result of one orchestration run. It is immutable
// after creation and owned by UserID.
type Report struct {
	ID               string             `json:"id" validate:"required"`
	UserID           string             `json:"user_id" validate:"required"`
	Filename         string             `json:"filename" validate:"required"`
	OriginalFilename string             `json:"original_filename" validate:"required"`
	MediaURL         string             `json:"media_url" validate:"required"`
	MediaType        pipeline.MediaType `json:"media_type" validate:"oneof=video photo"`
	MediaDuration    float64            `json:"media_duration" validate:"gt=0"`
	FramesAnalyzed   int                `json:"frames_analyzed" validate:"gte=1"`
	ProcessingTime   float64            `json:"processing_time" validate:"gte=45,lte=80"`

	SpermCount       int64   `json:"sperm_count" validate:"gt=0"`
	Concentration    int64   `json:"concentration" validate:"gte=0"`
	TotalSpermNumber int64   `json:"total_sperm_number" validate:"gte=0"`
	Volume           float64 `json:"volume" validate:"gte=1.5,lte=4"`
	PH               float64 `json:"ph" validate:"gte=7.2,lte=8"`
	Vitality         int     `json:"vitality" validate:"min=0,max=100"`
	SpeedAvg         float64 `json:"speed_avg" validate:"gte=0"`

	Motility         pipeline.Motility   `json:"motility"`
	Morphology       pipeline.Morphology `json:"morphology"`
	MotionParameters MotionBlock         `json:"motion_parameters"`

	KoyebJobID       string  `json:"koyeb_job_id" validate:"required"`
	AnalysisMethod   string  `json:"analysis_method" validate:"required"`
	AIConfidence     float64 `json:"ai_confidence" validate:"gt=0,lte=100"`
	WHO2010Compliant bool    `json:"who_2010_compliant"`

	QualityControl         QualityControl         `json:"quality_control"`
	ProcessingDetails      map[string]string      `json:"processing_details" validate:"required"`
	KoyebProcessingDetails KoyebProcessingDetails `json:"koyeb_processing_details"`
	MedicalInterpretation  MedicalInterpretation  `json:"medical_interpretation"`
	StatisticalAnalysis    StatisticalAnalysis    `json:"statistical_analysis"`

	Status    string    `json:"status" validate:"eq=completed"`
	CreatedAt time.Time `json:"created_at"`
}

type QualityControl struct {
	DetectionAccuracy      float64 `json:"detection_accuracy" validate:"gt=0,lte=100"`
	MorphologyAccuracy     float64 `json:"morphology_accuracy" validate:"gt=0,lte=100"`
	ProcessingQualityScore float64 `json:"processing_quality_score" validate:"gte=88,lte=100"`
	RealAIProcessing       bool    `json:"real_ai_processing"`
	TechnicalValidation    bool    `json:"technical_validation"`
	MedicalGradeAnalysis   bool    `json:"medical_grade_analysis"`
}

type KoyebProcessingDetails struct {
	GPUEnabled           bool     `json:"gpu_enabled"`
	CloudDeployment      string   `json:"cloud_deployment"`
	ProcessingNode       string   `json:"processing_node"`
	RealAPIIntegration   bool     `json:"real_api_integration"`
	NvidiaGPUType        string   `json:"nvidia_gpu_type"`
	GPUUtilization       float64  `json:"gpu_utilization"`
	MemoryUsageGB        float64  `json:"memory_usage_gb"`
	ProcessingEfficiency float64  `json:"processing_efficiency"`
	FallbackStages       []string `json:"fallback_stages"`
}

type MedicalInterpretation struct {
	OverallAssessment    string   `json:"overall_assessment" validate:"oneof=normal_parameters borderline_normal abnormal_parameters"`
	FertilityIndicators  []string `json:"fertility_indicators"`
	ClinicalSignificance string   `json:"clinical_significance" validate:"required"`
	Recommendations      []string `json:"recommendations" validate:"min=1"`
}

type StatisticalAnalysis struct {
	SampleSizeAdequacy   string  `json:"sample_size_adequacy" validate:"oneof=adequate limited"`
	ConfidenceInterval   string  `json:"confidence_interval"`
	StatisticalPower     float64 `json:"statistical_power"`
	MeasurementPrecision float64 `json:"measurement_precision"`
}

const (
	AnalysisFullKinematics     = "full_kinematics"
	AnalysisStructuralPosition = "structural_position"
)

// MotionBlock is the motion_parameters variant. Video reports carry
// kinematics, photo reports carry the structural position block; the JSON
// form is discriminated by analysis_type.
type MotionBlock struct {
	Kinematics *pipeline.Kinematics
	Structural *pipeline.Structural
}

// AnalysisType returns the discriminator for the populated variant.
func (m MotionBlock) AnalysisType() string {
	switch {
	case m.Kinematics != nil:
		return AnalysisFullKinematics
	case m.Structural != nil:
		return AnalysisStructuralPosition
	default:
		return ""
	}
}

type kinematicsJSON struct {
	AnalysisType string `json:"analysis_type"`
	MediaType    string `json:"media_type"`
	*pipeline.Kinematics
}

type structuralJSON struct {
	AnalysisType string `json:"analysis_type"`
	MediaType    string `json:"media_type"`
	*pipeline.Structural
}

func (m MotionBlock) MarshalJSON() ([]byte, error) {
	switch {
	case m.Kinematics != nil && m.Structural != nil:
		return nil, fmt.Errorf("motion block has both variants set")
	case m.Kinematics != nil:
		return json.Marshal(kinematicsJSON{AnalysisType: AnalysisFullKinematics, MediaType: string(pipeline.MediaVideo), Kinematics: m.Kinematics})
	case m.Structural != nil:
		return json.Marshal(structuralJSON{AnalysisType: AnalysisStructuralPosition, MediaType: string(pipeline.MediaPhoto), Structural: m.Structural})
	default:
		return []byte("null"), nil
	}
}

func (m *MotionBlock) UnmarshalJSON(data []byte) error {
	*m = MotionBlock{}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var head struct {
		AnalysisType string `json:"analysis_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.AnalysisType {
	case AnalysisFullKinematics:
		var k pipeline.Kinematics
		if err := json.Unmarshal(data, &k); err != nil {
			return err
		}
		m.Kinematics = &k
	case AnalysisStructuralPosition:
		var s pipeline.Structural
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		m.Structural = &s
	default:
		return fmt.Errorf("unknown motion analysis_type %q", head.AnalysisType)
	}
	return nil
}

// Summary is the list view of a report.
type Summary struct {
	ID                string             `json:"id"`
	Filename          string             `json:"filename"`
	OriginalFilename  string             `json:"original_filename"`
	MediaType         pipeline.MediaType `json:"media_type"`
	SpermCount        int64              `json:"sperm_count"`
	Concentration     int64              `json:"concentration"`
	Motility          pipeline.Motility  `json:"motility"`
	NormalMorphology  int                `json:"normal_morphology"`
	OverallAssessment string             `json:"overall_assessment"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Summarize projects a report onto its list view.
func Summarize(r Report) Summary {
	return Summary{
		ID:                r.ID,
		Filename:          r.Filename,
		OriginalFilename:  r.OriginalFilename,
		MediaType:         r.MediaType,
		SpermCount:        r.SpermCount,
		Concentration:     r.Concentration,
		Motility:          r.Motility,
		NormalMorphology:  r.Morphology.Normal,
		OverallAssessment: r.MedicalInterpretation.OverallAssessment,
		CreatedAt:         r.CreatedAt,
	}
}
