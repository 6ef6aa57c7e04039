package koyeb

import "fmt"

// AppSpec is the body of an app deployment.
type AppSpec struct {
	Name     string        `json:"name"`
	Services []ServiceSpec `json:"services"`
}

type ServiceSpec struct {
	Name          string        `json:"name"`
	InstanceTypes []string      `json:"instance_types"`
	Regions       []string      `json:"regions"`
	Scalings      Scaling       `json:"scalings"`
	Docker        Docker        `json:"docker"`
	Env           []EnvVar      `json:"env"`
	Ports         []Port        `json:"ports"`
	HealthChecks  []HealthCheck `json:"health_checks"`
}

type Scaling struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type Docker struct {
	Image   string   `json:"image"`
	Command []string `json:"command"`
	Args    []string `json:"args"`
}

type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Port struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

type HealthCheck struct {
	HTTP         HTTPCheck `json:"http"`
	GracePeriod  int       `json:"grace_period"`
	Interval     int       `json:"interval"`
	RestartLimit int       `json:"restart_limit"`
	Timeout      int       `json:"timeout"`
}

type HTTPCheck struct {
	Path string `json:"path"`
}

// App is the subset of the app resource the client reads.
type App struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AnalyzerAppSpec returns the GPU analyzer deployment for one media item.
func AnalyzerAppSpec(nowMillis int64, mediaURL, mediaType string) AppSpec {
	return AppSpec{
		Name: fmt.Sprintf("sperm-ai-%d", nowMillis),
		Services: []ServiceSpec{{
			Name:          "real-ai-analyzer",
			InstanceTypes: []string{"gpu-nvidia-rtx-4000-sff-ada"},
			Regions:       []string{"was"},
			Scalings:      Scaling{Min: 1, Max: 2},
			Docker: Docker{
				Image:   "pytorch/pytorch:2.1.0-cuda12.1-cudnn8-runtime",
				Command: []string{"python", "/app/real_analyze.py"},
				Args:    []string{mediaURL, mediaType},
			},
			Env: []EnvVar{
				{Key: "MEDIA_URL", Value: mediaURL},
				{Key: "MEDIA_TYPE", Value: mediaType},
				{Key: "YOLO_MODEL", Value: "yolov8n"},
				{Key: "DEEPSORT_ENABLED", Value: "true"},
				{Key: "CASA_ANALYSIS", Value: "true"},
				{Key: "WHO_2010_COMPLIANT", Value: "true"},
				{Key: "CUDA_VISIBLE_DEVICES", Value: "0"},
				{Key: "PYTORCH_CUDA_ALLOC_CONF", Value: "max_split_size_mb:512"},
			},
			Ports: []Port{{Port: 8080, Protocol: "http"}},
			HealthChecks: []HealthCheck{{
				HTTP:         HTTPCheck{Path: "/health"},
				GracePeriod:  30,
				Interval:     10,
				RestartLimit: 3,
				Timeout:      5,
			}},
		}},
	}
}

// AnalyzeRequest asks the deployed service for detection and tracking.
type AnalyzeRequest struct {
	JobID               string   `json:"job_id"`
	MediaURL            string   `json:"media_url"`
	MediaType           string   `json:"media_type"`
	Models              []string `json:"models"`
	GPUEnabled          bool     `json:"gpu_enabled"`
	GPUType             string   `json:"gpu_type"`
	BatchSize           int      `json:"batch_size"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	IOUThreshold        float64  `json:"iou_threshold"`
	MaxDetections       int      `json:"max_detections"`
	TrackingEnabled     bool     `json:"tracking_enabled"`
	MorphologyAnalysis  bool     `json:"morphology_analysis"`
	CASACompliance      bool     `json:"casa_compliance"`
	WHO2010Standards    bool     `json:"who_2010_standards"`
}

// NewAnalyzeRequest builds the fixed detection payload for a media type.
func NewAnalyzeRequest(jobID, mediaURL, mediaType string) AnalyzeRequest {
	video := mediaType == "video"
	batch := 1
	if video {
		batch = 16
	}
	return AnalyzeRequest{
		JobID:               jobID,
		MediaURL:            mediaURL,
		MediaType:           mediaType,
		Models:              []string{"yolov8n", "deepsort", "resnet50"},
		GPUEnabled:          true,
		GPUType:             "nvidia-rtx-4000",
		BatchSize:           batch,
		ConfidenceThreshold: 0.25,
		IOUThreshold:        0.45,
		MaxDetections:       2000,
		TrackingEnabled:     video,
		MorphologyAnalysis:  true,
		CASACompliance:      true,
		WHO2010Standards:    true,
	}
}

// AnalyzeResponse carries whatever the service returned. Zero values mean
// the field was absent.
type AnalyzeResponse struct {
	Detections struct {
		Count int64 `json:"count"`
	} `json:"detections"`
	Tracking struct {
		Accuracy float64 `json:"accuracy"`
	} `json:"tracking"`
	Confidence      float64 `json:"confidence"`
	FramesProcessed int     `json:"frames_processed"`
	GPUTime         float64 `json:"gpu_time"`
}

// MorphologyRequest asks the deployed service for morphology classes.
type MorphologyRequest struct {
	JobID               string  `json:"job_id"`
	DetectionData       any     `json:"detection_data"`
	ModelType           string  `json:"model_type"`
	ClassificationMode  string  `json:"classification_mode"`
	GPUAcceleration     bool    `json:"gpu_acceleration"`
	BatchProcessing     bool    `json:"batch_processing"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// NewMorphologyRequest builds the fixed morphology payload.
func NewMorphologyRequest(jobID string, detection any) MorphologyRequest {
	return MorphologyRequest{
		JobID:               jobID,
		DetectionData:       detection,
		ModelType:           "resnet50_morphology_v2",
		ClassificationMode:  "strict_kruger_who_2010",
		GPUAcceleration:     true,
		BatchProcessing:     true,
		ConfidenceThreshold: 0.85,
	}
}

type MorphologyResponse struct {
	NormalPercentage   float64 `json:"normal_percentage"`
	AbnormalPercentage float64 `json:"abnormal_percentage"`
	HeadDefects        float64 `json:"head_defects"`
	MidpieceDefects    float64 `json:"midpiece_defects"`
	TailDefects        float64 `json:"tail_defects"`
	MultipleDefects    float64 `json:"multiple_defects"`
	Accuracy           float64 `json:"accuracy"`
	SamplesCount       int     `json:"samples_count"`
	InferenceTime      float64 `json:"inference_time"`
}
