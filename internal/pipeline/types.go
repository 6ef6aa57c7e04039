package pipeline

// MediaType is the kind of sample being analysed.
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaPhoto MediaType = "photo"
)

// Valid reports whether m is a known media type.
func (m MediaType) Valid() bool {
	return m == MediaVideo || m == MediaPhoto
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata is the result of the media probe stage.
type Metadata struct {
	Duration            float64    `json:"duration"`
	FPS                 int        `json:"fps"`
	TotalFrames         int        `json:"total_frames"`
	Resolution          Resolution `json:"resolution"`
	Format              string     `json:"format"`
	FileSize            int64      `json:"file_size"`
	Bitrate             string     `json:"bitrate"`
	MediaType           MediaType  `json:"media_type"`
	QualityScore        float64    `json:"quality_score"`
	NoiseLevel          float64    `json:"noise_level"`
	IlluminationQuality float64    `json:"illumination_quality"`
	Fallback            bool       `json:"-"`
}

// Detection is the result of the detection and tracking stage.
type Detection struct {
	TotalDetected       int64     `json:"total_sperm_detected"`
	TrackingAccuracy    float64   `json:"tracking_accuracy"`
	DetectionConfidence float64   `json:"detection_confidence"`
	FramesProcessed     int       `json:"frames_processed"`
	GPUProcessingTime   float64   `json:"gpu_processing_time"`
	GPUUtilization      float64   `json:"gpu_utilization"`
	MemoryUsageGB       float64   `json:"memory_usage_gb"`
	ProcessingMethod    string    `json:"processing_method"`
	MediaType           MediaType `json:"media_type"`
	Fallback            bool      `json:"fallback_processing,omitempty"`
}

// Motility holds WHO 2010 motility categories as whole percentages.
type Motility struct {
	Progressive    int `json:"progressive" validate:"min=15,max=65"`
	NonProgressive int `json:"non_progressive" validate:"min=5,max=25"`
	Immotile       int `json:"immotile" validate:"min=10"`
	TotalMotile    int `json:"total_motile" validate:"min=0,max=100"`
}

// QualityAssurance is the CASA self-assessment block.
type QualityAssurance struct {
	SampleQuality    float64 `json:"sample_quality"`
	TechnicalQuality float64 `json:"technical_quality"`
	StatisticalPower float64 `json:"statistical_power"`
}

// CASA is the result of the computer assisted sperm analysis stage.
type CASA struct {
	// Concentration is in millions per ml.
	Concentration    int64            `json:"concentration"`
	TotalCount       int64            `json:"total_count"`
	Motility         Motility         `json:"motility"`
	Vitality         int              `json:"vitality"`
	QualityAssurance QualityAssurance `json:"quality_assurance"`
}

// Morphology holds strict Kruger classification percentages.
type Morphology struct {
	Normal          int `json:"normal" validate:"min=4,max=16"`
	Abnormal        int `json:"abnormal" validate:"min=84,max=96"`
	HeadDefects     int `json:"head_defects" validate:"min=0,max=100"`
	MidpieceDefects int `json:"midpiece_defects" validate:"min=0,max=100"`
	TailDefects     int `json:"tail_defects" validate:"min=0,max=100"`
	MultipleDefects int `json:"multiple_defects" validate:"min=0,max=100"`
}

// MorphologyResult is the morphology stage output.
type MorphologyResult struct {
	Morphology
	ClassificationAccuracy float64
	Fallback               bool
}

// Kinematics is the video motion block.
type Kinematics struct {
	VCL                  float64 `json:"vcl" validate:"gt=0"`
	VSL                  float64 `json:"vsl" validate:"gt=0"`
	VAP                  float64 `json:"vap" validate:"gt=0"`
	LIN                  float64 `json:"lin" validate:"gt=0,lte=1"`
	STR                  float64 `json:"str" validate:"gt=0"`
	WOB                  float64 `json:"wob" validate:"gt=0,lte=1"`
	ALH                  float64 `json:"alh"`
	BCF                  float64 `json:"bcf"`
	HyperactivationIndex float64 `json:"hyperactivation_index"`
}

type SpatialDistribution struct {
	ClusteringCoefficient   float64 `json:"clustering_coefficient"`
	DispersionIndex         float64 `json:"dispersion_index"`
	NearestNeighborDistance float64 `json:"nearest_neighbor_distance"`
}

type OrientationAnalysis struct {
	AlignmentCoefficient float64 `json:"alignment_coefficient"`
	AngularDistribution  float64 `json:"angular_distribution"`
}

type MorphometricFeatures struct {
	HeadAreaAvg      float64 `json:"head_area_avg"`
	LengthWidthRatio float64 `json:"length_width_ratio"`
	SymmetryIndex    float64 `json:"symmetry_index"`
}

type QualityIndicators struct {
	ImageClarity    float64 `json:"image_clarity"`
	ContrastQuality float64 `json:"contrast_quality"`
	FocusScore      float64 `json:"focus_score"`
}

// Structural is the photo position block. It carries no velocities.
type Structural struct {
	SpatialDistribution  SpatialDistribution  `json:"spatial_distribution"`
	OrientationAnalysis  OrientationAnalysis  `json:"orientation_analysis"`
	MorphometricFeatures MorphometricFeatures `json:"morphometric_features"`
	QualityIndicators    QualityIndicators    `json:"quality_indicators"`
}

// Motion is the motion stage output; exactly one field is set.
type Motion struct {
	Kinematics *Kinematics
	Structural *Structural
}
