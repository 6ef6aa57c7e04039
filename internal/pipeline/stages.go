package pipeline

import (
	"net/http"

	"github.com/jonboulle/clockwork"
)

// Stages bundles the providers for one orchestration run.
type Stages struct {
	Deployer   *Deployer
	Metadata   Provider[MetadataInput, Metadata]
	Detection  Provider[DetectionInput, Detection]
	Morphology Provider[MorphologyInput, MorphologyResult]
	Rand       *Rand
}

// StagesConfig wires the default providers.
type StagesConfig struct {
	// Platform may be nil, in which case every remote stage uses its
	// simulated fallback.
	Platform    Platform
	ProbeClient *http.Client
	Clock       clockwork.Clock
	Rand        *Rand
}

// NewStages builds remote-first providers with simulated fallbacks.
func NewStages(cfg StagesConfig) *Stages {
	r := cfg.Rand
	if r == nil {
		r = NewTimeRand()
	}

	detection := Fallback[DetectionInput, Detection]{
		Stage:     "detection",
		Secondary: &SimulatedDetector{Rand: r},
	}
	morphology := Fallback[MorphologyInput, MorphologyResult]{
		Stage:     "morphology",
		Secondary: &SimulatedMorphology{Rand: r},
	}
	if cfg.Platform != nil {
		detection.Primary = &RemoteDetector{Platform: cfg.Platform, Rand: r}
		morphology.Primary = &RemoteMorphology{Platform: cfg.Platform, Rand: r}
	}

	return &Stages{
		Deployer: &Deployer{Platform: cfg.Platform, Clock: cfg.Clock, Rand: r},
		Metadata: Fallback[MetadataInput, Metadata]{
			Stage:     "metadata",
			Primary:   &MetadataProbe{Client: cfg.ProbeClient, Rand: r},
			Secondary: FixedMetadata{},
		},
		Detection:  detection,
		Morphology: morphology,
		Rand:       r,
	}
}
