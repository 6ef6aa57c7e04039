package pipeline

import "casa-backend/internal/koyeb"

func koyebAnalyzeRequest(in DetectionInput) koyeb.AnalyzeRequest {
	return koyeb.NewAnalyzeRequest(in.JobID, in.MediaURL, string(in.MediaType))
}

func koyebMorphologyRequest(in MorphologyInput) koyeb.MorphologyRequest {
	return koyeb.NewMorphologyRequest(in.JobID, in.Detection)
}
