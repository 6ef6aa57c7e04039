package analyses

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"casa-backend/internal/pipeline"
)

// Request is the orchestrator invocation body.
type Request struct {
	MediaURL         string `json:"mediaUrl" validate:"required"`
	FileName         string `json:"fileName" validate:"required"`
	OriginalFilename string `json:"originalFilename"`
	UserID           string `json:"userId" validate:"required"`
	MediaType        string `json:"mediaType" validate:"required,oneof=video photo"`
}

// normalize trims fields, defaults originalFilename and rejects missing
// input with ErrMissingInput.
func (r Request) normalize() (Request, error) {
	r.MediaURL = strings.TrimSpace(r.MediaURL)
	r.FileName = strings.TrimSpace(r.FileName)
	r.OriginalFilename = strings.TrimSpace(r.OriginalFilename)
	r.UserID = strings.TrimSpace(r.UserID)
	r.MediaType = strings.ToLower(strings.TrimSpace(r.MediaType))
	if r.OriginalFilename == "" {
		r.OriginalFilename = r.FileName
	}

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			names := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				names = append(names, fe.Field())
			}
			return r, fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(names, ", "))
		}
		return r, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	return r, nil
}

func (r Request) mediaType() pipeline.MediaType {
	return pipeline.MediaType(r.MediaType)
}
