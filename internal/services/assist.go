package services

import (
	"context"
	"errors"
	"io"

	"github.com/farmerhub/marketplace-api/internal/advisor"
	"github.com/farmerhub/marketplace-api/internal/media"
)

// AIService exposes the crop advisor to handlers
type AIService struct {
	advisor *advisor.Advisor
}

func NewAIService(a *advisor.Advisor) *AIService {
	return &AIService{advisor: a}
}

// Ask forwards a question to the advisor
func (s *AIService) Ask(ctx context.Context, query string) (*advisor.Answer, error) {
	answer, err := s.advisor.Ask(ctx, query)
	if errors.Is(err, advisor.ErrEmptyQuery) {
		return nil, validationError("Query is required")
	}
	return answer, err
}

// UploadService stores media files for any signed-in account
type UploadService struct {
	uploader *media.Uploader
}

func NewUploadService(u *media.Uploader) *UploadService {
	return &UploadService{uploader: u}
}

// Upload stores a file of the kind named by route, one of image, video,
// audio or image-reduce
func (s *UploadService) Upload(ctx context.Context, route, filename string, r io.Reader) (*media.Result, error) {
	var (
		res *media.Result
		err error
	)
	if route == "image-reduce" {
		res, err = s.uploader.UploadReduced(ctx, filename, r)
	} else {
		kind, kerr := media.ParseKind(route)
		if kerr != nil {
			return nil, validationError("Unknown upload type %q", route)
		}
		res, err = s.uploader.Upload(ctx, kind, filename, r)
	}

	switch {
	case errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrEmptyFile),
		errors.Is(err, media.ErrUndecodable),
		errors.Is(err, media.ErrUnknownKind):
		return nil, validationError("%s", err.Error())
	}
	return res, err
}
