package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/advisor"
	"github.com/farmerhub/marketplace-api/internal/media"
	"github.com/farmerhub/marketplace-api/internal/metrics"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, model, _, prompt string) (string, error) {
	return model + ": " + prompt, nil
}

func TestAIServiceAsk(t *testing.T) {
	m := metrics.NewDiscardMetrics("test")
	ai := NewAIService(advisor.New(echoGenerator{}, []string{"m1"}, 0, m))

	answer, err := ai.Ask(context.Background(), "When to plant maize?")
	require.NoError(t, err)
	assert.Equal(t, "m1", answer.Model)

	_, err = ai.Ask(context.Background(), "   ")
	requireKind(t, err, ErrValidation)
}

func TestUploadServiceMapsMediaErrors(t *testing.T) {
	dir := t.TempDir()
	uploads := NewUploadService(media.NewUploader(media.NewLocalStore(dir, "/uploads"), metrics.NewDiscardMetrics("test")))
	ctx := context.Background()

	res, err := uploads.Upload(ctx, "audio", "call.wav", strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/audio/"))

	_, err = uploads.Upload(ctx, "image", "notes.txt", strings.NewReader("x"))
	requireKind(t, err, ErrValidation)

	_, err = uploads.Upload(ctx, "document", "a.pdf", strings.NewReader("x"))
	requireKind(t, err, ErrValidation)

	_, err = uploads.Upload(ctx, "image-reduce", "fake.png", strings.NewReader("garbage"))
	requireKind(t, err, ErrValidation)
}
