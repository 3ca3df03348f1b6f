// Package vision recognises text with Google Cloud Vision.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// DefaultTimeout bounds one annotate request.
const DefaultTimeout = 60 * time.Second

// annotator is the subset of the Vision client the engine calls.
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// Config configures the Vision engine.
type Config struct {
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string

	// LanguageHints are BCP-47 codes passed to the detector.
	LanguageHints []string

	// Timeout bounds one request (default: 60s).
	Timeout time.Duration
}

// Engine sends each image to DOCUMENT_TEXT_DETECTION.
type Engine struct {
	client  annotator
	hints   []string
	timeout time.Duration
}

// New creates an engine backed by a Vision ImageAnnotatorClient.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return newEngine(client, cfg), nil
}

func newEngine(client annotator, cfg Config) *Engine {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Engine{client: client, hints: cfg.LanguageHints, timeout: cfg.Timeout}
}

// Name identifies the engine.
func (e *Engine) Name() string {
	return "vision"
}

// Recognize returns the full text annotation of img.
func (e *Engine) Recognize(ctx context.Context, img domain.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img.Data},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	if len(e.hints) > 0 {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: e.hints}
	}

	resp, err := e.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return "", classify(status.Code(err), err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Code != int32(codes.OK) {
		return "", classify(codes.Code(r0.Error.Code), errors.New(r0.Error.Message))
	}

	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(r0.FullTextAnnotation.Text), nil
}

// Close releases the client connection.
func (e *Engine) Close() error {
	return e.client.Close()
}

// classify maps gRPC codes onto the domain's transient errors.
func classify(code codes.Code, err error) error {
	switch code {
	case codes.ResourceExhausted:
		return fmt.Errorf("vision: %w: %w", domain.ErrRateLimited, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal:
		return fmt.Errorf("vision: %w: %w", domain.ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("vision annotate: %w", err)
	}
}
