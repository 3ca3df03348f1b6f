package google

import (
	"context"
	"errors"
	"fmt"

	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// Authentication modes for the Drive API.
const (
	AuthAPIKey          = "api_key"
	AuthADC             = "adc"
	AuthCredentialsFile = "credentials_file"
)

// AuthConfig selects how Drive API requests are authorised.
type AuthConfig struct {
	// Mode is one of AuthAPIKey, AuthADC or AuthCredentialsFile.
	Mode string

	// APIKey reads publicly shared folders without a Google identity.
	APIKey string

	// CredentialsFile is a service account or authorized-user JSON key.
	CredentialsFile string
}

// ClientOptions builds the client options for cfg. Extra options (for
// example an endpoint override) are appended.
func ClientOptions(ctx context.Context, cfg AuthConfig, extra ...option.ClientOption) ([]option.ClientOption, error) {
	var opts []option.ClientOption

	switch cfg.Mode {
	case AuthAPIKey:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: api key is empty", domain.ErrInvalidInput)
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case AuthCredentialsFile:
		if cfg.CredentialsFile == "" {
			return nil, fmt.Errorf("%w: credentials file is empty", domain.ErrInvalidInput)
		}
		opts = append(opts,
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(drive.DriveReadonlyScope),
		)
	case AuthADC:
		ts, err := googleoauth.DefaultTokenSource(ctx, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("application default credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	case "":
		return nil, errors.New("google: auth mode is required")
	default:
		return nil, fmt.Errorf("%w: unknown auth mode %q", domain.ErrInvalidInput, cfg.Mode)
	}

	return append(opts, extra...), nil
}

// NewDriveService creates a Drive v3 API service.
func NewDriveService(ctx context.Context, cfg AuthConfig, extra ...option.ClientOption) (*drive.Service, error) {
	opts, err := ClientOptions(ctx, cfg, extra...)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return svc, nil
}
