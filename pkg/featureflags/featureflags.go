package featureflags

import (
	"context"

	"gigbridge-platform/pkg/config"

	flagsmith "github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

// Feature names evaluated at runtime.
const (
	ChainIntegration = "chain_integration"
)

type FeatureFlag interface {
	// IsEnabled reports whether a feature is on for the environment. A missing
	// client (no API key configured) always answers false so optional
	// integrations stay off by default.
	IsEnabled(ctx context.Context, feature string) bool
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithBaseURL(p.Config.Flagsmith.Addr),
		flagsmith.WithAnalytics(),
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) IsEnabled(ctx context.Context, feature string) bool {
	if s.client == nil {
		return false
	}

	flags, err := s.client.GetEnvironmentFlags()
	if err != nil {
		return false
	}

	enabled, err := flags.IsFeatureEnabled(feature)
	if err != nil {
		return false
	}
	return enabled
}
