package client

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// AuthOptions selects the region and shared profile used to load AWS config.
// Both may be empty to fall back to the SDK's default resolution.
type AuthOptions struct {
	Region  string
	Profile string
}

// Session holds the AWS clients for one process invocation. The underlying
// HTTP connections are pooled and reused across pages; Close releases them.
type Session struct {
	Logs   *cloudwatchlogs.Client
	Stacks *cloudformation.Client

	httpClient *awshttp.BuildableClient
}

// NewCloudWatchOptions builds config load options from AuthOptions. An
// explicit profile wins over AWS_PROFILE; static credentials in the
// environment are picked up by the default chain only when no profile is set.
func NewCloudWatchOptions(o AuthOptions) []func(*config.LoadOptions) error {
	var cfgOpts []func(*config.LoadOptions) error
	if o.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(o.Region))
	}
	profile := o.Profile
	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
	}
	if profile != "" {
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(profile))
	}
	return cfgOpts
}

// NewSession loads AWS configuration and returns the clients the log engine
// and the name resolver use. SDK-level retries are disabled; the engine owns
// the retry budget.
func NewSession(ctx context.Context, o AuthOptions) (*Session, error) {
	httpClient := awshttp.NewBuildableClient()
	cfgOpts := NewCloudWatchOptions(o)
	cfgOpts = append(cfgOpts,
		config.WithHTTPClient(httpClient),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Session{
		Logs:       cloudwatchlogs.NewFromConfig(cfg),
		Stacks:     cloudformation.NewFromConfig(cfg),
		httpClient: httpClient,
	}, nil
}

// Close drops idle pooled connections. It is safe to call more than once.
func (s *Session) Close() {
	if s == nil || s.httpClient == nil {
		return
	}
	s.httpClient.CloseIdleConnections()
}
