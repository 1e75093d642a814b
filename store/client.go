package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ClientConfig selects how the DynamoDB client connects.
type ClientConfig struct {
	Region string

	// Endpoint overrides the service endpoint, e.g. DynamoDB Local.
	// Leave empty to use the regional AWS endpoint.
	Endpoint string

	// Offline uses static placeholder credentials, as DynamoDB Local accepts any.
	Offline bool
}

// NewClient builds a DynamoDB client. It is meant to be created once at
// process start and shared by every request.
func NewClient(ctx context.Context, cc ClientConfig) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if cc.Region != "" {
		opts = append(opts, config.WithRegion(cc.Region))
	}
	if cc.Offline {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("fake", "fake", ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		}
	}), nil
}
