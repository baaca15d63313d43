// Package notify publishes account events to Amazon SNS.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/mc855/authenticator/internal/auth"
)

// snsAPI is the slice of the SNS client the publisher needs. Tests swap in
// a recording fake.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher pushes messages to a topic using the default AWS credential
// chain.
type SNSPublisher struct {
	client snsAPI
}

// NewSNSPublisher loads AWS configuration for the given region and builds
// the topic publisher.
func NewSNSPublisher(ctx context.Context, region string) (*SNSPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("notify: load aws config: %w", err)
	}
	return &SNSPublisher{client: sns.NewFromConfig(cfg)}, nil
}

var _ auth.Publisher = (*SNSPublisher)(nil)

// Publish sends one message to the topic.
func (p *SNSPublisher) Publish(ctx context.Context, message, topic string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		Message:  aws.String(message),
		TopicArn: aws.String(topic),
	})
	if err != nil {
		return fmt.Errorf("notify: publish to %s: %w", topic, err)
	}
	return nil
}
