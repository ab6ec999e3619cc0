// Package sns delivers verification codes over AWS SNS, as an alternative to
// the Devino gateway for deployments that already carry AWS credentials.
package sns

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/wazir-realty/api/internal/config"
	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/pkg/phone"
)

// Sender publishes SMS verification codes via AWS SNS.
type Sender struct {
	client *sns.Client
}

func NewSender(cfg *config.Config) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Sender{client: sns.NewFromConfig(awsCfg)}, nil
}

// SendCode texts the code to the phone. Publish failures surface as
// ErrChannelUnavailable so the verification service can fall back.
func (s *Sender) SendCode(ctx context.Context, rawPhone, code string) error {
	to := "+" + phone.Normalize(rawPhone)
	message := "Your verification code: " + code
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", domain.ErrChannelUnavailable)
	}
	return nil
}
