// Package notify sends the optional completion email after a generation
// run. Delivery problems are logged and dropped; notification is never on
// the critical path.
package notify

import (
	"context"
	"fmt"
	"strings"

	"casegen/internal/common/config"
	"casegen/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService allows mocking the SES client in tests.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// RunSummary is what the email reports about a finished run.
type RunSummary struct {
	ProjectCode           string
	AreaCode              string
	RevisionNumber        int
	Success               bool
	OutputFilename        string
	DriveLink             string
	MissingSymbolProducts []string
	Errors                []string
}

type Notifier struct {
	cfg       config.NotificationConfig
	sesClient SESService
	logger    logger.Logger
}

func NewNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}

	if !cfg.Email.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	n.sesClient = ses.NewFromConfig(awsCfg)
	return n, nil
}

// NotifyRunFinished emails the run summary when enabled. Always best-effort.
func (n *Notifier) NotifyRunFinished(ctx context.Context, summary RunSummary) {
	if n == nil || !n.cfg.Email.Enabled || n.sesClient == nil {
		return
	}

	subject := fmt.Sprintf("Case study %s_%s_RV%d: %s",
		summary.ProjectCode, summary.AreaCode, summary.RevisionNumber, outcomeWord(summary.Success))

	input := &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{n.cfg.Email.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(buildBody(summary))},
			},
		},
	}

	if _, err := n.sesClient.SendEmail(ctx, input); err != nil {
		n.logger.Warn("completion email failed", map[string]interface{}{
			"project": summary.ProjectCode,
			"error":   err.Error(),
		})
	}
}

func outcomeWord(success bool) string {
	if success {
		return "generated"
	}
	return "failed"
}

func buildBody(s RunSummary) string {
	var b strings.Builder
	if s.Success {
		fmt.Fprintf(&b, "Case-study drawing %s was generated.\n", s.OutputFilename)
		if s.DriveLink != "" {
			fmt.Fprintf(&b, "Drive link: %s\n", s.DriveLink)
		}
	} else {
		b.WriteString("Case-study generation failed.\n")
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	if len(s.MissingSymbolProducts) > 0 {
		fmt.Fprintf(&b, "\n%d product(s) used the placeholder symbol:\n", len(s.MissingSymbolProducts))
		for _, id := range s.MissingSymbolProducts {
			fmt.Fprintf(&b, "- %s\n", id)
		}
	}
	return b.String()
}
