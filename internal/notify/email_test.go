package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casegen/internal/common/config"
	"casegen/internal/common/logger"
)

type fakeSES struct {
	inputs  []*ses.SendEmailInput
	sendErr error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &ses.SendEmailOutput{}, nil
}

func enabledConfig() config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Email.Enabled = true
	cfg.Email.FromEmail = "casegen@example.com"
	cfg.Email.ToEmail = "team@example.com"
	return cfg
}

func testNotifier(t *testing.T, cfg config.NotificationConfig, svc SESService) *Notifier {
	return &Notifier{cfg: cfg, sesClient: svc, logger: logger.NewTestLogger(t)}
}

func successSummary() RunSummary {
	return RunSummary{
		ProjectCode:    "ACME",
		AreaCode:       "L1",
		RevisionNumber: 3,
		Success:        true,
		OutputFilename: "ACME_L1_RV3.dwg",
		DriveLink:      "https://drive/view/1",
	}
}

func TestNotifyRunFinished_SuccessSubject(t *testing.T) {
	sesStub := &fakeSES{}
	n := testNotifier(t, enabledConfig(), sesStub)

	n.NotifyRunFinished(context.Background(), successSummary())

	require.Len(t, sesStub.inputs, 1)
	assert.Equal(t, "Case study ACME_L1_RV3: generated", *sesStub.inputs[0].Message.Subject.Data)
	assert.Equal(t, "casegen@example.com", *sesStub.inputs[0].Source)
	assert.Equal(t, []string{"team@example.com"}, sesStub.inputs[0].Destination.ToAddresses)
	assert.Contains(t, *sesStub.inputs[0].Message.Body.Text.Data, "ACME_L1_RV3.dwg")
	assert.Contains(t, *sesStub.inputs[0].Message.Body.Text.Data, "https://drive/view/1")
}

func TestNotifyRunFinished_FailureSubject(t *testing.T) {
	sesStub := &fakeSES{}
	n := testNotifier(t, enabledConfig(), sesStub)

	summary := successSummary()
	summary.Success = false
	summary.Errors = []string{"JOB_FAILED: engine reported failedInstructions"}
	n.NotifyRunFinished(context.Background(), summary)

	require.Len(t, sesStub.inputs, 1)
	assert.Equal(t, "Case study ACME_L1_RV3: failed", *sesStub.inputs[0].Message.Subject.Data)
	assert.Contains(t, *sesStub.inputs[0].Message.Body.Text.Data, "failedInstructions")
}

func TestNotifyRunFinished_DisabledSendsNothing(t *testing.T) {
	sesStub := &fakeSES{}
	cfg := enabledConfig()
	cfg.Email.Enabled = false

	testNotifier(t, cfg, sesStub).NotifyRunFinished(context.Background(), successSummary())
	assert.Empty(t, sesStub.inputs)
}

func TestNotifyRunFinished_SendErrorIsSwallowed(t *testing.T) {
	sesStub := &fakeSES{sendErr: fmt.Errorf("ses throttled")}
	n := testNotifier(t, enabledConfig(), sesStub)

	// Must not panic or propagate.
	n.NotifyRunFinished(context.Background(), successSummary())
}

func TestNotifyRunFinished_NilNotifier(t *testing.T) {
	var n *Notifier
	n.NotifyRunFinished(context.Background(), successSummary())
}
