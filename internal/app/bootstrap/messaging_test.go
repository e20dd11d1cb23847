package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/notify"
)

func TestBuildEmailSenderSelection(t *testing.T) {
	sender, provider := BuildEmailSender(&appconfig.Config{}, nil, quietLogger())
	assert.Equal(t, "stub", provider)
	assert.IsType(t, &notify.StubEmailSender{}, sender)

	sender, provider = BuildEmailSender(&appconfig.Config{SendGridAPIKey: "SG.test", SendGridFromEmail: "citas@example.com"}, nil, quietLogger())
	assert.Equal(t, "sendgrid", provider)
	assert.IsType(t, &notify.SendGridSender{}, sender)

	// SES needs AWS config; without it SendGrid is still chosen.
	_, provider = BuildEmailSender(&appconfig.Config{SESFromEmail: "citas@example.com", SendGridAPIKey: "SG.test"}, nil, quietLogger())
	assert.Equal(t, "sendgrid", provider)
}

func TestBuildBookingSink(t *testing.T) {
	assert.Nil(t, BuildBookingSink(&appconfig.Config{}, nil, "Demo", quietLogger()))

	sink := BuildBookingSink(&appconfig.Config{AdminEmail: "admin@example.com"}, nil, "Demo", quietLogger())
	assert.IsType(t, &notify.BookingNotifier{}, sink)
}
