package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/techne-institute/cohort-portal-api/pkg/config"
)

func TestNewSelectsLogMailerWithoutHost(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m, err := New(config.MailConfig{}, zap.New(core))
	require.NoError(t, err)
	require.IsType(t, &LogMailer{}, m)

	require.NoError(t, m.Send(context.Background(), Message{To: "a@x.io", Subject: "Your access", Text: "link"}))
	entries := logs.FilterField(zap.String("to", "a@x.io")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Your access", entries[0].ContextMap()["subject"])
}

func TestNewBuildsSMTPMailerWithoutDialing(t *testing.T) {
	m, err := New(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "Techne Institute <hello@techne.institute>",
	}, nil)
	require.NoError(t, err)
	smtp, ok := m.(*SMTPMailer)
	require.True(t, ok)
	assert.Equal(t, "Techne Institute <hello@techne.institute>", smtp.from)
}
