package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	"github.com/noah-isme/moodle-engagement-api/internal/models"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
	"github.com/noah-isme/moodle-engagement-api/pkg/mailer"
)

type fakeSender struct {
	sent    []mailer.Message
	err     error
	altered bool
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) CredentialsAltered() bool { return f.altered }

func newAlertService(t *testing.T, sender *fakeSender) (*AlertService, string) {
	t.Helper()
	svc, store := newEngagementService(t)
	id := uploadFixture(t, svc)
	alerts := NewAlertService(svc, store, sender, nil, NewMetricsService(), zap.NewNop(), "alerts@example.edu")
	return alerts, id
}

func TestAlertServiceSendsAndRecordsDelivery(t *testing.T) {
	sender := &fakeSender{}
	alerts, id := newAlertService(t, sender)

	resp, err := alerts.Send(context.Background(), id, dto.AlertRequest{CoordinatorEmail: "coord@example.edu"})
	require.NoError(t, err)
	assert.True(t, resp.Sent)
	assert.Equal(t, 1, resp.Students)
	assert.Empty(t, resp.CredentialsWarning)
	assert.Equal(t, []string{"12:00 – mail sent (1 students)"}, resp.Log)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alerts@example.edu", sender.sent[0].From)
	assert.Equal(t, "coord@example.edu", sender.sent[0].To)
	assert.Equal(t, "Moodle early-alert – 1 students", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Ana Lima — Inactive 20 days — Active days: 0")

	_, err = alerts.Send(context.Background(), id, dto.AlertRequest{CoordinatorEmail: "coord@example.edu"})
	require.NoError(t, err)

	log, err := alerts.Log(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, log.Entries, 2)
	assert.Equal(t, "coord@example.edu", log.Entries[0].Recipient)
}

func TestAlertServiceNothingToSend(t *testing.T) {
	sender := &fakeSender{}
	alerts, id := newAlertService(t, sender)

	resp, err := alerts.Send(context.Background(), id, dto.AlertRequest{
		CoordinatorEmail: "coord@example.edu",
		Filters:          dto.SummaryQuery{Search: "carla"},
	})
	require.NoError(t, err)
	assert.False(t, resp.Sent)
	assert.Equal(t, appErrors.ErrNothingToSend.Message, resp.Message)
	assert.Empty(t, sender.sent)
}

func TestAlertServiceBlankRecipient(t *testing.T) {
	sender := &fakeSender{}
	alerts, id := newAlertService(t, sender)

	_, err := alerts.Send(context.Background(), id, dto.AlertRequest{CoordinatorEmail: "   "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, sender.sent)

	_, err = alerts.Send(context.Background(), id, dto.AlertRequest{CoordinatorEmail: "not-an-address"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, sender.sent)
}

func TestAlertServiceTransportFailureLeavesLog(t *testing.T) {
	sender := &fakeSender{err: appErrors.Clone(appErrors.ErrTransportAuth, "")}
	alerts, id := newAlertService(t, sender)

	_, err := alerts.Send(context.Background(), id, dto.AlertRequest{CoordinatorEmail: "coord@example.edu"})
	assert.True(t, errors.Is(err, appErrors.ErrTransportAuth))

	log, err := alerts.Log(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, log.Entries)
}

func TestAlertServiceCredentialWarning(t *testing.T) {
	alerts, id := newAlertService(t, &fakeSender{altered: true})

	resp, err := alerts.Send(context.Background(), id, dto.AlertRequest{CoordinatorEmail: "coord@example.edu"})
	require.NoError(t, err)
	assert.Equal(t, credentialsWarning, resp.CredentialsWarning)
}

func TestAlertServiceEmptySelection(t *testing.T) {
	sender := &fakeSender{}
	alerts, id := newAlertService(t, sender)

	_, err := alerts.Send(context.Background(), id, dto.AlertRequest{
		CoordinatorEmail: "coord@example.edu",
		Filters:          dto.SummaryQuery{Course: "Course: History"},
	})
	assert.True(t, errors.Is(err, appErrors.ErrEmptyResult))
	assert.Empty(t, sender.sent)
}

func TestAppendNotificationDoesNotModifyInput(t *testing.T) {
	log := []models.NotificationEntry{{Students: 1}}
	out := AppendNotification(log, models.NotificationEntry{Students: 2})
	assert.Len(t, log, 1)
	assert.Len(t, out, 2)
}

var _ engagementEvaluator = (*EngagementService)(nil)
