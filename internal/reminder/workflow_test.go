package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjdreamy/M-kumbusha/internal/africastalking"
	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/channel"
	"github.com/cjdreamy/M-kumbusha/internal/metrics"
	"github.com/cjdreamy/M-kumbusha/internal/models"
	"github.com/cjdreamy/M-kumbusha/internal/repository"
)

// fakeProvider answers every request with a fixed status and records the numbers it was asked to reach
type fakeProvider struct {
	mu         sync.Mutex
	smsStatus  string
	callStatus string
	smsErr     error
	sms        []string
	messages   []string
	calls      []string
}

func (f *fakeProvider) SendSMS(ctx context.Context, to, message string) (*africastalking.SMSResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.smsErr != nil {
		return nil, f.smsErr
	}
	f.sms = append(f.sms, to)
	f.messages = append(f.messages, message)
	resp := &africastalking.SMSResponse{Raw: []byte(`{}`)}
	resp.SMSMessageData.Recipients = []africastalking.SMSRecipient{{Number: to, Status: f.smsStatus}}
	return resp, nil
}

func (f *fakeProvider) Call(ctx context.Context, to string) (*africastalking.CallResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, to)
	return &africastalking.CallResponse{
		Entries: []africastalking.CallEntry{{PhoneNumber: to, Status: f.callStatus}},
		Raw:     []byte(`{}`),
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ReminderEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, event models.ReminderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) types() []models.ReminderEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ReminderEventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	store      *repository.Memory
	provider   *fakeProvider
	events     *recordingPublisher
	dispatcher *Dispatcher
	confirmer  *Confirmer
	elderly    *models.Elderly
	schedule   *models.Schedule
}

func newHarness(t *testing.T, ch models.ReminderChannel, secondary, forwarding string) *harness {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemory()

	_, err := store.CreateProfile(ctx, &models.Profile{
		ID:                           "cg-1",
		Username:                     "wanjiku",
		FullName:                     "Wanjiku",
		NotificationForwardingNumber: models.StringPtr(forwarding),
	})
	require.NoError(t, err)

	elderly, err := store.CreateElderly(ctx, &models.Elderly{
		CaregiverID:      "cg-1",
		FullName:         "Mama Njeri",
		PrimaryContact:   models.StringPtr("+254700000001"),
		SecondaryContact: models.StringPtr(secondary),
	})
	require.NoError(t, err)

	description := "Take with food"
	schedule, err := store.CreateSchedule(ctx, &models.Schedule{
		ElderlyID:    elderly.ID,
		Title:        "Metformin",
		Description:  &description,
		ScheduleType: models.ScheduleMedication,
		Frequency:    models.FrequencyDaily,
		TimeOfDay:    "08:00",
		Channel:      ch,
		Language:     models.LanguageEnglish,
		IsActive:     true,
	})
	require.NoError(t, err)

	provider := &fakeProvider{smsStatus: "Success", callStatus: "Queued"}
	events := &recordingPublisher{}
	sms := channel.NewSMSSender(provider, store)
	voice := channel.NewVoiceSender(provider, store)

	return &harness{
		store:      store,
		provider:   provider,
		events:     events,
		dispatcher: NewDispatcher(store, sms, voice, events),
		confirmer:  NewConfirmer(store, NewEscalator(sms, store, events), events),
		elderly:    elderly,
		schedule:   schedule,
	}
}

func (h *harness) dispatchRequest() models.DispatchRequest {
	return models.DispatchRequest{
		ScheduleID:  h.schedule.ID,
		ElderlyID:   h.elderly.ID,
		CaregiverID: "cg-1",
		Message:     "Reminder: Metformin. Take with food",
		Channel:     h.schedule.Channel,
		Language:    h.schedule.Language,
	}
}

func (h *harness) logs(t *testing.T) []models.ReminderLogWithDetails {
	t.Helper()
	logs, err := h.store.ListReminderLogs(context.Background(), models.LogFilter{Limit: 500})
	require.NoError(t, err)
	return logs
}

func (h *harness) reminderStatus(t *testing.T, id string) models.ReminderStatus {
	t.Helper()
	r, err := h.store.GetReminder(context.Background(), id)
	require.NoError(t, err)
	return r.Status
}

func (h *harness) newReminder(t *testing.T, id string) string {
	t.Helper()
	r, err := h.store.CreateReminder(context.Background(), &models.Reminder{
		ID:            id,
		ScheduleID:    h.schedule.ID,
		ElderlyID:     h.elderly.ID,
		ScheduledTime: time.Now(),
	})
	require.NoError(t, err)
	return r.ID
}

func confirmRequest(id string, confirmed bool) models.ConfirmRequest {
	return models.ConfirmRequest{ReminderID: id, Confirmed: &confirmed}
}

func TestDispatchBothWritesOneLogPerChannel(t *testing.T) {
	h := newHarness(t, models.ChannelBoth, "", "")
	h.provider.callStatus = "InvalidPhoneNumber"

	result, err := h.dispatcher.Dispatch(context.Background(), h.dispatchRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Reminder sent successfully", result.Message)
	require.Len(t, result.Results, 2)
	assert.Equal(t, models.ChannelSMS, result.Results[0].Type)
	assert.True(t, result.Results[0].Success)
	assert.Equal(t, models.ChannelVoice, result.Results[1].Type)
	assert.False(t, result.Results[1].Success)

	logs := h.logs(t)
	require.Len(t, logs, 2)
	channels := []models.ReminderChannel{logs[0].Channel, logs[1].Channel}
	assert.ElementsMatch(t, []models.ReminderChannel{models.ChannelSMS, models.ChannelVoice}, channels)
	for _, l := range logs {
		require.NotNil(t, l.ReminderID)
		assert.Equal(t, result.ReminderID, *l.ReminderID)
	}

	// voice is written last, so its outcome wins
	assert.Equal(t, models.StatusFailed, h.reminderStatus(t, result.ReminderID))
	assert.Equal(t, []string{"+254700000001"}, h.provider.sms)
	assert.Equal(t, []string{"+254700000001"}, h.provider.calls)
	assert.Equal(t, []models.ReminderEventType{models.EventReminderDispatched}, h.events.types())
}

func TestDispatchWithoutPrimaryContactWritesNothing(t *testing.T) {
	h := newHarness(t, models.ChannelBoth, "+254700000002", "")
	h.elderly.PrimaryContact = nil
	_, err := h.store.UpdateElderly(context.Background(), h.elderly)
	require.NoError(t, err)

	_, err = h.dispatcher.Dispatch(context.Background(), h.dispatchRequest())
	assert.ErrorIs(t, err, apperrors.ErrRecipientNotFound)

	reminders, err := h.store.ListReminders(context.Background(), models.ReminderFilter{})
	require.NoError(t, err)
	assert.Empty(t, reminders)
	assert.Empty(t, h.logs(t))
	assert.Empty(t, h.provider.sms)
}

func TestDispatchUnknownElderly(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "")
	req := h.dispatchRequest()
	req.ElderlyID = "nobody"

	_, err := h.dispatcher.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrRecipientNotFound)
}

func TestDispatchUnknownSchedule(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "")
	req := h.dispatchRequest()
	req.ScheduleID = "nothing"

	_, err := h.dispatcher.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrScheduleNotFound)
	assert.Empty(t, h.logs(t))
}

func TestDispatchValidatesBeforeWriting(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "")

	req := h.dispatchRequest()
	req.Channel = "pigeon"
	_, err := h.dispatcher.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	req = h.dispatchRequest()
	req.Language = "french"
	_, err = h.dispatcher.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	req = h.dispatchRequest()
	req.ScheduleID = ""
	_, err = h.dispatcher.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	reminders, err := h.store.ListReminders(context.Background(), models.ReminderFilter{})
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestDispatchDefaultsFromSchedule(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "")

	result, err := h.dispatcher.Dispatch(context.Background(), models.DispatchRequest{
		ScheduleID: h.schedule.ID,
		ElderlyID:  h.elderly.ID,
	})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, models.ChannelSMS, result.Results[0].Type)
	assert.Equal(t, []string{"Reminder: Metformin. Take with food"}, h.provider.messages)

	logs := h.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "cg-1", logs[0].CaregiverID)
	assert.Equal(t, models.StatusSent, h.reminderStatus(t, result.ReminderID))
}

func TestDispatchChannelErrorDoesNotStopOtherChannel(t *testing.T) {
	h := newHarness(t, models.ChannelBoth, "", "")
	h.provider.smsErr = errors.New("connection reset")

	result, err := h.dispatcher.Dispatch(context.Background(), h.dispatchRequest())
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Success)
	assert.Contains(t, result.Results[0].Error, "connection reset")
	assert.True(t, result.Results[1].Success)

	logs := h.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ChannelVoice, logs[0].Channel)
}

func TestConfirmTrueNeverEscalates(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000002", "+254700000003")
	id := h.newReminder(t, "")

	result, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, true))
	require.NoError(t, err)
	assert.Equal(t, &models.ConfirmResult{Success: true, Status: models.StatusConfirmed, Escalated: false}, result)
	assert.Empty(t, h.provider.sms)

	logs := h.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusConfirmed, logs[0].Status)
	assert.NotNil(t, logs[0].ConfirmedAt)
	assert.Equal(t, "Reminder confirmed by user", *logs[0].Message)
	assert.Equal(t, models.StatusConfirmed, h.reminderStatus(t, id))
	assert.Equal(t, []models.ReminderEventType{models.EventReminderConfirmed}, h.events.types())
}

func TestConfirmFalseEscalatesToSecondaryContact(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000002", "")
	id := h.newReminder(t, "")

	result, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, false))
	require.NoError(t, err)
	assert.True(t, result.Escalated)
	assert.Equal(t, models.StatusMissed, result.Status)
	assert.Equal(t, []string{"+254700000002"}, h.provider.sms)
	assert.Equal(t, []string{"Alert: Mama Njeri missed their reminder: Metformin. Please check on them."}, h.provider.messages)
	assert.Equal(t, models.StatusMissed, h.reminderStatus(t, id))
}

func TestConfirmFalseAlsoAlertsForwardingNumber(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000002", "+254700000003")
	id := h.newReminder(t, "")

	result, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, false))
	require.NoError(t, err)
	assert.True(t, result.Escalated)
	assert.Equal(t, []string{"+254700000002", "+254700000003"}, h.provider.sms)

	logs := h.logs(t)
	require.Len(t, logs, 3)
	escalations := 0
	for _, l := range logs {
		if l.ReminderID == nil {
			escalations++
			assert.Equal(t, models.ChannelSMS, l.Channel)
		}
	}
	assert.Equal(t, 2, escalations)
	assert.Equal(t, models.StatusMissed, h.reminderStatus(t, id), "escalation logs do not touch the reminder")
	assert.Equal(t, []models.ReminderEventType{
		models.EventReminderMissed,
		models.EventEscalationSent,
		models.EventEscalationSent,
	}, h.events.types())
}

func TestConfirmFalseWithoutSecondaryContact(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "+254700000003")
	id := h.newReminder(t, "")

	result, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, false))
	require.NoError(t, err)
	assert.False(t, result.Escalated)
	assert.Empty(t, h.provider.sms)
	assert.Len(t, h.logs(t), 1)
}

func TestConfirmTwiceIsNotIdempotent(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "")
	id := h.newReminder(t, "")

	_, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, true))
	require.NoError(t, err)
	second, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, false))
	require.NoError(t, err)
	assert.True(t, second.Success)

	assert.Len(t, h.logs(t), 2)
	assert.Equal(t, models.StatusMissed, h.reminderStatus(t, id))
}

func TestConfirmMissedWithSecondaryContactScenario(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000000", "")
	id := h.newReminder(t, "r1")

	result, err := h.confirmer.Confirm(context.Background(), confirmRequest("r1", false))
	require.NoError(t, err)
	assert.Equal(t, &models.ConfirmResult{Success: true, Status: models.StatusMissed, Escalated: true}, result)

	var escalations []models.ReminderLogWithDetails
	for _, l := range h.logs(t) {
		if l.ReminderID == nil {
			escalations = append(escalations, l)
		}
	}
	require.Len(t, escalations, 1)
	assert.Equal(t, models.ChannelSMS, escalations[0].Channel)
	assert.Equal(t, "r1", id)
}

func TestConfirmUnknownReminder(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000002", "")

	_, err := h.confirmer.Confirm(context.Background(), confirmRequest("missing", false))
	assert.ErrorIs(t, err, apperrors.ErrReminderNotFound)
	assert.Empty(t, h.logs(t))
	assert.Empty(t, h.provider.sms)
}

func TestConfirmRequiresFields(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "")

	_, err := h.confirmer.Confirm(context.Background(), models.ConfirmRequest{ReminderID: "r1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestEscalationFailureIsNotReturned(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000002", "")
	id := h.newReminder(t, "")
	h.provider.smsErr = errors.New("provider down")

	result, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, false))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Escalated)
	assert.Equal(t, []models.ReminderEventType{
		models.EventReminderMissed,
		models.EventEscalationFailed,
	}, h.events.types())
}

func TestEscalationRejectedByProvider(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000002", "")
	id := h.newReminder(t, "")
	h.provider.smsStatus = "InvalidPhoneNumber"

	_, err := h.confirmer.Confirm(context.Background(), confirmRequest(id, false))
	require.NoError(t, err)
	assert.Contains(t, h.events.types(), models.EventEscalationFailed)
	assert.Equal(t, models.StatusMissed, h.reminderStatus(t, id))
}

func TestDispatchThenConfirmThenLateChannelOutcome(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "", "")

	result, err := h.dispatcher.Dispatch(context.Background(), h.dispatchRequest())
	require.NoError(t, err)
	_, err = h.confirmer.Confirm(context.Background(), confirmRequest(result.ReminderID, true))
	require.NoError(t, err)

	sms := channel.NewSMSSender(h.provider, h.store)
	_, err = sms.Send(context.Background(), models.SendRequest{
		To:          "+254700000001",
		Message:     "late",
		ElderlyID:   h.elderly.ID,
		CaregiverID: "cg-1",
		ReminderID:  &result.ReminderID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, h.reminderStatus(t, result.ReminderID))
	assert.Len(t, h.logs(t), 3)
}

func TestDispatchUnknownCaregiverSendsNothing(t *testing.T) {
	h := newHarness(t, models.ChannelBoth, "", "")
	req := h.dispatchRequest()
	req.CaregiverID = "cg-ghost"

	result, err := h.dispatcher.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "cg-ghost")
	}

	assert.Empty(t, h.provider.sms)
	assert.Empty(t, h.provider.calls)
	assert.Empty(t, h.logs(t))
	assert.Equal(t, models.StatusPending, h.reminderStatus(t, result.ReminderID))
}

type failingProfiles struct{}

func (failingProfiles) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return nil, apperrors.Persistence(errors.New("connection reset"))
}

func TestEscalationCaregiverLookupFailureIsCounted(t *testing.T) {
	h := newHarness(t, models.ChannelSMS, "+254700000002", "+254700000003")
	id := h.newReminder(t, "")
	details, err := h.store.GetReminderDetails(context.Background(), id)
	require.NoError(t, err)

	events := &recordingPublisher{}
	escalator := NewEscalator(channel.NewSMSSender(h.provider, h.store), failingProfiles{}, events)
	before := testutil.ToFloat64(metrics.Escalations.WithLabelValues("error"))

	assert.True(t, escalator.Escalate(context.Background(), details))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Escalations.WithLabelValues("error")))
	assert.Equal(t, []string{"+254700000002"}, h.provider.sms, "forwarding number is unknown without the profile")
	assert.Equal(t, []models.ReminderEventType{
		models.EventEscalationSent,
		models.EventEscalationFailed,
	}, events.types())
	assert.Contains(t, events.events[1].Error, "connection reset")
}
