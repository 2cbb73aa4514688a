// Package channel adapts the messaging provider into reminder senders. Every
// completed provider call leaves exactly one reminder log row, so the rows a
// log points at are resolved before the provider is called.
package channel

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cjdreamy/M-kumbusha/internal/africastalking"
	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/metrics"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

// TransitionRecorder persists a log row and the matching reminder status change
type TransitionRecorder interface {
	CheckLogReferences(ctx context.Context, entry *models.ReminderLog) error
	RecordTransition(ctx context.Context, entry *models.ReminderLog) (bool, error)
}

type SMSProvider interface {
	SendSMS(ctx context.Context, to, message string) (*africastalking.SMSResponse, error)
}

type VoiceProvider interface {
	Call(ctx context.Context, to string) (*africastalking.CallResponse, error)
}

type SMSSender struct {
	provider SMSProvider
	store    TransitionRecorder
	now      func() time.Time
}

func NewSMSSender(provider SMSProvider, store TransitionRecorder) *SMSSender {
	return &SMSSender{provider: provider, store: store, now: time.Now}
}

// Send delivers one text message and records the outcome
func (s *SMSSender) Send(ctx context.Context, req models.SendRequest) (*models.SendResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := checkReferences(ctx, s.store, req); err != nil {
		return nil, err
	}

	resp, err := s.provider.SendSMS(ctx, req.To, req.Message)
	if err != nil {
		metrics.DeliveryAttempts.WithLabelValues(string(models.ChannelSMS), "error").Inc()
		logger.Log.Errorf("SMS to %s failed at transport level: %v", req.To, err)
		return nil, apperrors.Provider(err)
	}

	sent, detail := resp.Outcome()
	return record(ctx, s.store, s.now(), models.ChannelSMS, req, sent, detail, resp.Raw)
}

type VoiceSender struct {
	provider VoiceProvider
	store    TransitionRecorder
	now      func() time.Time
}

func NewVoiceSender(provider VoiceProvider, store TransitionRecorder) *VoiceSender {
	return &VoiceSender{provider: provider, store: store, now: time.Now}
}

// Send places one voice call and records the outcome. The message is logged,
// the call itself plays whatever the provider's voice application serves.
func (v *VoiceSender) Send(ctx context.Context, req models.SendRequest) (*models.SendResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := checkReferences(ctx, v.store, req); err != nil {
		return nil, err
	}

	resp, err := v.provider.Call(ctx, req.To)
	if err != nil {
		metrics.DeliveryAttempts.WithLabelValues(string(models.ChannelVoice), "error").Inc()
		logger.Log.Errorf("Voice call to %s failed at transport level: %v", req.To, err)
		return nil, apperrors.Provider(err)
	}

	sent, detail := resp.Outcome()
	return record(ctx, v.store, v.now(), models.ChannelVoice, req, sent, detail, resp.Raw)
}

func validate(req models.SendRequest) error {
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Message) == "" {
		return apperrors.InvalidRequest("Missing required fields: to, message")
	}
	if req.Language != "" && !req.Language.Valid() {
		return apperrors.InvalidRequest("unsupported language %q", req.Language)
	}
	return nil
}

// checkReferences rejects a send whose reminder, elderly record or caregiver
// does not exist, before anything reaches the provider
func checkReferences(ctx context.Context, store TransitionRecorder, req models.SendRequest) error {
	err := store.CheckLogReferences(ctx, &models.ReminderLog{
		ReminderID:  req.ReminderID,
		ElderlyID:   req.ElderlyID,
		CaregiverID: req.CaregiverID,
	})
	switch {
	case err == nil:
		return nil
	case apperrors.IsNotFound(err):
		return apperrors.InvalidRequest("%v", err)
	default:
		return apperrors.Persistence(err)
	}
}

func record(ctx context.Context, store TransitionRecorder, now time.Time, ch models.ReminderChannel,
	req models.SendRequest, sent bool, detail string, raw json.RawMessage) (*models.SendResult, error) {

	status := models.StatusFailed
	if sent {
		status = models.StatusSent
	}

	message := req.Message
	entry := &models.ReminderLog{
		ReminderID:  req.ReminderID,
		ElderlyID:   req.ElderlyID,
		CaregiverID: req.CaregiverID,
		Channel:     ch,
		Status:      status,
		Message:     &message,
		SentAt:      &now,
	}
	if !sent {
		entry.ErrorMessage = &detail
	}

	if _, err := store.RecordTransition(ctx, entry); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.Persistence(err)
	}

	metrics.DeliveryAttempts.WithLabelValues(string(ch), string(status)).Inc()
	if sent {
		logger.Log.Infof("%s to %s sent (log %s)", ch, req.To, entry.ID)
	} else {
		logger.Log.Warnf("%s to %s failed: %s (log %s)", ch, req.To, detail, entry.ID)
	}

	return &models.SendResult{
		Success: sent,
		Status:  status,
		Data:    raw,
	}, nil
}
