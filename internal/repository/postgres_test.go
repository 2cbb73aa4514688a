package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

const (
	lockReminderSQL = `SELECT status FROM reminders WHERE id = $1 FOR UPDATE`
	updateStatusSQL = `UPDATE reminders SET status = $2, updated_at = NOW() WHERE id = $1`
	insertLogSQL    = `INSERT INTO reminder_logs`
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), sqlMock
}

func transitionEntry(reminderID *string, status models.ReminderStatus) *models.ReminderLog {
	message := "Reminder: Metformin."
	return &models.ReminderLog{
		ReminderID:  reminderID,
		ElderlyID:   uuid.NewString(),
		CaregiverID: "cg-1",
		Channel:     models.ChannelSMS,
		Status:      status,
		Message:     &message,
	}
}

func createdAtRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"created_at"}).AddRow(time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC))
}

func TestPostgresRecordTransitionCommitsAppliedStatus(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	id := uuid.NewString()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta(lockReminderSQL)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	sqlMock.ExpectExec(regexp.QuoteMeta(updateStatusSQL)).
		WithArgs(id, "sent").
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectQuery(insertLogSQL).WillReturnRows(createdAtRow())
	sqlMock.ExpectCommit()

	entry := transitionEntry(&id, models.StatusSent)
	applied, err := store.RecordTransition(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 2026, entry.CreatedAt.Year())
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRecordTransitionKeepsConfirmedStatus(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	id := uuid.NewString()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta(lockReminderSQL)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("confirmed"))
	sqlMock.ExpectQuery(insertLogSQL).WillReturnRows(createdAtRow())
	sqlMock.ExpectCommit()

	applied, err := store.RecordTransition(context.Background(), transitionEntry(&id, models.StatusFailed))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRecordTransitionRollsBackWhenLogInsertFails(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	id := uuid.NewString()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta(lockReminderSQL)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	sqlMock.ExpectExec(regexp.QuoteMeta(updateStatusSQL)).
		WithArgs(id, "missed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectQuery(insertLogSQL).
		WillReturnError(errors.New(`insert or update on table "reminder_logs" violates foreign key constraint`))
	sqlMock.ExpectRollback()

	applied, err := store.RecordTransition(context.Background(), transitionEntry(&id, models.StatusMissed))
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.False(t, applied)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRecordTransitionUnknownReminder(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	id := uuid.NewString()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta(lockReminderSQL)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	sqlMock.ExpectRollback()

	_, err := store.RecordTransition(context.Background(), transitionEntry(&id, models.StatusSent))
	assert.ErrorIs(t, err, apperrors.ErrReminderNotFound)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRecordTransitionMalformedReminderID(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	id := "r1"

	_, err := store.RecordTransition(context.Background(), transitionEntry(&id, models.StatusSent))
	assert.ErrorIs(t, err, apperrors.ErrReminderNotFound)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRecordTransitionWithoutReminderOnlyInsertsLog(t *testing.T) {
	store, sqlMock := newMockPostgres(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(insertLogSQL).WillReturnRows(createdAtRow())
	sqlMock.ExpectCommit()

	applied, err := store.RecordTransition(context.Background(), transitionEntry(nil, models.StatusSent))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresCheckLogReferences(t *testing.T) {
	reminderID := uuid.NewString()
	referenceSQL := regexp.QuoteMeta(`EXISTS (SELECT 1 FROM elderly WHERE id = $1)`)

	tests := []struct {
		name    string
		found   []bool
		wantErr error
	}{
		{"all present", []bool{true, true, true}, nil},
		{"unknown elderly", []bool{false, true, true}, apperrors.ErrNotFound},
		{"unknown caregiver", []bool{true, false, true}, apperrors.ErrNotFound},
		{"unknown reminder", []bool{true, true, false}, apperrors.ErrReminderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, sqlMock := newMockPostgres(t)
			entry := transitionEntry(&reminderID, models.StatusSent)

			sqlMock.ExpectQuery(referenceSQL).
				WithArgs(entry.ElderlyID, "cg-1", reminderID).
				WillReturnRows(sqlmock.NewRows([]string{"elderly", "caregiver", "reminder"}).
					AddRow(tt.found[0], tt.found[1], tt.found[2]))

			err := store.CheckLogReferences(context.Background(), entry)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestPostgresCheckLogReferencesWithoutReminder(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	entry := transitionEntry(nil, models.StatusSent)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`$3 = '' OR EXISTS (SELECT 1 FROM reminders WHERE id::text = $3)`)).
		WithArgs(entry.ElderlyID, "cg-1", "").
		WillReturnRows(sqlmock.NewRows([]string{"elderly", "caregiver", "reminder"}).AddRow(true, true, true))

	assert.NoError(t, store.CheckLogReferences(context.Background(), entry))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresMalformedIDsSkipTheDatabase(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	ctx := context.Background()

	_, err := store.GetElderly(ctx, "e-42")
	assert.True(t, apperrors.IsNotFound(err))

	entry := transitionEntry(nil, models.StatusSent)
	entry.ElderlyID = "e-42"
	assert.True(t, apperrors.IsNotFound(store.CheckLogReferences(ctx, entry)))

	bad := "r1"
	assert.ErrorIs(t, store.CheckLogReferences(ctx, transitionEntry(&bad, models.StatusSent)), apperrors.ErrReminderNotFound)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresListReminderLogsFilters(t *testing.T) {
	store, sqlMock := newMockPostgres(t)
	sentAt := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	columns := []string{"id", "reminder_id", "elderly_id", "caregiver_id", "channel", "status", "message",
		"error_message", "sent_at", "delivered_at", "confirmed_at", "created_at", "elderly_name", "caregiver_name"}

	sqlMock.ExpectQuery(regexp.QuoteMeta(`WHERE ($1 = '' OR l.elderly_id::text = $1) AND ($2 = '' OR l.caregiver_id = $2)`)).
		WithArgs("", "cg-1", DefaultLogLimit).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"log-1", nil, "e-1", "cg-1", "sms", "sent", "Reminder: Metformin.",
			nil, sentAt, nil, nil, sentAt, "Mama Njeri", "Wanjiku",
		))

	logs, err := store.ListReminderLogs(context.Background(), models.LogFilter{CaregiverID: "cg-1"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].ReminderID)
	assert.Equal(t, models.ChannelSMS, logs[0].Channel)
	assert.Equal(t, models.StatusSent, logs[0].Status)
	assert.Equal(t, "Mama Njeri", logs[0].ElderlyName)
	require.NotNil(t, logs[0].SentAt)
	assert.True(t, sentAt.Equal(*logs[0].SentAt))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresListReminderLogsClampsLimit(t *testing.T) {
	store, sqlMock := newMockPostgres(t)

	sqlMock.ExpectQuery(`FROM reminder_logs l`).
		WithArgs("", "", MaxLogLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	logs, err := store.ListReminderLogs(context.Background(), models.LogFilter{Limit: 10000})
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
