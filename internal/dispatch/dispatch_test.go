package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/config"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/types"
)

func TestMain(m *testing.M) {
	logger.Init("error", "test")
	os.Exit(m.Run())
}

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	db.DB = gdb
	t.Cleanup(func() { db.DB = nil })

	return mock
}

func testEvent(actionType string, actionConfig string) Event {
	rule := models.AutomationRule{
		UserID:       7,
		Name:         "Revenue alert",
		Enabled:      true,
		ActionType:   actionType,
		ActionConfig: []byte(actionConfig),
	}
	rule.ID = 3

	return Event{
		Rule: rule,
		Condition: types.RuleCondition{
			Metric:      "revenue",
			Operator:    types.OpGreater,
			Threshold:   1000,
			Aggregation: types.AggSum,
			Limit:       3,
		},
		Value:       1100,
		TriggeredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func expectLogAndTimestamp(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`INSERT INTO "automation_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "automation_rules"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestDispatchInAppWritesLogTimestampAndNotification(t *testing.T) {
	mock := setupMockDB(t)

	expectLogAndTimestamp(mock)
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	Dispatch(context.Background(), testEvent(types.ActionInApp, `{}`))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchIsNotIdempotent(t *testing.T) {
	// Re-dispatching the same trigger produces a second log and a second
	// notification; there is no dedup key.
	mock := setupMockDB(t)

	for i := 0; i < 2; i++ {
		expectLogAndTimestamp(mock)
		mock.ExpectQuery(`INSERT INTO "notifications"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(i + 1)))
	}

	ev := testEvent(types.ActionInApp, `{}`)
	Dispatch(context.Background(), ev)
	Dispatch(context.Background(), ev)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchWebhookPostsText(t *testing.T) {
	mock := setupMockDB(t)
	expectLogAndTimestamp(mock)

	var received WebhookRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ev := testEvent(types.ActionSlack, `{"webhook_url":"`+server.URL+`"}`)
	Dispatch(context.Background(), ev)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, received.Text, "Revenue alert")
	assert.Contains(t, received.Text, "revenue > 1000.00")
}

func TestDispatchEmailFailureFallsBackToInApp(t *testing.T) {
	mock := setupMockDB(t)
	expectLogAndTimestamp(mock)

	// Email failure is compensated with an in-app notification.
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	oldURL := config.App.MailFunctionURL
	config.App.MailFunctionURL = server.URL
	t.Cleanup(func() { config.App.MailFunctionURL = oldURL })

	Dispatch(context.Background(), testEvent(types.ActionEmail, `{"to":"user@example.com"}`))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchEmailSendsTemplateVars(t *testing.T) {
	mock := setupMockDB(t)
	expectLogAndTimestamp(mock)

	var received EmailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	oldURL := config.App.MailFunctionURL
	config.App.MailFunctionURL = server.URL
	t.Cleanup(func() { config.App.MailFunctionURL = oldURL })

	Dispatch(context.Background(), testEvent(types.ActionEmail, `{"to":"user@example.com","template":"threshold-alert"}`))

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "user@example.com", received.To)
	assert.Equal(t, "threshold-alert", received.Template)
	assert.Equal(t, "Revenue alert", received.TemplateVars["rule_name"])
	assert.Equal(t, "1100.00", received.TemplateVars["currentValue"])
	assert.Equal(t, ">", received.TemplateVars["operator"])
	assert.Equal(t, "1000.00", received.TemplateVars["threshold"])
}

func TestDispatchNotificationFailureDoesNotRollBack(t *testing.T) {
	mock := setupMockDB(t)

	// Log and timestamp writes land even when the final notify step fails.
	expectLogAndTimestamp(mock)
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnError(assert.AnError)

	Dispatch(context.Background(), testEvent(types.ActionInApp, `{}`))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventMessage(t *testing.T) {
	ev := testEvent(types.ActionInApp, `{}`)

	assert.Equal(t,
		`Automation rule "Revenue alert" triggered: revenue > 1000.00 (current value 1100.00)`,
		ev.Message())
}
