package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
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

func ruleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "name", "enabled", "condition", "action_type", "action_config",
	})
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "fields", "date_recorded"})
}

func TestRunSweepLoaderFailureAbortsBatch(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "automation_rules"`).
		WillReturnError(assert.AnError)

	results, err := RunSweep(context.Background())

	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestRunSweepRecoversPerRuleFailures(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "automation_rules"`).
		WillReturnRows(ruleRows().
			AddRow(1, 7, "Quiet rule", true, []byte(`{"metric":"revenue","operator":">","threshold":1000}`), "in_app", []byte(`{}`)).
			AddRow(2, 7, "Broken rule", true, []byte(`{not json`), "in_app", []byte(`{}`)))

	// Rule 1: latest revenue is 500, threshold 1000, no trigger.
	mock.ExpectQuery(`SELECT \* FROM "metric_records"`).
		WillReturnRows(recordRows().
			AddRow(10, 7, []byte(`{"revenue":500}`), time.Now()))

	// Rule 2 never reaches the record fetch; its condition fails to parse.

	results, err := RunSweep(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, uint(1), results[0].RuleID)
	assert.False(t, results[0].Triggered)
	assert.Equal(t, 500.0, results[0].Value)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, uint(2), results[1].RuleID)
	assert.False(t, results[1].Triggered)
	assert.Equal(t, "invalid rule condition", results[1].Error)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSweepRecordFetchFailureIsRecoverable(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "automation_rules"`).
		WillReturnRows(ruleRows().
			AddRow(1, 7, "Revenue alert", true, []byte(`{"metric":"revenue","operator":">","threshold":1000}`), "in_app", []byte(`{}`)))

	mock.ExpectQuery(`SELECT \* FROM "metric_records"`).
		WillReturnError(assert.AnError)

	results, err := RunSweep(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Triggered)
	assert.Equal(t, "failed to fetch metric records", results[0].Error)
}

func TestRunSweepTriggeredRuleDispatchesInApp(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "automation_rules"`).
		WillReturnRows(ruleRows().
			AddRow(1, 7, "Revenue alert", true, []byte(`{"metric":"revenue","operator":">","threshold":1000,"aggregation":"sum","limit":3}`), "in_app", []byte(`{}`)))

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "metric_records"`).
		WillReturnRows(recordRows().
			AddRow(10, 7, []byte(`{"revenue":500}`), now).
			AddRow(11, 7, []byte(`{"revenue":400}`), now.Add(-24*time.Hour)).
			AddRow(12, 7, []byte(`{"revenue":200}`), now.Add(-48*time.Hour)))

	// Dispatch sequence: log, last_triggered, in-app notification.
	mock.ExpectQuery(`INSERT INTO "automation_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "automation_rules"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	results, err := RunSweep(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Triggered)
	assert.Equal(t, 1100.0, results[0].Value)

	assert.NoError(t, mock.ExpectationsWereMet())
}
