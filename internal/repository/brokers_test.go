package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func brokerColumns() []string {
	return []string{
		"id", "tenant_id", "name", "host", "port", "username", "password", "transport",
		"topic_pattern", "default_enterprise", "default_site", "default_area",
		"use_tls", "enabled", "subscribed_events", "last_connected_at", "last_error",
		"created_at", "updated_at",
	}
}

func TestListSubscribedScopesByTenantAndEvent(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewBrokersRepository(dbx)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM brokers").
		WithArgs("tnt_acme", "operation.started").
		WillReturnRows(sqlmock.NewRows(brokerColumns()).AddRow(
			"brk_1", "tnt_acme", "plant mqtt", "mqtt.local", 1883, "", "", "mqtt",
			"{enterprise}/{event}", "acme", "", "",
			false, true, "operation.started,job.completed", nil, nil,
			now, now,
		))

	brokers, err := repo.ListSubscribed(context.Background(), "tnt_acme", "operation.started")
	require.NoError(t, err)
	require.Len(t, brokers, 1)
	assert.Equal(t, "brk_1", brokers[0].ID)
	assert.True(t, brokers[0].SubscribedTo("operation.started"))
	assert.False(t, brokers[0].SubscribedTo("part.scrapped"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubscribedEmptyIsNotAnError(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewBrokersRepository(dbx)

	mock.ExpectQuery("SELECT (.+) FROM brokers").
		WithArgs("tnt_acme", "never.subscribed").
		WillReturnRows(sqlmock.NewRows(brokerColumns()))

	brokers, err := repo.ListSubscribed(context.Background(), "tnt_acme", "never.subscribed")
	require.NoError(t, err)
	assert.Empty(t, brokers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkConnectedClearsLastError(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewBrokersRepository(dbx)

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE brokers SET last_connected_at = \\?, last_error = NULL").
		WithArgs(at, "brk_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkConnected(context.Background(), "brk_1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedKeepsLastConnectedAt(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewBrokersRepository(dbx)

	mock.ExpectExec("UPDATE brokers SET last_error = \\?").
		WithArgs("broker x unreachable via 4 bridge endpoint(s): ...", "brk_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), "brk_1", "broker x unreachable via 4 bridge endpoint(s): ..."))
	require.NoError(t, mock.ExpectationsWereMet())
}
