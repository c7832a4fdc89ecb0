package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
)

func setupRepo(t *testing.T) (*Repo, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return New(db), mock, db
}

func alertColumns() []string {
	return []string{
		"id", "rule_id", "rule_name", "equipment_code", "metric", "value",
		"severity", "priority", "message", "status", "fired_at", "acked_at", "acked_by", "resolved_at",
	}
}

func TestRepo_CreateAlert(t *testing.T) {
	repo, mock, db := setupRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs("alert-1", int64(7), "low-runtime", "CNC-07", "runtime_min", 4.2,
			"warning", 58, "CNC-07: runtime low", "firing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateAlert(context.Background(), &domain.Alert{
		ID: "alert-1", RuleID: 7, RuleName: "low-runtime", EquipmentCode: "CNC-07",
		Metric: "runtime_min", Value: 4.2, Severity: domain.SeverityWarning,
		Priority: 58, Message: "CNC-07: runtime low", Status: domain.StatusFiring,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Firing(t *testing.T) {
	repo, mock, db := setupRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`WHERE status IN \('firing','acknowledged'\)`).
		WillReturnRows(sqlmock.NewRows(alertColumns()).
			AddRow("a1", int64(7), "low-runtime", "CNC-07", "runtime_min", 4.2,
				"critical", 85, "msg", "firing", now, nil, nil, nil).
			AddRow("a2", int64(0), "stale-data", "PRESS-12", "ingest", 0.0,
				"warning", 52, "msg", "acknowledged", now, now, "user-1", nil))

	out, err := repo.Firing(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0].ID)
	assert.Equal(t, domain.StatusAcknowledged, out[1].Status)
	require.NotNil(t, out[1].AckedBy)
	assert.Equal(t, "user-1", *out[1].AckedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Acknowledge(t *testing.T) {
	repo, mock, db := setupRepo(t)
	defer db.Close()

	t.Run("acknowledges a firing alert", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`UPDATE alerts`).
			WithArgs("a1", "user-1").
			WillReturnRows(sqlmock.NewRows(alertColumns()).
				AddRow("a1", int64(7), "low-runtime", "CNC-07", "runtime_min", 4.2,
					"warning", 58, "msg", "acknowledged", now, now, "user-1", nil))

		out, err := repo.Acknowledge(context.Background(), "a1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAcknowledged, out.Status)
	})

	t.Run("not found when already resolved", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE alerts`).
			WithArgs("a1", "user-1").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Acknowledge(context.Background(), "a1", "user-1")
		assert.ErrorIs(t, err, domain.ErrAlertNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Resolve(t *testing.T) {
	repo, mock, db := setupRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SET status = 'resolved'`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(alertColumns()).
			AddRow("a1", int64(7), "low-runtime", "CNC-07", "runtime_min", 4.2,
				"warning", 58, "msg", "resolved", now, nil, nil, now))

	out, err := repo.Resolve(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, out.Status)
	require.NotNil(t, out.ResolvedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ListRules(t *testing.T) {
	repo, mock, db := setupRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM alert_rules`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "metric", "equipment_code", "condition", "threshold",
			"window_min", "severity", "enabled", "created_at", "updated_at",
		}).AddRow(int64(1), "low-runtime", "runtime_min", "", "lt", 10.0, 15, "warning", true, now, now))

	rules, err := repo.ListRules(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "low-runtime", rules[0].Name)
	assert.Equal(t, 15, rules[0].WindowMin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_DeleteRule(t *testing.T) {
	repo, mock, db := setupRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM alert_rules`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteRule(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
