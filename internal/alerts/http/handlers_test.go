package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpulse/plantpulse-backend/internal/alerts/repository"
	"github.com/plantpulse/plantpulse-backend/internal/audit"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
	authdomain "github.com/plantpulse/plantpulse-backend/internal/auth/domain"
)

// Acknowledging an alert must also leave an explicit audit entry keyed by the
// alert id, on top of whatever the generic request middleware records.
func TestAck_RecordsAuditEntry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	acked := now.Add(time.Minute)
	ackedBy := "4be0643f-1d98-4f84-9e2c-38e32c8a9d51"

	mock.ExpectQuery(`UPDATE alerts`).
		WithArgs("al-1", ackedBy).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "rule_id", "rule_name", "equipment_code", "metric", "value",
			"severity", "priority", "message", "status", "fired_at", "acked_at", "acked_by", "resolved_at",
		}).AddRow("al-1", int64(7), "low-runtime", "CNC-07", "runtime_min", 4.2,
			"critical", 85, "CNC-07: runtime low", "acknowledged", now, acked, ackedBy, nil))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(ackedBy, "uid-1", "alerts.ack", "alerts", "al-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := New(repository.New(db), nil, audit.NewRepo(db), nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxUserDBID, ackedBy)
		c.Set(auth.CtxFirebaseUID, "uid-1")
		c.Set(auth.CtxUserRole, authdomain.RoleOperator)
	})
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/alerts/al-1/ack", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
