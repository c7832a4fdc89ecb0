package audit

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
	"github.com/plantpulse/plantpulse-backend/internal/auth/domain"
)

func setupAuditRepo(t *testing.T) (*Repo, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewRepo(db), mock, db
}

func TestRepo_Record(t *testing.T) {
	repo, mock, db := setupAuditRepo(t)
	defer db.Close()

	t.Run("inserts an entry", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO audit_logs`).
			WithArgs("4be0643f-1d98-4f84-9e2c-38e32c8a9d51", "uid-1", "POST /api/v1/equipment", "equipment", "CNC-07", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Record(context.Background(), Entry{
			ActorID:  "4be0643f-1d98-4f84-9e2c-38e32c8a9d51",
			ActorUID: "uid-1",
			Action:   "POST /api/v1/equipment",
			Entity:   "equipment",
			EntityID: "CNC-07",
			Detail:   []byte(`{"status":201}`),
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects entries without action or entity", func(t *testing.T) {
		err := repo.Record(context.Background(), Entry{Action: "POST /x"})
		assert.Error(t, err)
	})
}

func TestRepo_List(t *testing.T) {
	repo, mock, db := setupAuditRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM audit_logs`).
		WithArgs("equipment", "", sqlmock.AnyArg(), sqlmock.AnyArg(), 100, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "actor_id", "actor_uid", "action", "entity", "entity_id", "detail", "created_at",
		}).AddRow(int64(1), "", "uid-1", "POST /api/v1/equipment", "equipment", "", []byte(`{}`), now))

	out, err := repo.List(context.Background(), ListFilter{Entity: "equipment"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "uid-1", out[0].ActorUID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_PurgeOlderThan(t *testing.T) {
	repo, mock, db := setupAuditRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM audit_logs`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 42))

	n, err := repo.PurgeOlderThan(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityFromPath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/equipment/CNC-07/status": "equipment",
		"/api/v1/alerts":                  "alerts",
		"/api/v1/":                        "api",
		"/healthz":                        "api",
	}
	for path, want := range cases {
		assert.Equal(t, want, entityFromPath(path), "path %s", path)
	}
}

func TestRecordChange(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo, mock, db := setupAuditRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("", "uid-1", "equipment.status", "equipment", "CNC-07",
			[]byte(`{"from":"running","to":"down"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("PUT", "/api/v1/equipment/CNC-07/status", nil)
	c.Set(auth.CtxFirebaseUID, "uid-1")

	RecordChange(c, repo, "equipment.status", "equipment", "CNC-07",
		gin.H{"from": "running", "to": "down"})
	require.NoError(t, mock.ExpectationsWereMet())

	// nil repo is a no-op
	RecordChange(c, nil, "equipment.status", "equipment", "CNC-07", nil)
}

func TestHandler_ListRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo, mock, db := setupAuditRepo(t)
	defer db.Close()

	newRouter := func(role string) *gin.Engine {
		r := gin.New()
		grp := r.Group("/api/v1")
		grp.Use(func(c *gin.Context) { c.Set(auth.CtxUserRole, role) })
		NewHandler(repo).Register(grp)
		return r
	}

	t.Run("viewer is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(domain.RoleViewer).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/audit", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin can list", func(t *testing.T) {
		mock.ExpectQuery(`FROM audit_logs`).
			WithArgs("", "", sqlmock.AnyArg(), sqlmock.AnyArg(), 100, 0).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "actor_id", "actor_uid", "action", "entity", "entity_id", "detail", "created_at",
			}))

		w := httptest.NewRecorder()
		newRouter(domain.RoleAdmin).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/audit", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMiddleware_RecordsMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo, mock, db := setupAuditRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("", "", "POST /api/v1/equipment", "equipment", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := gin.New()
	r.Use(Middleware(repo))
	r.POST("/api/v1/equipment", func(c *gin.Context) { c.JSON(http.StatusCreated, gin.H{"ok": true}) })
	r.GET("/api/v1/equipment", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/equipment", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	// GET must not be audited: no further expectations registered.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/equipment", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}
