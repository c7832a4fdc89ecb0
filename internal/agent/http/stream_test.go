package http

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpulse/plantpulse-backend/config"
	"github.com/plantpulse/plantpulse-backend/internal/agent/llm"
	"github.com/plantpulse/plantpulse-backend/internal/agent/repository"
	"github.com/plantpulse/plantpulse-backend/internal/agent/service"
	alertrepo "github.com/plantpulse/plantpulse-backend/internal/alerts/repository"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
	"github.com/plantpulse/plantpulse-backend/internal/equipment"
	metricrepo "github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
	metricservice "github.com/plantpulse/plantpulse-backend/internal/metrics/service"
)

func newStreamHandler(t *testing.T, ollamaURL string) (*Handler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	llmClient := llm.New(config.OllamaConfig{
		URL: ollamaURL, Model: "llama3:instruct", NumCtx: 1024, NumPredict: 256,
		RatePerSec: 100, Burst: 100,
	})
	ts := metricrepo.NewTimeseriesRepository(db)
	agent := service.NewAgent(
		metricservice.NewSummaryService(ts, nil),
		ts,
		equipment.NewRepo(nil),
		alertrepo.New(db),
		llmClient,
	)
	return New(agent, llmClient, repository.NewChatRepo(db)), mock, db
}

func streamContext(w *httptest.ResponseRecorder, target string) (*gin.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", target, nil).WithContext(ctx)
	c.Set(auth.CtxUserDBID, "u1")
	return c, cancel
}

func convRow(id, title string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}).
		AddRow(id, "u1", title, now, now)
}

func msgRow(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, time.Now())
}

func noAlerts() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "rule_id", "rule_name", "equipment_code", "metric", "value",
		"severity", "priority", "message", "status", "fired_at", "acked_at", "acked_by", "resolved_at",
	})
}

func TestChatStream_GuardrailSingleDelta(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, mock, db := newStreamHandler(t, "http://127.0.0.1:0")
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO chat_conversations`).
		WithArgs("u1", "tell me a joke").
		WillReturnRows(convRow("conv-1", "tell me a joke"))
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs("conv-1", "user", "tell me a joke", "", "").
		WillReturnRows(msgRow(1))
	mock.ExpectExec(`UPDATE chat_conversations SET updated_at`).WithArgs("conv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs("conv-1", "assistant", sqlmock.AnyArg(), repository.SourceGuardrails, "guardrails").
		WillReturnRows(msgRow(2))
	mock.ExpectExec(`UPDATE chat_conversations SET updated_at`).WithArgs("conv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	c, cancel := streamContext(w, "/agent/chat/stream?message=tell+me+a+joke")
	defer cancel()

	h.chatStream(c)

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: delta")
	assert.Contains(t, body, "outside what I cover")
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"route":"guardrails"`)
	assert.Contains(t, body, `"conversation_id":"conv-1"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatStream_LLMForwardsChunks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `{"response":"OEE measures ","done":false}`+"\n")
		flusher.Flush()
		fmt.Fprint(w, `{"response":"equipment effectiveness.","done":true}`+"\n")
	}))
	defer upstream.Close()

	h, mock, db := newStreamHandler(t, upstream.URL)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO chat_conversations`).
		WithArgs("u1", "what is oee").
		WillReturnRows(convRow("conv-2", "what is oee"))
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs("conv-2", "user", "what is oee", "", "").
		WillReturnRows(msgRow(1))
	mock.ExpectExec(`UPDATE chat_conversations SET updated_at`).WithArgs("conv-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// live-state context block built before the generation call
	mock.ExpectQuery(`SELECT DISTINCT equipment_code`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"equipment_code"}))
	mock.ExpectQuery(`WHERE status IN \('firing','acknowledged'\)`).WillReturnRows(noAlerts())
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs("conv-2", "assistant", "OEE measures equipment effectiveness.", repository.SourceLLM, "llm").
		WillReturnRows(msgRow(2))
	mock.ExpectExec(`UPDATE chat_conversations SET updated_at`).WithArgs("conv-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	c, cancel := streamContext(w, "/agent/chat/stream?message=what+is+oee")
	defer cancel()

	h.chatStream(c)

	body := w.Body.String()
	assert.Contains(t, body, `data: "OEE measures "`)
	assert.Contains(t, body, `data: "equipment effectiveness."`)
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"route":"llm"`)
	assert.Contains(t, body, `"conversation_id":"conv-2"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatStream_ClientCancelStopsUpstream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `{"response":"partial ","done":false}`+"\n")
		flusher.Flush()
		cancel()
		// Give the cancellation time to tear the connection down; the
		// second chunk must never reach the client.
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"response":"never seen","done":false}`+"\n")
	}))
	defer upstream.Close()

	h, mock, db := newStreamHandler(t, upstream.URL)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO chat_conversations`).
		WithArgs("u1", "what is oee").
		WillReturnRows(convRow("conv-3", "what is oee"))
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs("conv-3", "user", "what is oee", "", "").
		WillReturnRows(msgRow(1))
	mock.ExpectExec(`UPDATE chat_conversations SET updated_at`).WithArgs("conv-3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT DISTINCT equipment_code`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"equipment_code"}))
	mock.ExpectQuery(`WHERE status IN \('firing','acknowledged'\)`).WillReturnRows(noAlerts())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/agent/chat/stream?message=what+is+oee", nil).WithContext(ctx)
	c.Set(auth.CtxUserDBID, "u1")

	h.chatStream(c)

	body := w.Body.String()
	assert.Contains(t, body, `data: "partial "`)
	assert.NotContains(t, body, "never seen")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatStream_UnknownConversation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h, mock, db := newStreamHandler(t, "http://127.0.0.1:0")
	defer db.Close()

	mock.ExpectQuery(`FROM chat_conversations`).
		WithArgs("conv-9", "u1").
		WillReturnError(sql.ErrNoRows)

	w := httptest.NewRecorder()
	c, cancel := streamContext(w, "/agent/chat/stream?message=any+alerts+firing&conversation_id=conv-9")
	defer cancel()

	h.chatStream(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
