package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/app"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/auth"
	"github.com/Spok95/school-portal/internal/chatbot"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type botStore struct{ msgs []models.BotMessage }

func (s botStore) ActiveMessages(context.Context) ([]models.BotMessage, error) { return s.msgs, nil }
func (botStore) IncrementUsage(context.Context, int64) error                   { return nil }

type env struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	tokens *auth.Issuer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	tokens := auth.NewIssuer("0123456789abcdef0123456789abcdef", "test", time.Hour)
	bot := chatbot.New(botStore{msgs: []models.BotMessage{
		{ID: 1, Keywords: "grade,grades", ResponseText: "Grades are posted every quarter", Priority: 5, IsActive: true},
	}}, nil, nil)
	a := app.New(app.Deps{DB: conn, Tokens: tokens, Chatbot: bot})

	resolve := func(_ context.Context, userID int64, role models.Role) (access.Identity, error) {
		switch role {
		case models.Parent:
			return access.ParentIdentity{UserID: userID, ParentID: 1}, nil
		case models.Teacher:
			return access.TeacherIdentity{UserID: userID, TeacherID: 2}, nil
		case models.Admin:
			return access.AdminIdentity{UserID: userID}, nil
		}
		return nil, apperr.ErrUnauthenticated
	}
	r := NewRouter(Deps{App: a, DB: conn, Tokens: tokens, Resolve: resolve})
	return &env{router: r, mock: mock, tokens: tokens}
}

func (e *env) do(t *testing.T, method, path, body string, role models.Role) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if role != "" {
		tok, err := e.tokens.Issue(models.User{ID: 100, Username: "u", Role: role})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuth_MissingToken(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/notifications", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing bearer token", decode(t, w)["error"])
}

func TestAuth_BadToken(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)

	e.mock.ExpectPing()
	w := e.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	e.mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	w = e.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, e.mock.ExpectationsWereMet())
}

func TestSendMessage_EmptyContent(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/chat/rooms/5/messages", `{"content":"   "}`, models.Parent)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"error": "Message cannot be empty"}, decode(t, w))
	require.NoError(t, e.mock.ExpectationsWereMet())
}

func TestSendMessage_MalformedBody(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/chat/rooms/5/messages", `{"content":`, models.Parent)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w)["error"])
}

func TestSendMessage_InvalidRoomID(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/chat/rooms/abc/messages", `{"content":"hi"}`, models.Parent)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id", decode(t, w)["error"])
}

func TestSendMessage_AdminForbidden(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(`FROM chat_rooms r`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id", "teacher_id", "subject", "is_active", "is_archived", "last_message_at", "created_at", "pu", "tu"}).
			AddRow(int64(5), int64(1), int64(2), "", true, false, nil, time.Now(), int64(100), int64(200)))

	w := e.do(t, http.MethodPost, "/api/chat/rooms/5/messages", `{"content":"hi"}`, models.Admin)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChatbot(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/chatbot", `{"query":"When are GRADES out?"}`, models.Parent)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true, "response": "Grades are posted every quarter"}, decode(t, w))

	w = e.do(t, http.MethodPost, "/api/chatbot", `{"query":"bus schedule"}`, models.Teacher)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chatbot.Fallback, decode(t, w)["response"])

	w = e.do(t, http.MethodPost, "/api/chatbot", `{"query":""}`, models.Teacher)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{apperr.Invalid("title", "is required"), http.StatusBadRequest, "is required"},
		{app.ErrBadLogin, http.StatusUnauthorized, "invalid username or password"},
		{apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{apperr.ErrNotFound, http.StatusNotFound, "not found"},
		{apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
		{errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		writeError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), tc.msg)
	}
}

func TestRequestIDHeader(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectPing()

	w := e.do(t, http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReachesRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen, _ = ctxutil.RequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-7", seen)
	assert.Equal(t, "req-7", w.Header().Get("X-Request-ID"))
}
