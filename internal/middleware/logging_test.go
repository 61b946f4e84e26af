package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natthaphon/secretkeeper/internal/model"
	"github.com/natthaphon/secretkeeper/internal/repository"
	"github.com/natthaphon/secretkeeper/internal/session"
)

func TestRequestLoggerBasicFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := RequestLogger(&logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/missing"`)
	assert.Contains(t, line, `"status":404`)
	assert.NotContains(t, line, "user_id")
}

func TestRequestLoggerEmitsUserIDBehindGate(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	nop := zerolog.Nop()

	users := repository.NewUserMemoryRepository()
	sessions := session.NewManager(users, session.Config{TTL: time.Hour}, &nop)
	t.Cleanup(sessions.Close)

	user, err := users.CreateUser(context.Background(), &model.User{Username: "alice"})
	require.NoError(t, err)
	s, err := sessions.Create(user)
	require.NoError(t, err)

	// The logger runs upstream of the gate, the way the router chains them.
	handler := RequestLogger(&logger)(RequireAuthenticated(sessions)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	req.AddCookie(&http.Cookie{Name: "sk_session", Value: s.ID})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"user_id":"`+user.ID.Hex()+`"`)
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	rec := NewStatusRecorder(httptest.NewRecorder())

	_, err := rec.Write([]byte("ok"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Status)

	// A later WriteHeader cannot rewrite the recorded status.
	rec.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusOK, rec.Status)
}
