package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/interfaces/mocks"
	internalmetrics "github.com/haguru/schooladmin/internal/metrics"
	"github.com/haguru/schooladmin/internal/models"
	"github.com/haguru/schooladmin/internal/models/dto"
	"github.com/haguru/schooladmin/internal/userservice"
	"github.com/haguru/schooladmin/pkg/hasher"
	"github.com/haguru/schooladmin/pkg/metrics"
	"github.com/haguru/schooladmin/pkg/zerolog"

	structValidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const namespace = "test"

func newRoute(t *testing.T, repo *mocks.MockUserRepository, reveal bool) (*Route, interfaces.Metrics) {
	t.Helper()
	logger := zerolog.NewLogger(namespace, io.Discard)
	m := metrics.NewMetrics(namespace)
	internalmetrics.Register(m)

	svc := userservice.NewUserService(repo, hasher.NewBcryptHasher(bcrypt.MinCost), logger)
	return NewRoute(m, svc, repo, logger, structValidator.New(), reveal), m
}

// HashString creates a bcrypt hash of the input string
func HashString(t *testing.T, input string) string {
	t.Helper()
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(input), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashedBytes)
}

func counterValue(t *testing.T, m interfaces.Metrics, name, reason string) float64 {
	t.Helper()
	families, err := m.GetRegistry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != namespace+"_"+name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if reason == "" {
				return metric.GetCounter().GetValue()
			}
			for _, label := range metric.GetLabel() {
				if label.GetName() == internalmetrics.ReasonLabel && label.GetValue() == reason {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) dto.Envelope {
	t.Helper()
	var env dto.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func TestRoute_Login(t *testing.T) {
	stored := models.NewUser("testuser", "")
	stored.ID = "u-1"
	stored.Role = "admin"

	tests := []struct {
		name           string
		method         string
		contentType    string
		body           string
		setup          func(t *testing.T, repo *mocks.MockUserRepository)
		wantStatusCode int
		wantMessage    string
		wantReason     string
	}{
		{
			name:        "Valid login request",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"username":"testuser","password":"testpass"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				u := *stored
				u.Password = HashString(t, "testpass")
				repo.On("GetUserByUsername", mock.Anything, "testuser").Return(&u, nil)
			},
			wantStatusCode: http.StatusOK,
			wantMessage:    MsgLoginSuccessful,
		},
		{
			name:        "Charset parameter is accepted",
			method:      http.MethodPost,
			contentType: "application/json; charset=utf-8",
			body:        `{"username":"testuser","password":"x"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "testuser").Return(nil, nil)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    MsgInvalidCredentials,
			wantReason:     internalmetrics.ReasonUnauthorized,
		},
		{
			name:           "Invalid method",
			method:         http.MethodGet,
			contentType:    "application/json",
			wantStatusCode: http.StatusMethodNotAllowed,
			wantMessage:    MsgMethodNotAllowed,
			wantReason:     internalmetrics.ReasonMethod,
		},
		{
			name:           "Missing Content-Type",
			method:         http.MethodPost,
			body:           `{"username":"testuser","password":"testpass"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgInvalidContentType,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:           "Invalid JSON body",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"username":"testuser""password":"testpass"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgInvalidRequestBody,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:           "Missing password never reaches the directory",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"username":"testuser"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgLoginFieldsRequired,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:           "Empty username",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"username":"","password":"testpass"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgLoginFieldsRequired,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:        "Unknown user",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"username":"ghost","password":"testpass"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, nil)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    MsgInvalidCredentials,
			wantReason:     internalmetrics.ReasonUnauthorized,
		},
		{
			name:        "Wrong password",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"username":"testuser","password":"nope"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				u := *stored
				u.Password = HashString(t, "testpass")
				repo.On("GetUserByUsername", mock.Anything, "testuser").Return(&u, nil)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    MsgInvalidCredentials,
			wantReason:     internalmetrics.ReasonUnauthorized,
		},
		{
			name:        "Directory failure",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"username":"testuser","password":"testpass"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "testuser").Return(nil, errors.New("connection refused"))
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    MsgInvalidCredentials,
			wantReason:     internalmetrics.ReasonUnauthorized,
		},
		{
			name:        "Malformed stored hash",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"username":"testuser","password":"testpass"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				u := *stored
				u.Password = "testpass"
				repo.On("GetUserByUsername", mock.Anything, "testuser").Return(&u, nil)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    MsgInternalServerError,
			wantReason:     internalmetrics.ReasonInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, LoginRouteAPI, bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set(ContentType, tt.contentType)
			}
			rr := httptest.NewRecorder()

			userRepo := mocks.NewMockUserRepository(t)
			if tt.setup != nil {
				tt.setup(t, userRepo)
			}
			r, m := newRoute(t, userRepo, false)

			r.Login(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Equal(t, ContentTypeJson, rr.Header().Get(ContentType))
			env := decodeEnvelope(t, rr)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.NotContains(t, rr.Body.String(), `"password"`)
			assert.NotContains(t, rr.Body.String(), "$2a$")

			if tt.wantStatusCode == http.StatusOK {
				assert.True(t, env.Success)
				require.NotNil(t, env.User)
				assert.Equal(t, "testuser", env.User.Username)
				assert.Equal(t, "u-1", env.User.ID)
				assert.Equal(t, "admin", env.User.Role)
				assert.Equal(t, 1.0, counterValue(t, m, internalmetrics.LoginSuccessTotal, ""))
			} else {
				assert.False(t, env.Success)
				assert.Nil(t, env.User)
				assert.Equal(t, 1.0, counterValue(t, m, internalmetrics.LoginFailedTotal, tt.wantReason))
			}
		})
	}
}

func TestRoute_Login_UniformRejection(t *testing.T) {
	bodies := make([]string, 0, 2)
	for _, known := range []bool{true, false} {
		repo := mocks.NewMockUserRepository(t)
		if known {
			repo.On("GetUserByUsername", mock.Anything, "alice").
				Return(models.NewUser("alice", HashString(t, "right")), nil)
		} else {
			repo.On("GetUserByUsername", mock.Anything, "alice").Return(nil, nil)
		}
		r, _ := newRoute(t, repo, false)

		req := httptest.NewRequest(http.MethodPost, LoginRouteAPI, strings.NewReader(`{"username":"alice","password":"wrong"}`))
		req.Header.Set(ContentType, ContentTypeJson)
		rr := httptest.NewRecorder()
		r.Login(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		bodies = append(bodies, rr.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
}

func TestRoute_Preflight(t *testing.T) {
	for _, path := range []string{LoginRouteAPI, ChangePasswordRouteAPI} {
		t.Run(path, func(t *testing.T) {
			r, m := newRoute(t, mocks.NewMockUserRepository(t), false)
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			rr := httptest.NewRecorder()

			if path == LoginRouteAPI {
				r.Login(rr, req)
			} else {
				r.ChangePassword(rr, req)
			}

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Empty(t, rr.Body.String())
			assert.Equal(t, 0.0, counterValue(t, m, internalmetrics.LoginRequestsTotal, ""))
		})
	}
}

func TestRoute_ChangePassword(t *testing.T) {
	tooLong := strings.Repeat("x", 73)

	tests := []struct {
		name           string
		method         string
		body           string
		reveal         bool
		setup          func(t *testing.T, repo *mocks.MockUserRepository)
		wantStatusCode int
		wantMessage    string
		wantReason     string
	}{
		{
			name:   "Valid change",
			method: http.MethodPost,
			body:   `{"username":"alice","currentPassword":"old","newPassword":"new"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				u := models.NewUser("alice", HashString(t, "old"))
				repo.On("GetUserByUsername", mock.Anything, "alice").Return(u, nil)
				repo.On("UpdatePassword", mock.Anything, "alice", mock.MatchedBy(func(h string) bool {
					return bcrypt.CompareHashAndPassword([]byte(h), []byte("new")) == nil
				}), u.UpdatedAt, mock.Anything).Return(nil)
			},
			wantStatusCode: http.StatusOK,
			wantMessage:    MsgPasswordChanged,
		},
		{
			name:           "Invalid method",
			method:         http.MethodPut,
			body:           `{}`,
			wantStatusCode: http.StatusMethodNotAllowed,
			wantMessage:    MsgMethodNotAllowed,
			wantReason:     internalmetrics.ReasonMethod,
		},
		{
			name:           "Missing new password",
			method:         http.MethodPost,
			body:           `{"username":"alice","currentPassword":"old"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgChangeFieldsRequired,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:           "Null body",
			method:         http.MethodPost,
			body:           `null`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgChangeFieldsRequired,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:           "New password over the bcrypt limit",
			method:         http.MethodPost,
			body:           `{"username":"alice","currentPassword":"old","newPassword":"` + tooLong + `"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgNewPasswordTooLong,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:           "Multibyte new password over the byte limit",
			method:         http.MethodPost,
			body:           `{"username":"alice","currentPassword":"old","newPassword":"` + strings.Repeat("é", 40) + `"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    MsgNewPasswordTooLong,
			wantReason:     internalmetrics.ReasonBadRequest,
		},
		{
			name:   "Unknown user hidden by default",
			method: http.MethodPost,
			body:   `{"username":"ghost","currentPassword":"old","newPassword":"new"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, nil)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    MsgInvalidCredentials,
			wantReason:     internalmetrics.ReasonUnauthorized,
		},
		{
			name:   "Unknown user revealed",
			method: http.MethodPost,
			body:   `{"username":"ghost","currentPassword":"old","newPassword":"new"}`,
			reveal: true,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, nil)
			},
			wantStatusCode: http.StatusNotFound,
			wantMessage:    MsgUserNotFound,
			wantReason:     internalmetrics.ReasonNotFound,
		},
		{
			name:   "Lookup failure revealed",
			method: http.MethodPost,
			body:   `{"username":"alice","currentPassword":"old","newPassword":"new"}`,
			reveal: true,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "alice").Return(nil, errors.New("db down"))
			},
			wantStatusCode: http.StatusNotFound,
			wantMessage:    MsgUserNotFound,
			wantReason:     internalmetrics.ReasonNotFound,
		},
		{
			name:   "Wrong current password",
			method: http.MethodPost,
			body:   `{"username":"alice","currentPassword":"guess","newPassword":"new"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "alice").Return(models.NewUser("alice", HashString(t, "old")), nil)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    MsgInvalidCredentials,
			wantReason:     internalmetrics.ReasonUnauthorized,
		},
		{
			name:   "Concurrent change",
			method: http.MethodPost,
			body:   `{"username":"alice","currentPassword":"old","newPassword":"new"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "alice").Return(models.NewUser("alice", HashString(t, "old")), nil)
				repo.On("UpdatePassword", mock.Anything, "alice", mock.Anything, mock.Anything, mock.Anything).Return(interfaces.ErrConcurrentUpdate)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    MsgFailedToUpdatePassword,
			wantReason:     internalmetrics.ReasonInternal,
		},
		{
			name:   "Malformed stored hash",
			method: http.MethodPost,
			body:   `{"username":"alice","currentPassword":"old","newPassword":"new"}`,
			setup: func(t *testing.T, repo *mocks.MockUserRepository) {
				repo.On("GetUserByUsername", mock.Anything, "alice").Return(models.NewUser("alice", "old"), nil)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    MsgInternalServerError,
			wantReason:     internalmetrics.ReasonInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, ChangePasswordRouteAPI, strings.NewReader(tt.body))
			req.Header.Set(ContentType, ContentTypeJson)
			rr := httptest.NewRecorder()

			userRepo := mocks.NewMockUserRepository(t)
			if tt.setup != nil {
				tt.setup(t, userRepo)
			}
			r, m := newRoute(t, userRepo, tt.reveal)

			r.ChangePassword(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			env := decodeEnvelope(t, rr)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Nil(t, env.User)
			if tt.wantStatusCode == http.StatusOK {
				assert.True(t, env.Success)
				assert.Equal(t, 1.0, counterValue(t, m, internalmetrics.PasswordChangeSuccess, ""))
			} else {
				assert.False(t, env.Success)
				assert.Equal(t, 1.0, counterValue(t, m, internalmetrics.PasswordChangeFailed, tt.wantReason))
			}
		})
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRoute_Healthz(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		pingErr        error
		wantStatusCode int
		wantSuccess    bool
	}{
		{name: "healthy", method: http.MethodGet, wantStatusCode: http.StatusOK, wantSuccess: true},
		{name: "directory down", method: http.MethodGet, pingErr: errors.New("unreachable"), wantStatusCode: http.StatusServiceUnavailable},
		{name: "wrong method", method: http.MethodPost, wantStatusCode: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRoute(t, mocks.NewMockUserRepository(t), false)
			r.Directory = pingerFunc(func(context.Context) error { return tt.pingErr })

			rr := httptest.NewRecorder()
			r.Healthz(rr, httptest.NewRequest(tt.method, HealthRouteAPI, nil))

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Equal(t, tt.wantSuccess, decodeEnvelope(t, rr).Success)
		})
	}
}
