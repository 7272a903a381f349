package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/metrics"
	"github.com/haguru/schooladmin/internal/models/dto"
	"github.com/haguru/schooladmin/internal/userservice"

	structValidator "github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds request bodies; both payloads are three short strings.
const maxBodyBytes = 1 << 16

// Route holds the handlers of the authentication API.
type Route struct {
	Metrics     interfaces.Metrics
	UserService interfaces.UserService
	Directory   interfaces.Pinger
	Logger      interfaces.Logger
	// RevealMissingUser answers an unknown username on /change-password
	// with 404 instead of the uniform 401.
	RevealMissingUser bool
	validator         *structValidator.Validate
}

// NewRoute creates a new Route instance.
func NewRoute(metrics interfaces.Metrics, userService interfaces.UserService, directory interfaces.Pinger,
	logger interfaces.Logger, validator *structValidator.Validate, revealMissingUser bool,
) *Route {
	if err := dto.RegisterValidations(validator); err != nil {
		logger.Error("failed to register request validations", "error", err)
	}
	return &Route{
		Metrics:           metrics,
		UserService:       userService,
		Directory:         directory,
		Logger:            logger,
		RevealMissingUser: revealMissingUser,
		validator:         validator,
	}
}

// Login handles credential verification requests.
func (r *Route) Login(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Metrics != nil {
		r.Metrics.IncCounter(metrics.LoginRequestsTotal)
	}
	fail := func(status int, reason, message string, err error) {
		r.failure(w, req, metrics.LoginFailedTotal, status, reason, message, err)
	}

	if req.Method != http.MethodPost {
		fail(http.StatusMethodNotAllowed, metrics.ReasonMethod, MsgMethodNotAllowed, fmt.Errorf(ErrMethodNotAllowedFormat, req.Method))
		return
	}

	loginRequest := &dto.LoginRequestDTO{}
	if status, message, err := r.decode(w, req, loginRequest, MsgLoginFieldsRequired); err != nil {
		fail(status, metrics.ReasonBadRequest, message, err)
		return
	}

	startTime := time.Now()
	user, err := r.UserService.AuthenticateUser(req.Context(), loginRequest.Username, loginRequest.Password)
	switch {
	case err == nil:
	case errors.Is(err, userservice.ErrInvalidCredentials),
		errors.Is(err, userservice.ErrUserNotFound),
		errors.Is(err, userservice.ErrDirectoryLookup):
		fail(http.StatusUnauthorized, metrics.ReasonUnauthorized, MsgInvalidCredentials, err)
		return
	default:
		fail(http.StatusInternalServerError, metrics.ReasonInternal, MsgInternalServerError, err)
		return
	}

	if r.Metrics != nil {
		r.Metrics.IncCounter(metrics.LoginSuccessTotal)
		r.Metrics.ObserveHistogram(metrics.LoginDurationSeconds, time.Since(startTime).Seconds())
	}

	r.writeJSON(w, http.StatusOK, &dto.Envelope{
		Success: true,
		Message: MsgLoginSuccessful,
		User:    dto.NewUserDTO(user),
	})
}

// ChangePassword replaces a user's password after verifying the current one.
func (r *Route) ChangePassword(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Metrics != nil {
		r.Metrics.IncCounter(metrics.PasswordChangeRequests)
	}
	fail := func(status int, reason, message string, err error) {
		r.failure(w, req, metrics.PasswordChangeFailed, status, reason, message, err)
	}

	if req.Method != http.MethodPost {
		fail(http.StatusMethodNotAllowed, metrics.ReasonMethod, MsgMethodNotAllowed, fmt.Errorf(ErrMethodNotAllowedFormat, req.Method))
		return
	}

	changeRequest := &dto.ChangePasswordRequestDTO{}
	if status, message, err := r.decode(w, req, changeRequest, MsgChangeFieldsRequired); err != nil {
		fail(status, metrics.ReasonBadRequest, message, err)
		return
	}

	startTime := time.Now()
	err := r.UserService.ChangePassword(req.Context(), changeRequest.Username, changeRequest.CurrentPassword, changeRequest.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, userservice.ErrUserNotFound), errors.Is(err, userservice.ErrDirectoryLookup):
		if r.RevealMissingUser {
			fail(http.StatusNotFound, metrics.ReasonNotFound, MsgUserNotFound, err)
		} else {
			fail(http.StatusUnauthorized, metrics.ReasonUnauthorized, MsgInvalidCredentials, err)
		}
		return
	case errors.Is(err, userservice.ErrInvalidCredentials):
		fail(http.StatusUnauthorized, metrics.ReasonUnauthorized, MsgInvalidCredentials, err)
		return
	case errors.Is(err, userservice.ErrPasswordUpdate):
		fail(http.StatusInternalServerError, metrics.ReasonInternal, MsgFailedToUpdatePassword, err)
		return
	default:
		fail(http.StatusInternalServerError, metrics.ReasonInternal, MsgInternalServerError, err)
		return
	}

	if r.Metrics != nil {
		r.Metrics.IncCounter(metrics.PasswordChangeSuccess)
		r.Metrics.ObserveHistogram(metrics.PasswordChangeDuration, time.Since(startTime).Seconds())
	}

	r.writeJSON(w, http.StatusOK, &dto.Envelope{Success: true, Message: MsgPasswordChanged})
}

// Healthz reports whether the user directory is reachable.
func (r *Route) Healthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.writeJSON(w, http.StatusMethodNotAllowed, &dto.Envelope{Message: MsgMethodNotAllowed})
		return
	}

	if err := r.Directory.Ping(req.Context()); err != nil {
		r.Logger.Error("health check failed", "error", err)
		if r.Metrics != nil {
			r.Metrics.SetGauge(metrics.DirectoryUp, 0)
		}
		r.writeJSON(w, http.StatusServiceUnavailable, &dto.Envelope{Message: MsgDirectoryUnavailable})
		return
	}

	if r.Metrics != nil {
		r.Metrics.SetGauge(metrics.DirectoryUp, 1)
	}
	r.writeJSON(w, http.StatusOK, &dto.Envelope{Success: true})
}

// decode reads a JSON body into dst and validates it. On failure it returns
// the status and client message to answer with.
func (r *Route) decode(w http.ResponseWriter, req *http.Request, dst interface{}, requiredMsg string) (int, string, error) {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get(ContentType))
	if err != nil || mediaType != ContentTypeJson {
		return http.StatusBadRequest, MsgInvalidContentType, fmt.Errorf(ErrInvalidContentTypeFormat, req.Header.Get(ContentType))
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return http.StatusBadRequest, MsgInvalidRequestBody, err
	}

	if err := r.validator.Struct(dst); err != nil {
		var validationErrors structValidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				if fieldErr.Tag() == dto.TagMaxBytes {
					return http.StatusBadRequest, MsgNewPasswordTooLong, err
				}
			}
		}
		return http.StatusBadRequest, requiredMsg, err
	}
	return 0, "", nil
}

// failure logs err server side and answers with message only.
func (r *Route) failure(w http.ResponseWriter, req *http.Request, counter string, status int, reason, message string, err error) {
	if status >= http.StatusInternalServerError {
		r.Logger.Error(message, "path", req.URL.Path, "status", status, "error", err)
	} else {
		r.Logger.Warn(message, "path", req.URL.Path, "status", status, "error", err)
	}
	if r.Metrics != nil {
		r.Metrics.IncCounterVec(counter, reason)
	}
	r.writeJSON(w, status, &dto.Envelope{Success: false, Message: message})
}

func (r *Route) writeJSON(w http.ResponseWriter, status int, body *dto.Envelope) {
	w.Header().Set(ContentType, ContentTypeJson)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		r.Logger.Error("failed to encode response", "error", err)
	}
}
