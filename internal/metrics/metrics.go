package metrics

import (
	"github.com/haguru/schooladmin/internal/interfaces"
)

var (
	LoginDurationSecondsBuckets          = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	PasswordChangeDurationSecondsBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

const (
	LoginRequestsTotal        = "login_requests_total"
	LoginRequestsTotalHelp    = "Total number of login requests received"
	LoginSuccessTotal         = "login_success_total"
	LoginSuccessTotalHelp     = "Total number of successful login requests"
	LoginFailedTotal          = "login_failed_total"
	LoginFailedTotalHelp      = "Total number of failed login requests by reason"
	LoginDurationSeconds      = "login_duration_seconds"
	LoginDurationSecondsHelp  = "Duration of login requests in seconds"
	PasswordChangeRequests    = "password_change_requests_total"
	PasswordChangeRequestHelp = "Total number of password change requests received"
	PasswordChangeSuccess     = "password_change_success_total"
	PasswordChangeSuccessHelp = "Total number of successful password changes"
	PasswordChangeFailed      = "password_change_failed_total"
	PasswordChangeFailedHelp  = "Total number of failed password changes by reason"
	PasswordChangeDuration    = "password_change_duration_seconds"
	PasswordChangeDurationHlp = "Duration of password change requests in seconds"
	DirectoryUp               = "directory_up"
	DirectoryUpHelp           = "Whether the last health check reached the user directory"

	// ReasonLabel is the label carried by the *_failed_total counters.
	ReasonLabel = "reason"

	ReasonMethod       = "method_not_allowed"
	ReasonBadRequest   = "bad_request"
	ReasonUnauthorized = "unauthorized"
	ReasonNotFound     = "not_found"
	ReasonInternal     = "internal"
)

// Register registers every metric the service records on m.
func Register(m interfaces.Metrics) {
	m.RegisterCounter(LoginRequestsTotal, LoginRequestsTotalHelp)
	m.RegisterCounter(LoginSuccessTotal, LoginSuccessTotalHelp)
	m.RegisterCounterVec(LoginFailedTotal, LoginFailedTotalHelp, []string{ReasonLabel})
	m.RegisterHistogram(LoginDurationSeconds, LoginDurationSecondsHelp, LoginDurationSecondsBuckets)

	m.RegisterCounter(PasswordChangeRequests, PasswordChangeRequestHelp)
	m.RegisterCounter(PasswordChangeSuccess, PasswordChangeSuccessHelp)
	m.RegisterCounterVec(PasswordChangeFailed, PasswordChangeFailedHelp, []string{ReasonLabel})
	m.RegisterHistogram(PasswordChangeDuration, PasswordChangeDurationHlp, PasswordChangeDurationSecondsBuckets)

	m.RegisterGauge(DirectoryUp, DirectoryUpHelp)
}
