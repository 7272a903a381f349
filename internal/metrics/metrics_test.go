package metrics

import (
	"testing"

	pkgmetrics "github.com/haguru/schooladmin/pkg/metrics"
)

func TestRegister(t *testing.T) {
	m := pkgmetrics.NewMetrics("test_service")
	Register(m)

	// touch every metric so the vectors show up in Gather
	m.IncCounter(LoginRequestsTotal)
	m.IncCounter(LoginSuccessTotal)
	m.IncCounterVec(LoginFailedTotal, ReasonUnauthorized)
	m.ObserveHistogram(LoginDurationSeconds, 0.1)
	m.IncCounter(PasswordChangeRequests)
	m.IncCounter(PasswordChangeSuccess)
	m.IncCounterVec(PasswordChangeFailed, ReasonNotFound)
	m.ObserveHistogram(PasswordChangeDuration, 0.1)
	m.SetGauge(DirectoryUp, 1)

	families, err := m.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"test_service_" + LoginRequestsTotal:     false,
		"test_service_" + LoginSuccessTotal:      false,
		"test_service_" + LoginFailedTotal:       false,
		"test_service_" + LoginDurationSeconds:   false,
		"test_service_" + PasswordChangeRequests: false,
		"test_service_" + PasswordChangeSuccess:  false,
		"test_service_" + PasswordChangeFailed:   false,
		"test_service_" + PasswordChangeDuration: false,
		"test_service_" + DirectoryUp:            false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("metric %s not registered", name)
		}
	}
}
