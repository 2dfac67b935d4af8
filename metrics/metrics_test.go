package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordVerification(t *testing.T) {
	valid := testutil.ToFloat64(Verifications.WithLabelValues("valid"))
	invalid := testutil.ToFloat64(Verifications.WithLabelValues("invalid"))
	failed := testutil.ToFloat64(Verifications.WithLabelValues("error"))

	RecordVerification(true, nil, time.Now())
	RecordVerification(false, nil, time.Now())
	RecordVerification(true, errors.New("decode"), time.Now())

	assert.Equal(t, valid+1, testutil.ToFloat64(Verifications.WithLabelValues("valid")))
	assert.Equal(t, invalid+1, testutil.ToFloat64(Verifications.WithLabelValues("invalid")))
	assert.Equal(t, failed+1, testutil.ToFloat64(Verifications.WithLabelValues("error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	ObserveTick(time.Now())
	ActiveMatches.Set(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "runerelic_tick_duration_seconds")
	assert.Contains(t, body, "runerelic_active_matches 2")
}
