package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/starford/tourdesk/internal/apperr"
)

func TestResult(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{apperr.Invalid("position", "must be >= 0"), ResultInvalid},
		{fmt.Errorf("wrapped: %w", apperr.NotFound("day", "d1")), ResultNotFound},
		{apperr.Store("list days", context.DeadlineExceeded), ResultRetryable},
		{apperr.Store("list days", errors.New("disk full")), ResultError},
		{errors.New("other"), ResultError},
	}
	for _, tc := range cases {
		if got := Result(tc.err); got != tc.want {
			t.Errorf("Result(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestObserveOp_CountsByResult(t *testing.T) {
	c := singleton().opsTotal
	before := testutil.ToFloat64(c.WithLabelValues("test.op", ResultNotFound))
	ObserveOp("test.op", time.Now(), apperr.NotFound("item", "x"))
	ObserveOp("test.op", time.Now(), apperr.NotFound("item", "y"))
	if got := testutil.ToFloat64(c.WithLabelValues("test.op", ResultNotFound)); got != before+2 {
		t.Errorf("counter = %v, want %v", got, before+2)
	}
}

func TestCatalogSynced_IgnoresZero(t *testing.T) {
	c := singleton().catalog
	before := testutil.ToFloat64(c.WithLabelValues("indexed"))
	CatalogSynced("indexed", 0)
	CatalogSynced("indexed", 3)
	if got := testutil.ToFloat64(c.WithLabelValues("indexed")); got != before+3 {
		t.Errorf("counter = %v, want %v", got, before+3)
	}
}
