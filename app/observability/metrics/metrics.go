package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	LoginAttemptsTotal     metric.Int64Counter
	LoginFailuresTotal     metric.Int64Counter
	AccountLockoutsTotal   metric.Int64Counter
	TokensIssuedTotal      metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("UserAuthAPI")
		var err error
		m := &AppMetrics{}

		m.LoginAttemptsTotal, err = meter.Int64Counter(
			"login_attempts_total",
			metric.WithDescription("Total number of login attempts"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_attempts_total: %v", err)
		}

		m.LoginFailuresTotal, err = meter.Int64Counter(
			"login_failures_total",
			metric.WithDescription("Total number of failed login attempts"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_failures_total: %v", err)
		}

		m.AccountLockoutsTotal, err = meter.Int64Counter(
			"account_lockouts_total",
			metric.WithDescription("Total number of accounts locked after repeated failures"),
			metric.WithUnit("{lockout}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create account_lockouts_total: %v", err)
		}

		m.TokensIssuedTotal, err = meter.Int64Counter(
			"tokens_issued_total",
			metric.WithDescription("Total number of access and refresh tokens issued"),
			metric.WithUnit("{token}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create tokens_issued_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

// The Count helpers are nil-receiver safe so callers can run without the
// metrics pipeline (tests, one-off tools).

func (m *AppMetrics) CountLoginAttempt(ctx context.Context) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.Add(ctx, 1)
}

func (m *AppMetrics) CountLoginFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.LoginFailuresTotal.Add(ctx, 1)
}

func (m *AppMetrics) CountAccountLockout(ctx context.Context) {
	if m == nil {
		return
	}
	m.AccountLockoutsTotal.Add(ctx, 1)
}

func (m *AppMetrics) CountTokenIssued(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.Add(ctx, n)
}

// ObserveDBQuery records the duration of a database query and, when err is
// non-nil, counts it as a query error. Callers pass nil for expected outcomes
// such as not-found lookups.
func (m *AppMetrics) ObserveDBQuery(ctx context.Context, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.DbQueryDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
