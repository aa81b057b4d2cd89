// README: Bench cases: environment checks, billing API flows, checkout concurrency and quote throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

// schemaTables must exist once the API has applied its migrations.
var schemaTables = []string{"tariffs", "dynamic_pricing_configs", "discount_policies", "billing_records"}

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer func() { _ = r.redis.Close() }()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	op, driver := r.cfg.OperatorToken, r.cfg.DriverToken
	session := "bench-" + uuid.NewString()
	stay := map[string]any{
		"zone_type":  "standard",
		"entry_time": "2026-03-10T09:00:00Z",
		"exit_time":  "2026-03-10T12:30:00Z",
	}

	return []TestCase{
		{Name: "Env: Postgres connect", Run: pingDB},
		{Name: "Env: Redis connect", Run: pingRedis},
		{Name: "Env: schema migrated", Run: tablesExist},

		httpCase("API: health", http.MethodGet, "/health", "", nil, http.StatusOK),
		httpCase("API: metrics", http.MethodGet, "/metrics", "", nil, http.StatusOK),
		httpCase("API: quote without token -> 401", http.MethodPost, "/api/billing/quote", "", stay, http.StatusUnauthorized),

		httpCase("Rates: driver cannot edit tariffs -> 403", http.MethodPut, "/api/tariffs/standard", driver,
			map[string]any{"base_hourly_rate": "5", "daily_cap": "30"}, http.StatusForbidden),
		httpCase("Rates: upsert standard tariff", http.MethodPut, "/api/tariffs/standard", op,
			map[string]any{"base_hourly_rate": "5", "daily_cap": "30", "weekend_or_holiday_surcharge_percent": "10"}, http.StatusOK),
		httpCase("Rates: invalid tariff -> 422", http.MethodPut, "/api/tariffs/standard", op,
			map[string]any{"base_hourly_rate": "-1", "daily_cap": "30"}, http.StatusUnprocessableEntity),
		httpCase("Rates: activate pricing", http.MethodPut, "/api/pricing/active", op,
			map[string]any{"peak_hour_multiplier": 1.5, "high_occupancy_threshold": 0.85, "high_occupancy_multiplier": 1.2}, http.StatusOK),
		httpCase("Rates: list tariffs", http.MethodGet, "/api/tariffs", driver, nil, http.StatusOK),

		httpCase("Occupancy: set capacity", http.MethodPut, "/api/occupancy/standard/capacity", op,
			map[string]any{"capacity": 100}, http.StatusOK),
		httpCase("Occupancy: enter", http.MethodPost, "/api/occupancy/standard/enter", driver, nil, http.StatusOK),
		httpCase("Occupancy: leave", http.MethodPost, "/api/occupancy/standard/leave", driver, nil, http.StatusOK),

		httpCase("Billing: quote", http.MethodPost, "/api/billing/quote", driver, stay, http.StatusOK),
		httpCase("Billing: quote exit before entry -> 400", http.MethodPost, "/api/billing/quote", driver,
			map[string]any{"zone_type": "standard", "entry_time": "2026-03-10T12:00:00Z", "exit_time": "2026-03-10T09:00:00Z"},
			http.StatusBadRequest),
		httpCase("Billing: quote unknown zone -> 400", http.MethodPost, "/api/billing/quote", driver,
			map[string]any{"zone_type": "rooftop", "entry_time": "2026-03-10T09:00:00Z", "exit_time": "2026-03-10T10:00:00Z"},
			http.StatusBadRequest),
		httpCase("Billing: checkout", http.MethodPost, "/api/sessions/"+session+"/checkout", driver, stay, http.StatusCreated),
		httpCase("Billing: checkout twice -> 409", http.MethodPost, "/api/sessions/"+session+"/checkout", driver, stay, http.StatusConflict),
		httpCase("Billing: session record", http.MethodGet, "/api/sessions/"+session+"/record", driver, nil, http.StatusOK),
		httpCase("Billing: unknown record -> 404", http.MethodGet, "/api/billing/records/"+uuid.NewString(), driver, nil, http.StatusNotFound),

		{
			Name: "Concurrency: one checkout per session",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentCheckout(ctx, r, "/api/sessions/bench-"+uuid.NewString()+"/checkout", stay)
			},
		},
		{
			Name: "Perf: quote throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, "/api/billing/quote", stay)
			},
		},
	}
}

func pingDB(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func pingRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: StatusFail, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusSkip, Note: "db not configured"}
	}
	for _, t := range schemaTables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: StatusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: StatusPass}
}

func (r *Runner) do(ctx context.Context, method, path, token string, body any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func httpCase(name, method, path, token string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, err := r.do(ctx, method, path, token, body)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			res := Result{Status: StatusPass, Latency: time.Since(start), Note: fmt.Sprintf("status=%d", status)}
			if status != want {
				res.Status = StatusFail
				res.Note = fmt.Sprintf("status=%d want=%d", status, want)
			}
			return res
		},
	}
}

// concurrentCheckout races checkouts of one session; exactly one may succeed.
func concurrentCheckout(ctx context.Context, r *Runner, path string, body any) Result {
	var created, conflicts int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := r.do(ctx, http.MethodPost, path, r.cfg.DriverToken, body)
			if err != nil {
				return
			}
			switch status {
			case http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case http.StatusConflict:
				atomic.AddInt64(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("created=%d conflicts=%d", created, conflicts)
	if created == 1 {
		return Result{Status: StatusPass, Note: note}
	}
	return Result{Status: StatusFail, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, path string, body any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, err := r.do(ctx, http.MethodPost, path, r.cfg.DriverToken, body)
				if err != nil || status >= 500 {
					atomic.AddInt64(&errCount, 1)
					continue
				}
				atomic.AddInt64(&count, 1)
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}
