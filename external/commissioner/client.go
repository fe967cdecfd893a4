// Package commissioner talks to the league's commissioner platform, the
// system of record owners interact with. The cap engine only reads from it:
// reconciliation diffs the platform's cap totals against the local ledger.
package commissioner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/dynastyops/capledger/internal/platform/logging"
	"github.com/dynastyops/capledger/internal/platform/resilience"
	"github.com/dynastyops/capledger/internal/usecase"
)

var errCommissionerTransient = crerr.New("commissioner transient failure")

type ClientConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	http           *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, crerr.New("commissioner base url is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, crerr.Newf("commissioner base url %q must use http or https", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		http: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

type capSnapshotEnvelope struct {
	Data struct {
		FranchiseID       string `json:"franchise_id"`
		Season            int    `json:"season"`
		ActiveObligations int64  `json:"active_obligations"`
		DeadCap           int64  `json:"dead_cap"`
	} `json:"data"`
}

// CapSnapshot fetches the platform's cap totals for one franchise-season.
// Concurrent fetches for the same key collapse into a single request.
func (c *Client) CapSnapshot(ctx context.Context, franchiseID string, season int) (usecase.CapSnapshot, error) {
	if strings.TrimSpace(franchiseID) == "" {
		return usecase.CapSnapshot{}, crerr.New("franchise id is required")
	}
	if season < 1 {
		return usecase.CapSnapshot{}, crerr.Newf("season %d is invalid", season)
	}

	key := franchiseID + ":" + strconv.Itoa(season)
	value, err, shared := c.flight.Do(key, func() (any, error) {
		return c.fetchSnapshot(ctx, franchiseID, season)
	})
	if err != nil {
		return usecase.CapSnapshot{}, err
	}
	snapshot, ok := value.(usecase.CapSnapshot)
	if !ok {
		return usecase.CapSnapshot{}, crerr.Newf("unexpected snapshot type %T", value)
	}
	if shared {
		c.logger.DebugContext(ctx, "commissioner snapshot deduplicated", "franchise_id", franchiseID, "season", season)
	}

	return snapshot, nil
}

func (c *Client) fetchSnapshot(ctx context.Context, franchiseID string, season int) (usecase.CapSnapshot, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "commissioner circuit breaker rejected request", "state", string(c.breaker.State()))
			return usecase.CapSnapshot{}, fmt.Errorf("commissioner is temporarily unavailable: %w", err)
		}
	}

	url := c.snapshotURL(franchiseID, season)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		callErr := fmt.Errorf("%w: fetch snapshot franchise=%s season=%d: %v", errCommissionerTransient, franchiseID, season, err)
		c.recordCircuitResult(callErr)
		return usecase.CapSnapshot{}, callErr
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status/100 != 2 {
		if isRetryableStatus(status) {
			callErr := fmt.Errorf("%w: fetch snapshot status=%d franchise=%s season=%d body=%s",
				errCommissionerTransient, status, franchiseID, season, truncate(body, 1024))
			c.recordCircuitResult(callErr)
			return usecase.CapSnapshot{}, callErr
		}
		callErr := crerr.Newf("fetch snapshot status=%d franchise=%s season=%d body=%s",
			status, franchiseID, season, truncate(body, 1024))
		c.recordCircuitResult(callErr)
		return usecase.CapSnapshot{}, callErr
	}

	var envelope capSnapshotEnvelope
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		callErr := crerr.Wrapf(err, "decode snapshot franchise=%s season=%d", franchiseID, season)
		c.recordCircuitResult(callErr)
		return usecase.CapSnapshot{}, callErr
	}
	c.recordCircuitResult(nil)

	if envelope.Data.FranchiseID != "" && envelope.Data.FranchiseID != franchiseID {
		return usecase.CapSnapshot{}, crerr.Newf("snapshot franchise mismatch: asked %s, got %s", franchiseID, envelope.Data.FranchiseID)
	}

	return usecase.CapSnapshot{
		FranchiseID:       franchiseID,
		Season:            season,
		ActiveObligations: envelope.Data.ActiveObligations,
		DeadCap:           envelope.Data.DeadCap,
	}, nil
}

func (c *Client) snapshotURL(franchiseID string, season int) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(c.baseURL)
	_, _ = buf.WriteString("/v1/franchises/")
	_, _ = buf.WriteString(franchiseID)
	_, _ = buf.WriteString("/cap-usage?season=")
	_, _ = buf.WriteString(strconv.Itoa(season))

	return buf.String()
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled {
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
		return
	}
	if crerr.Is(err, errCommissionerTransient) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

func truncate(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
