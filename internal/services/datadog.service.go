package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/platformbuilds/datadog-badges/internal/config"
	"github.com/platformbuilds/datadog-badges/internal/models"
	"github.com/platformbuilds/datadog-badges/internal/monitoring"
	"github.com/platformbuilds/datadog-badges/internal/tracing"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

var (
	// ErrUpstreamUnavailable wraps transport failures talking to Datadog.
	ErrUpstreamUnavailable = errors.New("datadog API unavailable")
	// ErrMalformedPayload means Datadog answered 2xx with a body that is not
	// a monitor.
	ErrMalformedPayload = errors.New("malformed monitor payload")
)

const maxMonitorBody = 4 << 20 // 4MB

// UpstreamResponse is a raw Datadog answer. Non-2xx responses are not errors
// at this level; the badge shows the status code instead.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

func (r *UpstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode parses the monitor. Group detail is dropped unless withGroups, so
// a resolver never sees groups that were not asked for.
func (r *UpstreamResponse) Decode(withGroups bool) (models.MonitorState, error) {
	state, err := models.DecodeMonitorState(r.Body)
	if err != nil {
		return models.MonitorState{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !withGroups {
		state = state.WithoutGroups()
	}
	return state, nil
}

// MonitorFetcher retrieves monitor state from Datadog.
type MonitorFetcher interface {
	FetchMonitorState(ctx context.Context, creds config.Credentials, monitorID string, withGroups bool) (*UpstreamResponse, error)
}

type DatadogService struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
	tracer  *tracing.BadgeTracer
}

func NewDatadogService(cfg config.DatadogConfig, tracer *tracing.BadgeTracer, logger logger.Logger) *DatadogService {
	return &DatadogService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		tracer: tracer,
	}
}

// FetchMonitorState calls GET /api/v1/monitor/{id}, adding
// group_states=all when per-group detail is wanted. There are no retries:
// the badge cache absorbs request bursts and a failed fetch is shown as is.
func (s *DatadogService) FetchMonitorState(
	ctx context.Context,
	creds config.Credentials,
	monitorID string,
	withGroups bool,
) (*UpstreamResponse, error) {
	ctx, span := s.tracer.StartUpstreamSpan(ctx, monitorID, withGroups)
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	u := s.baseURL + "/api/v1/monitor/" + url.PathEscape(monitorID)
	if withGroups {
		u += "?" + url.Values{"group_states": {"all"}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("DD-API-KEY", creds.APIKey)
	req.Header.Set("DD-APPLICATION-KEY", creds.AppKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.RecordUpstreamRequest("error", time.Since(start))
		monitoring.RecordError("transport", "datadog")
		s.tracer.RecordError(span, err)
		s.logger.Warn("Datadog request failed (transport)", "monitor_id", monitorID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMonitorBody))
	monitoring.RecordUpstreamRequest(strconv.Itoa(resp.StatusCode), time.Since(start))
	s.tracer.RecordUpstreamStatus(span, resp.StatusCode)
	if err != nil {
		monitoring.RecordError("transport", "datadog")
		s.tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: reading body: %w", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("Datadog returned non-success status",
			"monitor_id", monitorID, "status", resp.StatusCode, "body", snippet(body))
	}

	return &UpstreamResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

func snippet(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
