package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/platformbuilds/datadog-badges/internal/badge"
	"github.com/platformbuilds/datadog-badges/internal/config"
	"github.com/platformbuilds/datadog-badges/internal/models"
	"github.com/platformbuilds/datadog-badges/internal/monitor"
	"github.com/platformbuilds/datadog-badges/internal/monitoring"
	"github.com/platformbuilds/datadog-badges/internal/tracing"
	"github.com/platformbuilds/datadog-badges/pkg/cache"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

const (
	// GroupsParam asks for per-group detail; only its presence matters.
	GroupsParam = "g"
	// FilterParam carries the tag filter applied to groups.
	FilterParam = "q"

	internalErrorText = "Internal Server Error"
)

// CredentialLookup resolves Datadog keys for an account.
type CredentialLookup interface {
	Lookup(account string) (config.Credentials, bool)
}

// BadgeRequest identifies one badge.
type BadgeRequest struct {
	Account   string
	MonitorID string
	Query     url.Values
}

// BadgeService turns badge requests into badge decisions, going to Datadog
// only on a cache miss. Concurrent misses on one key share a single fetch.
type BadgeService struct {
	cache    cache.BadgeCache
	creds    CredentialLookup
	fetcher  MonitorFetcher
	tracer   *tracing.BadgeTracer
	logger   logger.Logger
	alwaysOK bool

	flight singleflight.Group
}

func NewBadgeService(
	c cache.BadgeCache,
	creds CredentialLookup,
	fetcher MonitorFetcher,
	tracer *tracing.BadgeTracer,
	logger logger.Logger,
	alwaysOK bool,
) *BadgeService {
	return &BadgeService{
		cache:    c,
		creds:    creds,
		fetcher:  fetcher,
		tracer:   tracer,
		logger:   logger,
		alwaysOK: alwaysOK,
	}
}

// Badge returns the badge decision for req. The only errors are
// ErrMalformedPayload and a cancelled ctx; every other failure is a badge.
func (s *BadgeService) Badge(ctx context.Context, req BadgeRequest) (cache.Entry, error) {
	ctx, span := s.tracer.StartBadgeSpan(ctx, req.Account, req.MonitorID)
	defer span.End()

	key := cache.NewKey(req.Account, req.MonitorID, req.Query).String()
	if e, ok := s.cache.Get(ctx, key); ok {
		s.tracer.RecordCacheResult(span, true)
		return e, nil
	}
	s.tracer.RecordCacheResult(span, false)

	e, err := s.load(ctx, key, req)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil {
		// the request we shared a fetch with was cancelled, not ours
		e, err = s.load(ctx, key, req)
	}
	if err != nil {
		s.tracer.RecordError(span, err)
		return cache.Entry{}, err
	}
	return e, nil
}

func (s *BadgeService) load(ctx context.Context, key string, req BadgeRequest) (cache.Entry, error) {
	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		// another flight may have stored it between our Get and Do
		if e, ok := s.cache.Get(ctx, key); ok {
			return e, nil
		}
		e, cacheable, err := s.compute(ctx, req)
		if err != nil {
			return nil, err
		}
		if cacheable {
			s.cache.Put(ctx, key, e)
		}
		return e, nil
	})
	if err != nil {
		return cache.Entry{}, err
	}
	if shared {
		s.logger.Debug("Badge fetch shared with concurrent requests", "key", key)
	}
	return v.(cache.Entry), nil
}

func (s *BadgeService) compute(ctx context.Context, req BadgeRequest) (cache.Entry, bool, error) {
	creds, ok := s.creds.Lookup(req.Account)
	if !ok {
		s.logger.Warn("No Datadog credentials for account", "account", req.Account)
		return s.outcome("unconfigured", badge.Options{
			Status: "Unconfigured account: " + req.Account,
			Color:  badge.ColorOther,
		}, http.StatusNotFound), true, nil
	}

	withGroups := req.Query.Has(GroupsParam)
	resp, err := s.fetcher.FetchMonitorState(ctx, creds, req.MonitorID, withGroups)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			// the client went away; don't cache an error for everyone else
			return cache.Entry{}, false, ctx.Err()
		}
		return s.outcome("transport_error", badge.Options{
			Status: internalErrorText,
			Color:  badge.ColorWarning,
		}, http.StatusInternalServerError), true, nil
	}

	if !resp.OK() {
		return s.outcome("upstream_error", badge.Options{
			Status: strconv.Itoa(resp.StatusCode),
			Color:  badge.ColorWarning,
		}, resp.StatusCode), true, nil
	}

	state, err := resp.Decode(withGroups)
	if err != nil {
		monitoring.RecordError("malformed_payload", "datadog")
		s.logger.Error("Failed to decode Datadog monitor", "account", req.Account, "monitor_id", req.MonitorID, "error", err)
		return cache.Entry{}, false, err
	}

	res := monitor.ResolveQuery(state, req.Query.Get(FilterParam))
	return s.outcome(outcomeLabel(res.Status), badge.Options{
		Status: res.Status.String(),
		Color:  StatusColor(res.Status),
		Since:  res.Since,
		Muted:  state.Muted,
	}, http.StatusOK), true, nil
}

func (s *BadgeService) outcome(label string, opts badge.Options, code int) cache.Entry {
	if s.alwaysOK {
		code = http.StatusOK
	}
	monitoring.RecordBadge(label, code)
	return cache.Entry{Options: opts, StatusCode: code}
}

// StatusColor maps a status to its badge color.
func StatusColor(s models.Status) string {
	switch s {
	case models.StatusOk, models.StatusSkipped:
		return badge.ColorSuccess
	case models.StatusAlert, models.StatusUnknown:
		return badge.ColorDanger
	case models.StatusWarn:
		return badge.ColorWarning
	default:
		return badge.ColorOther
	}
}

func outcomeLabel(s models.Status) string {
	return strings.ReplaceAll(strings.ToLower(s.String()), " ", "_")
}

// HealthCheck reports whether the badge cache is usable.
func (s *BadgeService) HealthCheck(ctx context.Context) error {
	return s.cache.HealthCheck(ctx)
}
