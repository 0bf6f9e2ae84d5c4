package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/platformbuilds/datadog-badges/internal/config"
)

// MockFetcher mocks DatadogService
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchMonitorState(ctx context.Context, creds config.Credentials, monitorID string, withGroups bool) (*UpstreamResponse, error) {
	args := m.Called(ctx, creds, monitorID, withGroups)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UpstreamResponse), args.Error(1)
}

// MockCredentials mocks config.CredentialStore
type MockCredentials struct {
	mock.Mock
}

func (m *MockCredentials) Lookup(account string) (config.Credentials, bool) {
	args := m.Called(account)
	return args.Get(0).(config.Credentials), args.Bool(1)
}

const monitorWithGroupsJSON = `{
  "id": 2081,
  "name": "Bytes received on host0",
  "options": {"silenced": {}},
  "overall_state": "Alert",
  "overall_state_modified": "2016-12-16T17:23:00+00:00",
  "state": {
    "groups": {
      "host:host0": {
        "last_nodata_ts": null,
        "last_resolved_ts": 1481908200,
        "last_triggered_ts": 1481909160,
        "status": "Alert"
      },
      "host:host1,env:staging": {
        "last_resolved_ts": 1481900000,
        "last_triggered_ts": 1481800000,
        "status": "OK"
      }
    }
  }
}`

const mutedMonitorJSON = `{
  "name": "muted",
  "options": {"silenced": {"*": null}},
  "overall_state": "Warn",
  "overall_state_modified": "2020-01-01T00:00:00Z"
}`
