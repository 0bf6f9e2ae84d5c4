package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_TotalOrder(t *testing.T) {
	for i, a := range AllStatuses {
		for j, b := range AllStatuses {
			less, equal, greater := a.Compare(b) < 0, a.Compare(b) == 0, a.Compare(b) > 0
			n := 0
			for _, v := range []bool{less, equal, greater} {
				if v {
					n++
				}
			}
			require.Equal(t, 1, n, "%s vs %s", a, b)
			assert.Equal(t, i < j, less, "%s < %s", a, b)
			assert.Equal(t, i == j, equal, "%s == %s", a, b)
			assert.Equal(t, -a.Compare(b), b.Compare(a))
		}
	}
}

func TestStatus_Transitive(t *testing.T) {
	for _, a := range AllStatuses {
		for _, b := range AllStatuses {
			for _, c := range AllStatuses {
				if a.Compare(b) < 0 && b.Compare(c) < 0 {
					assert.Less(t, a.Compare(c), 0, "%s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestStatus_SeverityTable(t *testing.T) {
	assert.Equal(t, []Status{StatusIgnored, StatusSkipped, StatusOk, StatusNoData, StatusWarn, StatusAlert, StatusUnknown}, AllStatuses)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "No Data", StatusNoData.String())
	assert.Equal(t, "Ok", StatusOk.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"OK":      StatusOk,
		"Ok":      StatusOk,
		"No Data": StatusNoData,
		"Warn":    StatusWarn,
		"Alert":   StatusAlert,
		"Ignored": StatusIgnored,
		"Skipped": StatusSkipped,
		"Unknown": StatusUnknown,
	}
	for name, want := range cases {
		got, err := ParseStatus(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := ParseStatus("ok")
	assert.Error(t, err)
}

func TestStatus_JSON(t *testing.T) {
	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"No Data"`), &s))
	assert.Equal(t, StatusNoData, s)

	b, err := json.Marshal(StatusOk)
	require.NoError(t, err)
	assert.Equal(t, `"OK"`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`3`), &s))
}
