package marketdata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryRejectsMissingAPIKey(t *testing.T) {
	c := NewClient("", "", nil)
	_, err := c.Query(QueryParams{Scenario: "da", Node: "dn1", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "MISSING_API_KEY", apiErr.Code)
}

func TestQueryRejectsBadDateRange(t *testing.T) {
	c := NewClient("key", "", nil)
	now := time.Now()
	_, err := c.Query(QueryParams{Scenario: "da", Node: "dn1", StartTime: now, EndTime: now.Add(-time.Hour)})
	require.Error(t, err)
}

func TestQueryFetchesAndDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.Header.Get("x-api-key"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(ScenarioResponse{
			StatusCode: 200,
			Data:       []Interval{{Scenario: "da", Node: "dn1", LMP: 42.5}},
		})
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, nil)
	resp, err := c.Query(QueryParams{Scenario: "da", Node: "dn1", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	require.InDelta(t, 42.5, resp.Data[0].LMP, 1e-9)
}

func TestQueryMapsUnauthorizedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, nil)
	_, err := c.Query(QueryParams{Scenario: "da", Node: "dn1", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "UNAUTHORIZED", apiErr.Code)
}
