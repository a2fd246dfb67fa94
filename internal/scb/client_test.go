package scb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statcheck/internal/cache"
	"statcheck/internal/metadata"
	"statcheck/internal/types"
)

const metadataDoc = `{
	"variables": [
		{"code": "ContentsCode", "text": "observations",
		 "values": ["C01"], "valueTexts": ["Deaths per year"]},
		{"code": "Tid", "text": "year",
		 "values": ["2019", "2020"], "valueTexts": ["2019", "2020"]}
	]
}`

const datasetDoc = `{
	"id": ["ContentsCode", "Tid"],
	"size": [1, 2],
	"dimension": {
		"ContentsCode": {"label": "observations", "category": {
			"index": {"C01": 0}, "label": {"C01": "Deaths per year"}
		}},
		"Tid": {"label": "year", "category": {
			"index": {"2019": 0, "2020": 1}
		}}
	},
	"value": [88766, 98124]
}`

func testTable() types.Table {
	return types.Table{ID: "TAB4392", Title: "Deaths by year", APIPath: "tables/TAB4392"}
}

func testQuery() *types.Query {
	return &types.Query{Selection: []types.Selection{
		{Dimension: "ContentsCode", Items: []string{"C01"}},
		{Dimension: "Tid", Items: []string{"2019", "2020"}},
	}}
}

func newTestClient(serverURL string, fetchCache types.Cache) *Client {
	return NewClient(Config{
		BaseURL:  serverURL,
		Timeout:  5 * time.Second,
		Cache:    fetchCache,
		CacheTTL: time.Hour,
	})
}

func TestMetadata_FollowsMetadataLink(t *testing.T) {
	var metaURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/tables/TAB4392", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"links": [
			{"rel": "self", "href": "ignored"},
			{"rel": "metadata", "href": "` + metaURL + `"}
		]}`))
	})
	mux.HandleFunc("/tables/TAB4392/metadata", func(w http.ResponseWriter, r *http.Request) {
		// The configured language must win over the advertised one.
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		w.Write([]byte(metadataDoc))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	metaURL = server.URL + "/tables/TAB4392/metadata?lang=sv"

	client := newTestClient(server.URL, nil)
	vars, err := client.Metadata(context.Background(), testTable())
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "ContentsCode", vars[0].ID)
	assert.Equal(t, "Tid", vars[1].ID)
}

func TestMetadata_InlineDocumentWithoutLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(metadataDoc))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	vars, err := client.Metadata(context.Background(), testTable())
	require.NoError(t, err)
	require.Len(t, vars, 2)
}

func TestMetadata_UnsupportedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"links": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.Metadata(context.Background(), testTable())
	require.Error(t, err)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedShape)
}

func TestFetchData_DecodesObservations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "json-stat2", r.URL.Query().Get("outputFormat"))
		w.Write([]byte(datasetDoc))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	ds, obs, err := client.FetchData(context.Background(), testTable(), testQuery())
	require.NoError(t, err)
	require.NotNil(t, ds)
	require.Len(t, obs, 2)

	assert.Equal(t, []string{"C01", "2019"}, obs[0].Codes)
	assert.Equal(t, float64(88766), obs[0].Value)
	assert.Equal(t, []string{"C01", "2020"}, obs[1].Codes)
	assert.Equal(t, float64(98124), obs[1].Value)
}

func TestFetchData_SecondCallServedFromCache(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(datasetDoc))
	}))
	defer server.Close()

	client := newTestClient(server.URL, cache.NewMemoryCache())

	_, first, err := client.FetchData(context.Background(), testTable(), testQuery())
	require.NoError(t, err)
	_, second, err := client.FetchData(context.Background(), testTable(), testQuery())
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load(), "second fetch must not reach the network")
	assert.Equal(t, first, second)
}

func TestFetchData_EquivalentQueriesShareCacheEntry(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(datasetDoc))
	}))
	defer server.Close()

	client := newTestClient(server.URL, cache.NewMemoryCache())

	_, _, err := client.FetchData(context.Background(), testTable(), testQuery())
	require.NoError(t, err)

	// Same selections, different order.
	reordered := &types.Query{Selection: []types.Selection{
		{Dimension: "Tid", Items: []string{"2020", "2019"}},
		{Dimension: "ContentsCode", Items: []string{"C01"}},
	}}
	_, _, err = client.FetchData(context.Background(), testTable(), reordered)
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load())
}

func TestFetchData_UpstreamErrorNotCached(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "selection too large", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, cache.NewMemoryCache())

	_, _, err := client.FetchData(context.Background(), testTable(), testQuery())
	require.Error(t, err)

	_, _, err = client.FetchData(context.Background(), testTable(), testQuery())
	require.Error(t, err)
	assert.Equal(t, int64(2), hits.Load(), "failures must not populate the cache")
}

func TestFetchData_EmptyResultNotCached(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"id": ["Tid"], "size": [1], "dimension": {"Tid": {"category": {"index": {"2020": 0}}}}, "value": [null]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, cache.NewMemoryCache())

	_, obs, err := client.FetchData(context.Background(), testTable(), testQuery())
	require.NoError(t, err)
	assert.Empty(t, obs)

	_, _, err = client.FetchData(context.Background(), testTable(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestSearchTables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "deaths", r.URL.Query().Get("query"))
		w.Write([]byte(`{"tables": [
			{"id": "TAB4392", "label": "Deaths by year", "firstPeriod": "1990",
			 "lastPeriod": "2023", "updated": "2024-02-22T06:00:00Z"},
			{"id": "TAB5000", "label": "Death causes", "description": "By cause of death"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	tables, err := client.SearchTables(context.Background(), "deaths")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "TAB4392", tables[0].ID)
	assert.Equal(t, "tables/TAB4392", tables[0].APIPath)
	assert.Equal(t, "Deaths by year", tables[0].Description, "empty description falls back to label")
	assert.Equal(t, "1990", tables[0].FirstPeriod)
	assert.Equal(t, 2024, tables[0].Updated.Year())

	assert.Equal(t, "By cause of death", tables[1].Description)
	assert.True(t, tables[1].Updated.IsZero())
}
