package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	hc := httpclient.NewClient(httpclient.Config{
		Timeout:        time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  2 * time.Millisecond,
	}, logger)
	return NewClient(server.URL+"/", hc, logger)
}

func TestListPlatforms(t *testing.T) {
	var gotQuery, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/platforms", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"results":[{"id":"p1","name":"github","community":"c1","disconnectedAt":null,"metadata":{"account":{"login":"acme"}}}]}`))
	})

	ctx := appctx.SetAuthToken(context.Background(), "Bearer token-1")
	list, err := client.ListPlatforms(ctx, Query{Name: "github", Community: "c1"})
	require.NoError(t, err)

	assert.Equal(t, "community=c1&name=github", gotQuery)
	assert.Equal(t, "Bearer token-1", gotAuth)
	require.Len(t, list.Results, 1)
	assert.Equal(t, models.PlatformGithub, list.Results[0].Name)
	assert.True(t, list.Results[0].Active())
}

func TestListModules_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":"m1","name":"hivemind","community":"c1"}]}`))
	})

	list, err := client.ListModules(context.Background(), Query{Name: "hivemind", Community: "c1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, list.Results, 1)
	assert.Equal(t, "m1", list.Results[0].ID)
}

func TestPatchModule_SendsPayload(t *testing.T) {
	var got models.PatchPayload
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/modules/m1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"m1","name":"hivemind","community":"c1"}`))
	})

	payload := models.PatchPayload{Platforms: []models.ModulePlatform{
		{Platform: "p1", Name: models.PlatformGithub, Metadata: map[string]any{"activated": true}},
	}}
	module, err := client.PatchModule(context.Background(), "m1", payload)
	require.NoError(t, err)

	assert.Equal(t, "m1", module.ID)
	assert.Equal(t, payload, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPatchModule_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.PatchModule(context.Background(), "m1", models.PatchPayload{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusBadGateway, httperror.GetStatusCode(err))
}

func TestCreateModule_Validates(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"m2","name":"hivemind","community":"c1"}`))
	})

	_, err := client.CreateModule(context.Background(), models.CreateModuleRequest{Name: "hivemind"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	assert.Equal(t, int32(0), calls.Load())

	module, err := client.CreateModule(context.Background(), models.CreateModuleRequest{Name: "hivemind", Community: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "m2", module.ID)
}

func TestGetCommunity_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Community not found"}`))
	})

	_, err := client.GetCommunity(context.Background(), "c404")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	assert.Contains(t, err.Error(), "Community not found")
}

func TestPatchAndDeleteCommunity(t *testing.T) {
	var methods []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var body models.PatchCommunityRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(models.Community{ID: "c1", Name: body.Name})
	})

	community, err := client.PatchCommunity(context.Background(), "c1", models.PatchCommunityRequest{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", community.Name)

	require.NoError(t, client.DeleteCommunity(context.Background(), "c1"))
	assert.Equal(t, []string{"PATCH /communities/c1", "DELETE /communities/c1"}, methods)
}
