package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapEnvelope(t *testing.T) {
	assert.JSONEq(t, `{"total":3}`, string(unwrapEnvelope([]byte(`{"data":{"total":3},"meta":{"cache_hit":false}}`))))
	assert.Equal(t, `{"total":3}`, string(unwrapEnvelope([]byte(`{"total":3}`))))
	assert.Equal(t, `not json`, string(unwrapEnvelope([]byte(`not json`))))
}

func TestBodiesEqualIgnoresKeysAndNumberForm(t *testing.T) {
	cmp := comparer{ignore: toSet([]string{"generatedAt"})}

	assert.True(t, cmp.bodiesEqual(
		[]byte(`{"count":2.0,"generatedAt":"a","items":[{"n":1}]}`),
		[]byte(`{"count":2,"generatedAt":"b","items":[{"n":1.0}]}`),
	))
	assert.False(t, cmp.bodiesEqual([]byte(`{"count":2}`), []byte(`{"count":3}`)))
	assert.False(t, cmp.bodiesEqual([]byte(`{"count":2}`), []byte(`<html>`)))
}

func TestCompareTargetAgainstServers(t *testing.T) {
	var goAuth string
	goSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		goAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"total":3,"male":2},"meta":{"processing_time_ms":4}}`))
	}))
	defer goSrv.Close()
	legacySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "leaderboard") {
			_, _ = w.Write([]byte(`{"total":4,"male":2}`))
			return
		}
		_, _ = w.Write([]byte(`{"total":3,"male":2}`))
	}))
	defer legacySrv.Close()

	cmp := comparer{
		client:     &http.Client{Timeout: time.Second},
		goBase:     goSrv.URL,
		legacyBase: legacySrv.URL,
		goToken:    "signed",
	}

	results := cmp.compareAll(context.Background(), []target{
		{Method: "GET", Path: "api/v1/analytics/gender-distribution", Critical: true},
		{Method: "GET", Path: "/api/v1/analytics/leaderboard", Critical: false},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "Bearer signed", goAuth)
	assert.True(t, results[0].StatusMatch)
	assert.True(t, results[0].BodyMatch)
	assert.False(t, results[1].BodyMatch)

	s := summarize(results)
	assert.Equal(t, 0, s.breaking)
	assert.Equal(t, 1, s.optional)

	var out bytes.Buffer
	printReport(&out, results)
	assert.Contains(t, out.String(), "[DIFF] GET /api/v1/analytics/leaderboard")
}

func TestSummarizeCountsCriticalErrors(t *testing.T) {
	results := []comparison{
		{Target: target{Critical: true}, Error: assert.AnError},
		{Target: target{Critical: false}, Error: assert.AnError},
		{Target: target{Critical: true}, StatusMatch: true, BodyMatch: true},
	}
	s := summarize(results)
	assert.Equal(t, 1, s.breaking)
	assert.Equal(t, 0, s.optional)
}

func TestLoadTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"method":"GET","path":"/api/v1/groups"}]}`), 0o600))

	targets, err := loadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "/api/v1/groups", targets[0].Path)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"targets":[]}`), 0o600))
	_, err = loadTargets(empty)
	assert.Error(t, err)
}

func TestRunFailsOnBreakingDiff(t *testing.T) {
	goSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"total":1}}`))
	}))
	defer goSrv.Close()
	legacySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":2}`))
	}))
	defer legacySrv.Close()

	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"method":"GET","path":"/x","critical":true}]}`), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--go-base", goSrv.URL, "--legacy-base", legacySrv.URL, "--targets", path, "--jwt-secret", "secret"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, out.String(), "Breaking diffs: 1")
}
