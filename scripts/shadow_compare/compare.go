package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetFile struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

type summary struct {
	breaking int
	optional int
}

type comparer struct {
	client      *http.Client
	goBase      string
	legacyBase  string
	goToken     string
	legacyToken string
	ignore      map[string]struct{}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func (c comparer) compareAll(ctx context.Context, targets []target) []comparison {
	results := make([]comparison, 0, len(targets))
	for _, t := range targets {
		results = append(results, c.compareTarget(ctx, t))
	}
	return results
}

func summarize(results []comparison) summary {
	var s summary
	for _, res := range results {
		failed := res.Error != nil || !res.StatusMatch || !res.BodyMatch
		if !failed {
			continue
		}
		if res.Target.Critical {
			s.breaking++
		} else if res.Error == nil {
			s.optional++
		}
	}
	return s
}

func (c comparer) compareTarget(ctx context.Context, tgt target) comparison {
	comp := comparison{Target: tgt}
	goStatus, goBody, goDur, goErr := c.perform(ctx, c.goBase, c.goToken, tgt)
	legacyStatus, legacyBody, legacyDur, legacyErr := c.perform(ctx, c.legacyBase, c.legacyToken, tgt)
	comp.DurationGo = goDur
	comp.DurationLegacy = legacyDur

	if goErr != nil {
		comp.Error = fmt.Errorf("go request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", legacyErr)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	comp.BodyMatch = c.bodiesEqual(unwrapEnvelope(goBody), legacyBody)
	return comp
}

func (c comparer) perform(ctx context.Context, base, token string, tgt target) (int, []byte, time.Duration, error) {
	if c.client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, time.Since(start), fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, time.Since(start), nil
}

// unwrapEnvelope returns the data member of a response envelope, or the body unchanged.
func unwrapEnvelope(body []byte) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if data, ok := env["data"]; ok {
		return data
	}
	return body
}

func (c comparer) bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	return reflect.DeepEqual(c.normalize(aj), c.normalize(bj))
}

func (c comparer) normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			if _, skip := c.ignore[k]; skip {
				continue
			}
			out[k] = c.normalize(v2)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, v2 := range val {
			out[i] = c.normalize(v2)
		}
		return out
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	default:
		return v
	}
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Fprintf(w, "  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Fprintf(w, "  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
		} else {
			fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
