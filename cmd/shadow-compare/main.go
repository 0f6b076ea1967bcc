// Command shadow-compare replays read-only requests against the legacy salary backend and this API
// and reports status or body drift. Go responses are unwrapped from their envelope before comparing.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type target struct {
	Method string `json:"method"`
	// Path is requested on both sides unless LegacyPath overrides the legacy one.
	Path       string `json:"path"`
	LegacyPath string `json:"legacy_path,omitempty"`
	Critical   bool   `json:"critical"`
	// IgnoreFields are dropped from both bodies at every depth (timestamps, surrogate keys).
	IgnoreFields []string `json:"ignore_fields,omitempty"`
}

type targetFile struct {
	Targets []target `json:"targets"`
}

type endpoint struct {
	base  string
	token string
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Err            error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func main() {
	var (
		goSide      endpoint
		legacySide  endpoint
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goSide.base, "go-base", "http://localhost:8080/api/v1", "Go API base URL including the API prefix")
	flag.StringVar(&goSide.token, "go-token", os.Getenv("SHADOW_GO_TOKEN"), "Bearer token for the Go API")
	flag.StringVar(&legacySide.base, "legacy-base", "http://localhost:5000/api", "Legacy API base URL")
	flag.StringVar(&targetsPath, "targets", "cmd/shadow-compare/targets.json", "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	targets, err := loadTargets(targetsPath)
	if err != nil {
		logger.Fatal("failed to load targets", zap.String("path", targetsPath), zap.Error(err))
	}

	client := &http.Client{Timeout: timeout}
	results := make([]comparison, 0, len(targets))
	for _, t := range targets {
		results = append(results, compareTarget(client, goSide, legacySide, t))
	}

	breaking, optional := tally(results)
	report(logger, results)
	logger.Info("shadow compare finished", zap.Int("breaking", breaking), zap.Int("optional", optional))
	if breaking > 0 {
		os.Exit(1)
	}
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

func tally(results []comparison) (breaking, optional int) {
	for _, res := range results {
		if res.Err == nil && res.StatusMatch && res.BodyMatch {
			continue
		}
		if res.Target.Critical {
			breaking++
		} else {
			optional++
		}
	}
	return breaking, optional
}

func compareTarget(client *http.Client, goSide, legacySide endpoint, tgt target) comparison {
	comp := comparison{Target: tgt}

	legacyPath := tgt.LegacyPath
	if legacyPath == "" {
		legacyPath = tgt.Path
	}
	goStatus, goBody, goDur, err := fetch(client, goSide, tgt.Method, tgt.Path)
	comp.DurationGo = goDur
	if err != nil {
		comp.Err = fmt.Errorf("go request failed: %w", err)
		return comp
	}
	legacyStatus, legacyBody, legacyDur, err := fetch(client, legacySide, tgt.Method, legacyPath)
	comp.DurationLegacy = legacyDur
	if err != nil {
		comp.Err = fmt.Errorf("legacy request failed: %w", err)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	comp.BodyMatch = bodiesEqual(unwrapEnvelope(goBody), legacyBody, tgt.IgnoreFields)
	return comp
}

func fetch(client *http.Client, side endpoint, method, path string) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(method, strings.TrimRight(side.base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if side.token != "" {
		req.Header.Set("Authorization", "Bearer "+side.token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, time.Since(start), nil
}

// unwrapEnvelope returns the data member of a {data, error, meta} envelope, or the body unchanged.
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

func bodiesEqual(a, b []byte, ignore []string) bool {
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
	skip := make(map[string]struct{}, len(ignore))
	for _, field := range ignore {
		skip[field] = struct{}{}
	}
	return reflect.DeepEqual(normalize(aj, skip), normalize(bj, skip))
}

// normalize makes decimals comparable: MySQL returns DECIMAL columns as strings while this API
// encodes them as decimal strings with its own scale.
func normalize(v interface{}, skip map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if _, drop := skip[k]; drop {
				continue
			}
			out[k] = normalize(child, skip)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = normalize(child, skip)
		}
		return out
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return val
	default:
		return val
	}
}

func report(logger *zap.Logger, results []comparison) {
	for _, res := range results {
		fields := []zap.Field{
			zap.String("method", res.Target.Method),
			zap.String("path", res.Target.Path),
			zap.Int("go_status", res.GoStatus),
			zap.Int("legacy_status", res.LegacyStatus),
			zap.Duration("go_latency", res.DurationGo),
			zap.Duration("legacy_latency", res.DurationLegacy),
			zap.Bool("critical", res.Target.Critical),
		}
		switch {
		case res.Err != nil:
			logger.Error("compare failed", append(fields, zap.Error(res.Err))...)
		case !res.StatusMatch || !res.BodyMatch:
			logger.Warn("diff", append(fields, zap.Bool("status_match", res.StatusMatch), zap.Bool("body_match", res.BodyMatch))...)
		default:
			logger.Info("ok", fields...)
		}
	}
}
