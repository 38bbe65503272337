// Command chat-lambda serves the HTTP chat API from AWS Lambda behind an API
// Gateway HTTP API. Sessions must live in Redis since invocations share no
// memory.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/totalhomes/lead-qualifier/cmd/mainconfig"
	"github.com/totalhomes/lead-qualifier/internal/api/router"
	"github.com/totalhomes/lead-qualifier/internal/app/bootstrap"
	appconfig "github.com/totalhomes/lead-qualifier/internal/config"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/internal/webchat"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

// waiter drains background work before the invocation returns.
type waiter interface {
	Wait()
}

type app struct {
	handler http.Handler
	pending waiter
}

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)

	a, err := build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("chat-lambda init failed", "error", err)
		os.Exit(1)
	}
	lambda.Start(a.handle)
}

func build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	deps := bootstrap.LeadDeps{AWS: &awsCfg}
	if cfg.LeadStore == bootstrap.LeadStorePostgres {
		pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		deps.Pool = pool
	}

	repo, err := bootstrap.BuildLeadRepository(cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	recorder := bootstrap.BuildRecorder(cfg, repo, deps, logger)

	qualifyCfg, err := bootstrap.BuildQualifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := bootstrap.BuildBackend(ctx, cfg, awsCfg, nil, logger)
	if err != nil {
		return nil, err
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, false)
	if redisClient == nil {
		logger.Warn("REDIS_ADDR not set; sessions will not survive between invocations")
	}
	manager := bootstrap.BuildSessionManager(cfg, bootstrap.ManagerDeps{
		Backend:    backend,
		Qualify:    qualifyCfg,
		Redis:      redisClient,
		OnComplete: recorder,
	}, logger)

	handler := router.New(&router.Config{
		Logger:      logger,
		ChatHandler: webchat.NewHandler(manager, qualify.ParseLanguage(cfg.DefaultLanguage), logger),
	})
	return &app{handler: handler, pending: recorder}, nil
}

func (a *app) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if path == "/chat/ws" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound, Body: "websocket chat is not served here"}, nil
	}
	if path != "/health" && !strings.HasPrefix(path, "/chat/") {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	req, err := toRequest(ctx, evt, path)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	rw := newBufferedResponse()
	a.handler.ServeHTTP(rw, req)
	// The invocation is frozen once it returns, so lead fan-out finishes first.
	a.pending.Wait()
	return rw.toEvent(), nil
}

func toRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest, path string) (*http.Request, error) {
	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := &url.URL{Path: path, RawQuery: evt.RawQueryString}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if ip := evt.RequestContext.HTTP.SourceIP; ip != "" {
		req.RemoteAddr = ip
		req.Header.Set("X-Real-Ip", ip)
	}
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

// bufferedResponse collects a handler's response for the Lambda event.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: http.Header{}}
}

func (r *bufferedResponse) Header() http.Header { return r.header }

func (r *bufferedResponse) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *bufferedResponse) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *bufferedResponse) toEvent() events.APIGatewayV2HTTPResponse {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := make(map[string]string, len(r.header))
	for k := range r.header {
		headers[strings.ToLower(k)] = r.header.Get(k)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       r.body.String(),
	}
}
