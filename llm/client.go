package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nishant-bin/neuranet/analytics"
	"github.com/nishant-bin/neuranet/flow"
	"github.com/nishant-bin/neuranet/logger"
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/util"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

// Client sends composed prompts to model endpoints. Failure is signaled by
// a nil result, never a panic; the details land in the log and the usage
// collector. Retries live here and only here, callers must not wrap
// invocations in their own retry loops.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}
	// per-attempt deadlines come from the context, not the http client
	return &Client{httpClient: &http.Client{Transport: transport}}
}

// Invoke renders the prompt, validates it against the model's context
// window, sends it with retry/backoff and extracts the answer through the
// model's configured paths. A nil return means the call failed; a present
// result with empty text is a legitimate answer.
func (c *Client) Invoke(ctx context.Context, promptData map[string]any, promptTemplate string, credential string, conf ModelConfig) *model.ModelCallResult {
	prompt := flow.RenderTemplate(promptTemplate, promptData)

	estimate := NewEstimator(conf).Estimate(prompt)
	if conf.MaxContextTokens > 0 && estimate > conf.MaxContextTokens-1 {
		logger.Warn("prompt exceeds model context window, not sending",
			zap.String("model", conf.Name), zap.Int("estimate", estimate), zap.Int("max", conf.MaxContextTokens))
		return nil
	}

	body, err := composeRequest(conf, prompt)
	if err != nil {
		logger.Error("error composing model request", zap.String("model", conf.Name), zap.Error(err))
		return nil
	}

	attempts := 0
	var parsed map[string]any
	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, conf.timeout())
		defer cancel()

		status, payload, err := c.send(attemptCtx, conf, credential, body)
		if err != nil {
			// network errors and per-attempt timeouts are retry-eligible
			return fmt.Errorf("error calling model %s %w", conf.Name, err)
		}
		if effectively2xx(status) {
			if err := json.Unmarshal(payload, &parsed); err != nil {
				return backoff.Permanent(fmt.Errorf("error parsing model response %w", err))
			}
			return nil
		}
		statusErr := fmt.Errorf("model %s returned status %d", conf.Name, status)
		if conf.retryableStatus(status) {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialJitterBackoff(conf.backoffBase(), conf.backoffExponent()), uint64(conf.maxRetries())),
		ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		logger.Error("model invocation failed", zap.String("model", conf.Name), zap.Int("attempts", attempts), zap.Error(err))
		analytics.RecordModelCall(conf.Name, attempts, estimate, 0, false)
		return nil
	}

	result := extractResult(conf, parsed)
	if result == nil {
		analytics.RecordModelCall(conf.Name, attempts, estimate, 0, false)
		return nil
	}
	analytics.RecordModelCall(conf.Name, attempts, estimate, result.Cost, true)
	return result
}

func composeRequest(conf ModelConfig, prompt any) ([]byte, error) {
	if len(conf.PromptPath) == 0 {
		return nil, fmt.Errorf("model %s has no prompt path", conf.Name)
	}
	shape := make(map[string]any)
	if conf.RequestShape != nil {
		data, err := json.Marshal(conf.RequestShape)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &shape); err != nil {
			return nil, err
		}
	}
	if err := util.SetValueAtPath(shape, conf.PromptPath, prompt); err != nil {
		return nil, fmt.Errorf("error injecting prompt at %s %w", conf.PromptPath, err)
	}
	return json.Marshal(shape)
}

func (c *Client) send(ctx context.Context, conf ModelConfig, credential string, body []byte) (int, []byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	for name, value := range conf.Headers {
		request.Header.Set(name, value)
	}
	if len(credential) > 0 {
		value := credential
		if len(conf.AuthScheme) > 0 {
			value = conf.AuthScheme + " " + credential
		}
		request.Header.Set(conf.authHeader(), value)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()
	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, err
	}
	return response.StatusCode, payload, nil
}

// extractResult validates the response shape and pulls out the text and
// cost. Shape failures are terminal, never retried.
func extractResult(conf ModelConfig, parsed map[string]any) *model.ModelCallResult {
	if len(conf.FinishReasonPath) > 0 && len(conf.AcceptedFinishReasons) > 0 {
		value, err := jsonpath.JsonPathLookup(parsed, conf.FinishReasonPath)
		if err != nil {
			logger.Warn("model response has no finish reason", zap.String("model", conf.Name))
			return nil
		}
		reason := fmt.Sprintf("%v", value)
		if !contains(conf.AcceptedFinishReasons, reason) {
			logger.Warn("model finished for an unacceptable reason",
				zap.String("model", conf.Name), zap.String("finishReason", reason))
			return nil
		}
	}
	value, err := jsonpath.JsonPathLookup(parsed, conf.ResponseTextPath)
	if err != nil {
		logger.Warn("model response lacks content path",
			zap.String("model", conf.Name), zap.String("path", conf.ResponseTextPath), zap.Error(err))
		return nil
	}
	text, ok := value.(string)
	if !ok {
		logger.Warn("model response content is not text", zap.String("model", conf.Name))
		return nil
	}
	result := &model.ModelCallResult{ResponseText: text}
	if len(conf.CostPath) > 0 {
		if cost, err := jsonpath.JsonPathLookup(parsed, conf.CostPath); err == nil {
			if costValue, ok := cost.(float64); ok {
				result.Cost = costValue
			}
		}
	}
	return result
}

// effectively2xx treats every 100-wide range starting at a multiple of 200
// as success. Nonstandard gateways in front of model vendors have been
// seen returning such codes.
func effectively2xx(status int) bool {
	return status/200 == 1 && status%200 < 100
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// exponentialJitterBackoff waits base * exponent^attempt * (1 + jitter)
// with jitter drawn from [0,1). The jitter multiplier never goes below 1,
// so the deterministic floor of each wait is preserved.
type exponentialJitterBackoff struct {
	base     time.Duration
	exponent float64
	attempt  int
}

func newExponentialJitterBackoff(base time.Duration, exponent float64) *exponentialJitterBackoff {
	return &exponentialJitterBackoff{base: base, exponent: exponent}
}

var _ backoff.BackOff = new(exponentialJitterBackoff)

func (b *exponentialJitterBackoff) NextBackOff() time.Duration {
	wait := float64(b.base) * math.Pow(b.exponent, float64(b.attempt)) * (1 + rand.Float64())
	b.attempt++
	return time.Duration(wait)
}

func (b *exponentialJitterBackoff) Reset() {
	b.attempt = 0
}
