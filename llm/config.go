package llm

import (
	"fmt"
	"sync"
	"time"
)

const DEFAULT_MAX_RETRIES = 5
const DEFAULT_TIMEOUT = 60 * time.Second
const DEFAULT_BACKOFF_BASE = 500 * time.Millisecond
const DEFAULT_BACKOFF_EXPONENT = 2.0
const DEFAULT_CHARS_PER_TOKEN = 4.0
const DEFAULT_TOKEN_UPLIFT = 1.05
const RETRY_ANY_STATUS = "*"

// ModelConfig declares one reachable model endpoint: where to send the
// request, how the request body is shaped, where the prompt gets injected
// and which paths pull the answer back out. Nothing about a vendor's wire
// shape is hard-coded in the client.
type ModelConfig struct {
	Name     string            `json:"name" mapstructure:"name"`
	Endpoint string            `json:"endpoint" mapstructure:"endpoint"`
	Headers  map[string]string `json:"headers" mapstructure:"headers"`

	// AuthHeader receives the (decrypted) credential, default Authorization
	AuthHeader string `json:"authHeader" mapstructure:"authHeader"`
	AuthScheme string `json:"authScheme" mapstructure:"authScheme"`

	RequestShape map[string]any `json:"requestShape" mapstructure:"requestShape"`
	PromptPath   string         `json:"promptPath" mapstructure:"promptPath"`

	ResponseTextPath      string   `json:"responseTextPath" mapstructure:"responseTextPath"`
	CostPath              string   `json:"costPath" mapstructure:"costPath"`
	FinishReasonPath      string   `json:"finishReasonPath" mapstructure:"finishReasonPath"`
	AcceptedFinishReasons []string `json:"acceptedFinishReasons" mapstructure:"acceptedFinishReasons"`

	RetryStatusCodes []string `json:"retryStatusCodes" mapstructure:"retryStatusCodes"`
	MaxRetries       int      `json:"maxRetries" mapstructure:"maxRetries"`
	TimeoutSeconds   int      `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	BackoffBaseMs    int      `json:"backoffBaseMs" mapstructure:"backoffBaseMs"`
	BackoffExponent  float64  `json:"backoffExponent" mapstructure:"backoffExponent"`

	MaxContextTokens int     `json:"maxContextTokens" mapstructure:"maxContextTokens"`
	CharsPerToken    float64 `json:"charsPerToken" mapstructure:"charsPerToken"`
	TokenUplift      float64 `json:"tokenUplift" mapstructure:"tokenUplift"`
}

func (c ModelConfig) maxRetries() int {
	if c.MaxRetries <= 0 {
		return DEFAULT_MAX_RETRIES
	}
	return c.MaxRetries
}

func (c ModelConfig) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DEFAULT_TIMEOUT
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ModelConfig) backoffBase() time.Duration {
	if c.BackoffBaseMs <= 0 {
		return DEFAULT_BACKOFF_BASE
	}
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

func (c ModelConfig) backoffExponent() float64 {
	if c.BackoffExponent <= 1 {
		return DEFAULT_BACKOFF_EXPONENT
	}
	return c.BackoffExponent
}

func (c ModelConfig) authHeader() string {
	if len(c.AuthHeader) == 0 {
		return "Authorization"
	}
	return c.AuthHeader
}

func (c ModelConfig) retryableStatus(status int) bool {
	for _, code := range c.RetryStatusCodes {
		if code == RETRY_ANY_STATUS {
			return true
		}
		if code == fmt.Sprintf("%d", status) {
			return true
		}
	}
	return false
}

// Registry maps model names to their configuration. Populated at startup
// from the models file and replaced wholesale on reload.
type Registry struct {
	mu     sync.RWMutex
	models map[string]ModelConfig
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]ModelConfig)}
}

func (r *Registry) Register(conf ModelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[conf.Name] = conf
}

func (r *Registry) Get(name string) (ModelConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conf, ok := r.models[name]
	return conf, ok
}

func (r *Registry) ReplaceAll(models []ModelConfig) {
	next := make(map[string]ModelConfig, len(models))
	for _, m := range models {
		next[m.Name] = m
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = next
}
