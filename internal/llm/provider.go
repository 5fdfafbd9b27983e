// Package llm adapts OpenAI-compatible chat endpoints for the field rewrite
// helper.
package llm

import (
    "context"
    "net"
    "net/http"
    "strings"
    "time"

    openai "github.com/sashabaranov/go-openai"
)

// Client is the one call the suggestion helper needs from a chat backend.
type Client interface {
    CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is an optional capability used for a connectivity preflight.
type ModelLister interface {
    ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to the Client/ModelLister interfaces.
type OpenAIProvider struct {
    Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
    return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
    return p.Inner.ListModels(ctx)
}

// New builds a provider for baseURL (empty means the OpenAI default) and key.
func New(baseURL, apiKey string, timeout time.Duration) *OpenAIProvider {
    cfg := openai.DefaultConfig(apiKey)
    if strings.TrimSpace(baseURL) != "" {
        cfg.BaseURL = strings.TrimRight(baseURL, "/")
    }
    cfg.HTTPClient = newHTTPClient(timeout)
    return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}

func newHTTPClient(timeout time.Duration) *http.Client {
    if timeout <= 0 {
        timeout = 60 * time.Second
    }
    transport := &http.Transport{
        Proxy: http.ProxyFromEnvironment,
        DialContext: (&net.Dialer{
            Timeout:   5 * time.Second,
            KeepAlive: 30 * time.Second,
        }).DialContext,
        ForceAttemptHTTP2:     true,
        MaxIdleConnsPerHost:   4,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   5 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
    }
    return &http.Client{Transport: transport, Timeout: timeout}
}
