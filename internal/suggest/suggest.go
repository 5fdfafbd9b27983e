// Package suggest asks a chat model to rewrite the text of one editable field.
// Replies are cleaned the same way manual edits are, so a suggestion can be
// staged as an ordinary edit.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/htmledit/internal/cache"
	"github.com/hyperifyio/htmledit/internal/llm"
	"github.com/hyperifyio/htmledit/internal/normalize"
	"github.com/hyperifyio/htmledit/internal/textnode"
)

var (
	// ErrNotConfigured is returned when no client or model is set.
	ErrNotConfigured = errors.New("suggester not configured")
	// ErrEmptySuggestion is returned when the model reply has no usable text.
	ErrEmptySuggestion = errors.New("empty suggestion")
	// ErrCacheMiss is returned in cache-only mode when nothing is cached.
	ErrCacheMiss = errors.New("suggestion not cached")
)

// DefaultInstruction is used when the caller gives none.
const DefaultInstruction = "Improve the wording. Keep the meaning and roughly the same length."

const defaultSystem = "You rewrite short text fragments of a document template. Reply with the rewritten text only: no quotes, no markup, no template tags, no explanations."

// Suggester produces rewrites for text refs.
type Suggester struct {
	Client llm.Client
	Model  string
	Cache  *cache.Store
	// SystemPrompt, when non-empty, replaces the default system message.
	SystemPrompt string
	// Language, when set, asks for the reply in that language.
	Language string
	// CacheOnly returns cached replies and fails with ErrCacheMiss otherwise.
	CacheOnly bool
}

// sleep is swapped by tests to avoid real backoff.
var sleep = func(d time.Duration) { time.Sleep(d) }

type cached struct {
	Text string `json:"text"`
}

// Suggest returns a cleaned rewrite of ref's current text.
func (s *Suggester) Suggest(ctx context.Context, ref textnode.Ref, instruction string) (string, error) {
	if s == nil || s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", ErrNotConfigured
	}
	system := defaultSystem
	if strings.TrimSpace(s.SystemPrompt) != "" {
		system = s.SystemPrompt
	}
	user := buildUserPrompt(ref, instruction, s.Language)
	key := cache.KeyFrom(s.Model, system+"\n\n"+user)

	if s.Cache != nil {
		if raw, ok, _ := s.Cache.Get(ctx, key); ok {
			var c cached
			if err := json.Unmarshal(raw, &c); err == nil && c.Text != "" {
				log.Debug().Str("address", ref.Address).Msg("suggestion from cache")
				return c.Text, nil
			}
		}
	}
	if s.CacheOnly {
		return "", ErrCacheMiss
	}

	req := openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.3,
		N:           1,
	}
	resp, err := s.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		// one retry after a short fixed backoff; ctx still bounds it
		log.Debug().Err(err).Str("address", ref.Address).Msg("suggestion call failed, retrying")
		sleep(200 * time.Millisecond)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		resp, err = s.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("suggestion call (after retry): %w", err)
		}
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptySuggestion
	}
	out := clean(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptySuggestion
	}
	if s.Cache != nil {
		payload, _ := json.Marshal(cached{Text: out})
		_ = s.Cache.Save(ctx, key, payload)
	}
	return out, nil
}

func buildUserPrompt(ref textnode.Ref, instruction, lang string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	var sb strings.Builder
	sb.WriteString("Field: ")
	sb.WriteString(ref.Where())
	sb.WriteString("\nCurrent text: ")
	sb.WriteString(ref.Display)
	sb.WriteString("\nInstruction: ")
	sb.WriteString(strings.TrimSpace(instruction))
	if lang != "" {
		sb.WriteString("\nLanguage: ")
		sb.WriteString(lang)
	}
	return sb.String()
}

// clean strips wrapping quotes and template markers, then applies the same
// normalization as a manual edit.
func clean(reply string) string {
	s := strings.TrimSpace(reply)
	for _, q := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"«", "»"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			s = s[len(q[0]) : len(s)-len(q[1])]
			break
		}
	}
	if normalize.HasTemplateMarker(s) {
		s = normalize.StripTemplateMarkers(s)
	}
	return normalize.CleanEdit(s)
}
