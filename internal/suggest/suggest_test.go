package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/htmledit/internal/cache"
	"github.com/hyperifyio/htmledit/internal/llm"
	"github.com/hyperifyio/htmledit/internal/textnode"
)

type fakeClient struct {
	replies []string
	errs    []error
	reqs    []openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := len(f.reqs)
	f.reqs = append(f.reqs, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	content := ""
	if i < len(f.replies) {
		content = f.replies[i]
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}}}}, nil
}

var lead = textnode.Ref{Address: "TEXT|p|lead|1", Display: "Congratulations", Kind: textnode.KindPlain, Tag: "p", Class: "lead", Occurrence: 1}

func init() { sleep = func(time.Duration) {} }

func TestSuggest_PromptAndCleaning(t *testing.T) {
	fc := &fakeClient{replies: []string{"  \"Well   done,  Cafe\u0301!\"  "}}
	s := &Suggester{Client: fc, Model: "m", Language: "en"}
	got, err := s.Suggest(context.Background(), lead, "Make it warmer")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if got != "Well done, Caf\u00e9!" {
		t.Fatalf("unexpected suggestion %q", got)
	}
	if len(fc.reqs) != 1 {
		t.Fatalf("expected 1 call, got %d", len(fc.reqs))
	}
	user := fc.reqs[0].Messages[1].Content
	for _, want := range []string{"<p class=lead> (#1)", "Current text: Congratulations", "Instruction: Make it warmer", "Language: en"} {
		if !strings.Contains(user, want) {
			t.Fatalf("prompt missing %q:\n%s", want, user)
		}
	}
	if fc.reqs[0].Messages[0].Content != defaultSystem {
		t.Fatalf("unexpected system prompt")
	}
}

func TestSuggest_RetriesOnce(t *testing.T) {
	fc := &fakeClient{errs: []error{errors.New("boom")}, replies: []string{"", "Bravo"}}
	s := &Suggester{Client: fc, Model: "m"}
	got, err := s.Suggest(context.Background(), lead, "")
	if err != nil || got != "Bravo" {
		t.Fatalf("expected retry success, got %q (%v)", got, err)
	}
	if !strings.Contains(fc.reqs[0].Messages[1].Content, DefaultInstruction) {
		t.Fatalf("default instruction not used")
	}

	fc = &fakeClient{errs: []error{errors.New("a"), errors.New("b")}}
	s.Client = fc
	if _, err := s.Suggest(context.Background(), lead, ""); err == nil || len(fc.reqs) != 2 {
		t.Fatalf("expected failure after two calls, got %v (%d calls)", err, len(fc.reqs))
	}
}

func TestSuggest_EmptyAndMarkerOnlyReplies(t *testing.T) {
	for _, reply := range []string{"   ", "{{ name }}", `""`} {
		s := &Suggester{Client: &fakeClient{replies: []string{reply}}, Model: "m"}
		if _, err := s.Suggest(context.Background(), lead, ""); !errors.Is(err, ErrEmptySuggestion) {
			t.Fatalf("reply %q: expected ErrEmptySuggestion, got %v", reply, err)
		}
	}
}

func TestSuggest_CachesReplies(t *testing.T) {
	store := &cache.Store{Dir: t.TempDir()}
	fc := &fakeClient{replies: []string{"Splendid"}}
	s := &Suggester{Client: fc, Model: "m", Cache: store}
	for i := 0; i < 2; i++ {
		got, err := s.Suggest(context.Background(), lead, "x")
		if err != nil || got != "Splendid" {
			t.Fatalf("call %d: %q (%v)", i, got, err)
		}
	}
	if len(fc.reqs) != 1 {
		t.Fatalf("expected cached second call, got %d model calls", len(fc.reqs))
	}

	only := &Suggester{Client: &fakeClient{}, Model: "m", Cache: store, CacheOnly: true}
	if got, err := only.Suggest(context.Background(), lead, "x"); err != nil || got != "Splendid" {
		t.Fatalf("cache-only hit: %q (%v)", got, err)
	}
	if _, err := only.Suggest(context.Background(), lead, "different"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSuggest_NotConfigured(t *testing.T) {
	if _, err := (&Suggester{Model: "m"}).Suggest(context.Background(), lead, ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSuggest_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct{ Role, Content string } `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "Echo " + req.Model}}},
		})
	}))
	defer srv.Close()

	s := &Suggester{Client: llm.New(srv.URL+"/v1", "k", 5*time.Second), Model: "tiny"}
	got, err := s.Suggest(context.Background(), lead, "")
	if err != nil || got != "Echo tiny" {
		t.Fatalf("unexpected result %q (%v)", got, err)
	}
}
