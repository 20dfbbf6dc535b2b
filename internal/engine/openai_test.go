package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/invopop/jsonschema"
)

func newOpenAIServer(t *testing.T, chatReply, embedReply string, chatBody *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			if chatBody != nil {
				json.NewDecoder(r.Body).Decode(chatBody)
			}
			w.Write([]byte(chatReply))
		case "/embeddings":
			w.Write([]byte(embedReply))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

const (
	openAIChatReply = `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Dear client"}}]}`
	openAIEmbedReply = `{"object":"list","model":"text-embedding-3-small",
		"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],
		"usage":{"prompt_tokens":1,"total_tokens":1}}`
)

func TestNewOpenAIEngine_RequiresKeyOrBaseURL(t *testing.T) {
	if _, err := NewOpenAIEngine("  ", ""); err == nil {
		t.Fatal("expected error without api key and base url")
	}
	if _, err := NewOpenAIEngine("", "http://localhost:8080/v1"); err != nil {
		t.Errorf("base url without key should be accepted: %v", err)
	}
}

func TestOpenAIEngine_Chat(t *testing.T) {
	var body map[string]any
	srv := newOpenAIServer(t, openAIChatReply, openAIEmbedReply, &body)

	e, err := NewOpenAIEngine("sk-test", srv.URL)
	if err != nil {
		t.Fatalf("NewOpenAIEngine: %v", err)
	}

	schema := (&jsonschema.Reflector{DoNotReference: true}).Reflect(&sample{})
	out, err := e.Chat(context.Background(), "gpt-4o-mini",
		[]Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "write"},
			{Role: RoleAssistant, Content: "draft"},
			{Role: "tool", Content: "unknown role"},
		},
		ChatOptions{Temperature: Temperature(0.7), Schema: schema, SchemaName: "sample"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "Dear client" {
		t.Errorf("Chat() = %q, want %q", out, "Dear client")
	}

	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
	if body["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want 0.7", body["temperature"])
	}

	msgs, _ := body["messages"].([]any)
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("messages = %v", body["messages"])
	}
	for i, want := range wantRoles {
		m, _ := msgs[i].(map[string]any)
		if m["role"] != want {
			t.Errorf("messages[%d].role = %v, want %s", i, m["role"], want)
		}
	}

	rf, _ := body["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("response_format = %v, want json_schema", body["response_format"])
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "sample" {
		t.Errorf("json_schema.name = %v, want sample", js["name"])
	}
	sch, _ := js["schema"].(map[string]any)
	props, _ := sch["properties"].(map[string]any)
	if _, ok := props["skills"]; !ok {
		t.Errorf("json_schema.schema = %v, want a skills property", js["schema"])
	}
}

func TestOpenAIEngine_ChatWithoutOptions(t *testing.T) {
	var body map[string]any
	srv := newOpenAIServer(t, openAIChatReply, openAIEmbedReply, &body)
	e, _ := NewOpenAIEngine("sk-test", srv.URL)

	if _, err := e.Chat(context.Background(), "gpt-4o-mini", []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if _, ok := body["temperature"]; ok {
		t.Errorf("temperature should be omitted, got %v", body["temperature"])
	}
	if _, ok := body["response_format"]; ok {
		t.Errorf("response_format should be omitted, got %v", body["response_format"])
	}
}

func TestOpenAIEngine_ChatNoChoices(t *testing.T) {
	srv := newOpenAIServer(t,
		`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`,
		openAIEmbedReply, nil)
	e, _ := NewOpenAIEngine("sk-test", srv.URL)

	_, err := e.Chat(context.Background(), "gpt-4o-mini", []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("err = %v, want no choices error", err)
	}
}

func TestOpenAIEngine_Embed(t *testing.T) {
	srv := newOpenAIServer(t, openAIChatReply, openAIEmbedReply, nil)
	e, _ := NewOpenAIEngine("sk-test", srv.URL)

	vec, err := e.Embed(context.Background(), "text-embedding-3-small", "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Errorf("Embed() = %v, want [0.5 0.25]", vec)
	}
}

func TestOpenAIEngine_EmbedEmpty(t *testing.T) {
	srv := newOpenAIServer(t, openAIChatReply,
		`{"object":"list","model":"text-embedding-3-small","data":[],"usage":{"prompt_tokens":1,"total_tokens":1}}`, nil)
	e, _ := NewOpenAIEngine("sk-test", srv.URL)

	_, err := e.Embed(context.Background(), "text-embedding-3-small", "hello")
	if err == nil || !strings.Contains(err.Error(), "empty embedding") {
		t.Errorf("err = %v, want empty embedding error", err)
	}
}

func TestOpenAIEngine_IsNotModelManager(t *testing.T) {
	var e Engine = &OpenAIEngine{}
	if _, ok := e.(ModelManager); ok {
		t.Error("hosted engine should not implement ModelManager")
	}
	if e.Name() != ProviderOpenAI {
		t.Errorf("Name() = %q", e.Name())
	}
}
