package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhabedank/promptbench/internal/core"
	"github.com/dhabedank/promptbench/internal/session"
)

// fakeService is an in-memory stand-in for the remote prompt service.
type fakeService struct {
	mu         sync.Mutex
	users      map[string]User     // token -> user
	prompts    map[string][]Prompt // user id -> prompts
	failPatch  int                 // status to answer PATCH with, 0 = succeed
	listCalls  map[string]int
	lastAuth   string
	lastBody   map[string]any
	lastMethod string
}

func newFakeService() *fakeService {
	return &fakeService{
		users: map[string]User{
			"token-a": {ID: "alice", Email: "alice@example.com"},
			"token-b": {ID: "bob", Email: "bob@example.com"},
		},
		prompts: map[string][]Prompt{
			"alice": {{ID: "p1", Title: "Greeting"}, {ID: "p2", Title: "Summary"}},
			"bob":   {{ID: "p9", Title: "Bob's"}},
		},
		listCalls: map[string]int{},
	}
}

func (f *fakeService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastAuth = r.Header.Get("Authorization")
	f.lastMethod = r.Method
	f.lastBody = nil
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &f.lastBody)
	}

	user, authed := f.users[strings.TrimPrefix(f.lastAuth, "Bearer ")]
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	switch {
	case path == "users/me":
		if !authed {
			f.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		f.writeJSON(w, http.StatusOK, user)

	case path == "execute":
		text, _ := f.lastBody["prompt_text"].(string)
		if text == "" {
			f.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"detail": []map[string]string{{"loc": "prompt_text", "msg": "field required"}},
			})
			return
		}
		if text == "explode" {
			f.writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "Upstream model unavailable"})
			return
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"output_text": "echo: " + text, "input_token_count": 4})

	case path == "sandbox":
		variants, _ := f.lastBody["variants"].([]any)
		results := []map[string]any{}
		// Answer in reverse to exercise reordering.
		for i := len(variants) - 1; i >= 0; i-- {
			v := variants[i].(map[string]any)
			text := v["text"].(string)
			res := map[string]any{"variant_id": v["id"], "latency_ms": 10, "input_tokens": 2, "output_tokens": 1}
			if text == "bad" {
				res["error"] = "content filtered"
			} else {
				res["output"] = "ran " + text
			}
			results = append(results, res)
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"results": results})

	case path == "templates/compose":
		first := f.lastBody["first"].(map[string]any)
		second := f.lastBody["second"].(map[string]any)
		f.writeJSON(w, http.StatusOK, map[string]string{"content": first["content"].(string) + "\n\n" + second["content"].(string)})

	case path == "prompts" && r.Method == http.MethodGet:
		if !authed {
			f.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		includeArchived := r.URL.Query().Get("include_archived") == "true"
		f.listCalls[r.URL.RawQuery]++
		out := []Prompt{}
		for _, p := range f.prompts[user.ID] {
			if includeArchived || !p.IsArchived {
				out = append(out, p)
			}
		}
		f.writeJSON(w, http.StatusOK, out)

	case path == "metrics" && r.Method == http.MethodGet:
		f.listCalls["metrics?"+r.URL.RawQuery]++
		f.writeJSON(w, http.StatusOK, []Metric{{ID: "m1", PromptID: r.URL.Query().Get("prompt_id"), Model: "claude-haiku-4-5-20251001", LatencyMs: 420}})

	case path == "prompts" && r.Method == http.MethodPost:
		title, _ := f.lastBody["title"].(string)
		content, _ := f.lastBody["content"].(string)
		created := Prompt{ID: "p" + strconv.Itoa(len(f.prompts[user.ID])+10), Title: title, Content: content}
		f.prompts[user.ID] = append([]Prompt{created}, f.prompts[user.ID]...)
		f.writeJSON(w, http.StatusCreated, created)

	case strings.HasPrefix(path, "prompts/") && r.Method == http.MethodPatch:
		if f.failPatch != 0 {
			f.writeJSON(w, f.failPatch, map[string]string{"detail": "Internal Server Error"})
			return
		}
		id := strings.TrimPrefix(path, "prompts/")
		list := f.prompts[user.ID]
		for i := range list {
			if list[i].ID == id {
				if v, ok := f.lastBody["is_archived"].(bool); ok {
					list[i].IsArchived = v
				}
				f.writeJSON(w, http.StatusOK, list[i])
				return
			}
		}
		f.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Prompt not found"})

	case strings.HasPrefix(path, "prompts/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "prompts/")
		list := f.prompts[user.ID]
		for i := range list {
			if list[i].ID == id {
				f.prompts[user.ID] = append(list[:i:i], list[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		f.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Prompt not found"})

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, token string) (*Client, *fakeService) {
	t.Helper()
	svc := newFakeService()
	server := httptest.NewServer(svc)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/api/", Token: token}), svc
}

func TestExecute(t *testing.T) {
	client, svc := newTestClient(t, "token-a")

	resp, err := client.Execute(context.Background(), core.ExecuteRequest{
		PromptText: "Translate: Hello",
		Model:      "claude-haiku-4-5-20251001",
		Variables:  map[string]string{"text": "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: Translate: Hello", resp.OutputText)
	assert.Equal(t, 4, resp.InputTokenCount)
	assert.Equal(t, 0, resp.OutputTokenCount)
	assert.Nil(t, resp.Cost)
	assert.Nil(t, resp.LatencyMs)
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, "Bearer token-a", svc.lastAuth)
	assert.Equal(t, "claude-haiku-4-5-20251001", svc.lastBody["model"])
}

func TestExecuteRemoteErrorCarriesDetail(t *testing.T) {
	client, _ := newTestClient(t, "token-a")

	_, err := client.Execute(context.Background(), core.ExecuteRequest{PromptText: "explode"})
	require.Error(t, err)
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusBadGateway, remote.Status)
	assert.Equal(t, "Upstream model unavailable", remote.Detail)

	_, err = client.Execute(context.Background(), core.ExecuteRequest{})
	require.True(t, errors.As(err, &remote))
	assert.Contains(t, remote.Detail, "field required")
}

func TestTransportFailureIsNotRemoteError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: url, HTTPTimeout: time.Second})
	_, err := client.Execute(context.Background(), core.ExecuteRequest{PromptText: "x"})
	require.Error(t, err)
	var remote *RemoteError
	assert.False(t, errors.As(err, &remote))
}

func TestClientTimeoutOnlyWhenConfigured(t *testing.T) {
	assert.Zero(t, NewClient(Config{}).httpClient.Timeout)
	assert.Equal(t, time.Second, NewClient(Config{HTTPTimeout: time.Second}).httpClient.Timeout)
}

func TestCurrentUserUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, "")

	_, err := client.CurrentUser(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestSandboxReordersAndIsolatesErrors(t *testing.T) {
	client, _ := newTestClient(t, "token-a")

	variants := core.IndexedVariants([]string{"A", "bad", "C"})
	results, err := client.Sandbox(context.Background(), SandboxRequest{Model: "m", Variants: variants, SharedInput: "in"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "v0", results[0].VariantID)
	assert.Equal(t, "ran A", results[0].OutputText())
	assert.Equal(t, "v1", results[1].VariantID)
	assert.Equal(t, "content filtered", results[1].Error)
	assert.Nil(t, results[1].Output)
	assert.Equal(t, "v2", results[2].VariantID)
	assert.Equal(t, "ran C", results[2].OutputText())
	assert.Equal(t, "m", results[2].Model)
}

func TestComposeTemplates(t *testing.T) {
	client, _ := newTestClient(t, "token-a")

	merged, err := client.ComposeTemplates(context.Background(),
		NamedTemplate{Name: "intro", Content: "You are helpful."},
		NamedTemplate{Name: "task", Content: "Summarize {text}."})
	require.NoError(t, err)
	assert.Equal(t, "You are helpful.\n\nSummarize {text}.", merged)
}

func TestListPromptsArchivedFlag(t *testing.T) {
	client, svc := newTestClient(t, "token-a")
	svc.prompts["alice"][0].IsArchived = true

	visible, err := client.ListPrompts(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := client.ListPrompts(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	client, _ := newTestClient(t, "token-a")
	limited := NewClient(Config{BaseURL: client.baseURL, Token: "token-a", RequestsPerSecond: 0.001})

	_, err := limited.CurrentUser(context.Background())
	require.NoError(t, err)

	// The bucket is empty and refills far beyond the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.CurrentUser(ctx)
	require.Error(t, err)
	var remote *RemoteError
	assert.False(t, errors.As(err, &remote))
}

func TestStoreRollsBackFailedArchive(t *testing.T) {
	client, svc := newTestClient(t, "token-a")
	store := NewStore(client, StoreConfig{Controller: session.ControllerConfig{SettleDelay: -1}})
	defer store.Close()

	user, err := store.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.ID)

	before, err := store.Prompts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, before, 2)

	svc.mu.Lock()
	svc.failPatch = http.StatusInternalServerError
	svc.mu.Unlock()

	err = store.ArchivePrompt(context.Background(), "p1", true)
	require.Error(t, err)
	var mErr *session.MutationError
	require.True(t, errors.As(err, &mErr))
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusInternalServerError, remote.Status)

	after, err := store.Prompts(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStoreArchiveRefreshesArchivedView(t *testing.T) {
	client, svc := newTestClient(t, "token-a")
	store := NewStore(client, StoreConfig{Controller: session.ControllerConfig{SettleDelay: -1}})
	defer store.Close()
	_, err := store.Resolve(context.Background())
	require.NoError(t, err)

	_, err = store.Prompts(context.Background(), false)
	require.NoError(t, err)
	all, err := store.Prompts(context.Background(), true)
	require.NoError(t, err)
	require.False(t, all[0].IsArchived)

	require.NoError(t, store.ArchivePrompt(context.Background(), "p1", true))
	store.Wait()

	visible, err := store.Prompts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "p2", visible[0].ID)

	all, err = store.Prompts(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsArchived)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, 2, svc.listCalls["include_archived=true"])
}

func TestStoreIdentitySwitchDropsCache(t *testing.T) {
	client, _ := newTestClient(t, "token-a")
	store := NewStore(client, StoreConfig{})
	defer store.Close()

	_, err := store.Prompts(context.Background(), false)
	assert.True(t, errors.Is(err, session.ErrUnresolved))

	_, err = store.Resolve(context.Background())
	require.NoError(t, err)
	alicePrompts, err := store.Prompts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, alicePrompts, 2)

	user, err := store.SwitchToken(context.Background(), "token-b")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.ID)

	cache, err := store.Cache()
	require.NoError(t, err)
	entry, err := cache.Get(cache.Key(PromptsResource(false)))
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, entry.Status)

	bobPrompts, err := store.Prompts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, bobPrompts, 1)
	assert.Equal(t, "p9", bobPrompts[0].ID)

	store.SignOut()
	cache, err = store.Cache()
	require.NoError(t, err)
	assert.Equal(t, session.Anonymous, cache.Identity())
}

func TestStoreDeleteWithoutLoadedList(t *testing.T) {
	client, svc := newTestClient(t, "token-a")
	store := NewStore(client, StoreConfig{})
	defer store.Close()
	_, err := store.Resolve(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.DeletePrompt(context.Background(), "p2"))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Len(t, svc.prompts["alice"], 1)
	assert.Equal(t, http.MethodDelete, svc.lastMethod)
}

func TestStoreMetricsAreCachedPerPrompt(t *testing.T) {
	client, svc := newTestClient(t, "token-a")
	store := NewStore(client, StoreConfig{})
	defer store.Close()
	_, err := store.Resolve(context.Background())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		metrics, err := store.Metrics(context.Background(), "p1")
		require.NoError(t, err)
		require.Len(t, metrics, 1)
		assert.Equal(t, "p1", metrics[0].PromptID)
	}
	_, err = store.Metrics(context.Background(), "p2")
	require.NoError(t, err)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, 1, svc.listCalls["metrics?prompt_id=p1"])
	assert.Equal(t, 1, svc.listCalls["metrics?prompt_id=p2"])
}

func TestStoreCreatePromptShowsPlaceholderThenStoredPrompt(t *testing.T) {
	client, _ := newTestClient(t, "token-a")
	store := NewStore(client, StoreConfig{Controller: session.ControllerConfig{SettleDelay: time.Hour}})
	defer store.Close()
	_, err := store.Resolve(context.Background())
	require.NoError(t, err)
	_, err = store.Prompts(context.Background(), false)
	require.NoError(t, err)

	created, err := store.CreatePrompt(context.Background(), PromptInput{Title: "New", Content: "Say {thing}"})
	require.NoError(t, err)
	assert.Equal(t, "p12", created.ID)

	// The refresh is still pending, so the head of the list is the placeholder.
	list, err := store.Prompts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, strings.HasPrefix(list[0].ID, "pending-"))
	assert.Equal(t, "New", list[0].Title)
	assert.Equal(t, []string{"thing"}, list[0].Variables())

	cache, err := store.Cache()
	require.NoError(t, err)
	_, err = cache.Refresh(context.Background(), cache.Key(PromptsResource(false)))
	require.NoError(t, err)

	list, err = store.Prompts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "p12", list[0].ID)
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "nope", errorDetail(400, []byte(`{"detail":"nope"}`)))
	assert.Equal(t, "plain failure", errorDetail(500, []byte("plain failure\n")))
	assert.Equal(t, "Service Unavailable", errorDetail(503, nil))
}
