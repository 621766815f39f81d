package api

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhabedank/promptbench/internal/session"
)

// Store reads collections through the session cache and applies changes
// optimistically, so the cached lists reflect a change before the service
// confirms it and return to their exact prior state if it refuses.
type Store struct {
	client  *Client
	manager *session.Manager
	config  StoreConfig
	logger  *zap.SugaredLogger

	mu    sync.Mutex
	cache *session.Cache
	ctrl  *session.Controller
}

// StoreConfig configures a Store.
type StoreConfig struct {
	Cache      session.Config
	Controller session.ControllerConfig
	Logger     *zap.SugaredLogger
}

// NewStore creates a store with no resolved identity.
func NewStore(client *Client, config StoreConfig) *Store {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if config.Cache.Logger == nil {
		config.Cache.Logger = logger
	}
	if config.Controller.Logger == nil {
		config.Controller.Logger = logger
	}
	return &Store{
		client:  client,
		manager: session.NewManager(config.Cache),
		config:  config,
		logger:  logger,
	}
}

// Resolve asks the service who the token belongs to and activates that
// identity. An unauthorized answer resolves to the anonymous identity.
func (s *Store) Resolve(ctx context.Context) (*User, error) {
	user, err := s.client.CurrentUser(ctx)
	switch {
	case errors.Is(err, ErrUnauthorized):
		s.activate(session.Anonymous)
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "resolving identity")
	}
	s.activate(user.ID)
	return user, nil
}

// SwitchToken changes the credential and re-resolves the identity.
// The previous identity's cached data is discarded.
func (s *Store) SwitchToken(ctx context.Context, token string) (*User, error) {
	s.client.SetToken(token)
	return s.Resolve(ctx)
}

// SignOut drops the credential and switches to the anonymous identity.
func (s *Store) SignOut() {
	s.client.SetToken("")
	s.activate(session.Anonymous)
}

func (s *Store) activate(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cache := s.manager.Resolve(identity)
	if cache == s.cache {
		return
	}
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	s.cache = cache
	s.ctrl = session.NewController(cache, s.config.Controller)
}

// Cache returns the active cache, or session.ErrUnresolved.
func (s *Store) Cache() (*session.Cache, error) {
	return s.manager.Current()
}

func (s *Store) active() (*session.Cache, *session.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return nil, nil, session.ErrUnresolved
	}
	return s.cache, s.ctrl, nil
}

// Prompts returns the prompt list, from cache when it is loaded.
func (s *Store) Prompts(ctx context.Context, includeArchived bool) ([]Prompt, error) {
	return load(ctx, s, PromptsResource(includeArchived), func(ctx context.Context) ([]Prompt, error) {
		return s.client.ListPrompts(ctx, includeArchived)
	})
}

// Templates returns the template list, from cache when it is loaded.
func (s *Store) Templates(ctx context.Context, includeArchived bool) ([]Template, error) {
	return load(ctx, s, TemplatesResource(includeArchived), func(ctx context.Context) ([]Template, error) {
		return s.client.ListTemplates(ctx, includeArchived)
	})
}

// Metrics returns recorded executions for a prompt, from cache when loaded.
func (s *Store) Metrics(ctx context.Context, promptID string) ([]Metric, error) {
	return load(ctx, s, MetricsResource(promptID), func(ctx context.Context) ([]Metric, error) {
		return s.client.ListMetrics(ctx, promptID)
	})
}

func load[T any](ctx context.Context, s *Store, resource string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	cache, _, err := s.active()
	if err != nil {
		return nil, err
	}
	entry, err := cache.Load(ctx, cache.Key(resource), func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	items, _ := entry.Value.([]T)
	return items, nil
}

// CreatePrompt saves a new prompt. The list shows a placeholder entry until
// the post-commit refresh brings the stored one.
func (s *Store) CreatePrompt(ctx context.Context, in PromptInput) (*Prompt, error) {
	placeholder := Prompt{ID: pendingID(), Title: in.Title, Content: in.Content, Description: in.Description, Tags: in.Tags}
	var created *Prompt
	err := mutate(ctx, s, PromptsResource(false), session.Prepend(placeholder), func(ctx context.Context) error {
		var err error
		created, err = s.client.CreatePrompt(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ArchivePrompt sets a prompt's archived flag. The visible list drops it at once.
func (s *Store) ArchivePrompt(ctx context.Context, id string, archived bool) error {
	patch := PromptPatch{IsArchived: &archived}
	predict := session.UpdateByID[Prompt](id, patch.Apply)
	if archived {
		predict = session.RemoveByID[Prompt](id)
	}
	return mutate(ctx, s, PromptsResource(false), predict, func(ctx context.Context) error {
		_, err := s.client.PatchPrompt(ctx, id, patch)
		return err
	})
}

// RatePrompt records a rating for a prompt.
func (s *Store) RatePrompt(ctx context.Context, id string, rating int) error {
	if rating < 1 || rating > 5 {
		return errors.Newf("rating must be between 1 and 5, got %d", rating)
	}
	patch := PromptPatch{Rating: &rating}
	return mutate(ctx, s, PromptsResource(false), session.UpdateByID[Prompt](id, patch.Apply), func(ctx context.Context) error {
		_, err := s.client.PatchPrompt(ctx, id, patch)
		return err
	})
}

// DeletePrompt removes a prompt.
func (s *Store) DeletePrompt(ctx context.Context, id string) error {
	return mutate(ctx, s, PromptsResource(false), session.RemoveByID[Prompt](id), func(ctx context.Context) error {
		return s.client.DeletePrompt(ctx, id)
	})
}

// ArchiveTemplate sets a template's archived flag.
func (s *Store) ArchiveTemplate(ctx context.Context, id string, archived bool) error {
	patch := TemplatePatch{IsArchived: &archived}
	predict := session.UpdateByID[Template](id, patch.Apply)
	if archived {
		predict = session.RemoveByID[Template](id)
	}
	return mutate(ctx, s, TemplatesResource(false), predict, func(ctx context.Context) error {
		_, err := s.client.PatchTemplate(ctx, id, patch)
		return err
	})
}

// CreateTemplate saves a new template.
func (s *Store) CreateTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	placeholder := Template{ID: pendingID(), Name: in.Name, Content: in.Content, Description: in.Description}
	var created *Template
	err := mutate(ctx, s, TemplatesResource(false), session.Prepend(placeholder), func(ctx context.Context) error {
		var err error
		created, err = s.client.CreateTemplate(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteTemplate removes a template.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return mutate(ctx, s, TemplatesResource(false), session.RemoveByID[Template](id), func(ctx context.Context) error {
		return s.client.DeleteTemplate(ctx, id)
	})
}

func mutate[T any](ctx context.Context, s *Store, resource string, predict func([]T) []T, remote func(context.Context) error) error {
	cache, ctrl, err := s.active()
	if err != nil {
		return err
	}
	key := cache.Key(resource)

	tx, err := session.Mutate(ctx, ctrl, key, predict, remote)
	if err != nil {
		if errors.Is(err, session.ErrNotLoaded) {
			// Nothing cached to predict against: run the change directly.
			return remote(ctx)
		}
		return err
	}
	s.logger.Debugw("mutation committed", "tx", tx.ID, "resource", resource)
	return nil
}

// Wait blocks until post-mutation refreshes have run.
func (s *Store) Wait() {
	_, ctrl, err := s.active()
	if err == nil {
		ctrl.Wait()
	}
}

// Close abandons pending refreshes and tears down the active epoch.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	s.manager.Close()
}

// pendingID marks entries the service has not assigned an id to yet.
func pendingID() string {
	return "pending-" + uuid.NewString()
}
