package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Session owns one set of credentials and its token state. All exported
// methods are safe for concurrent use: freshness checks, refreshes and token
// commits are serialised under authMu, state reads and writes under mu.
type Session struct {
	config          Config
	credentials     Credentials
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	clock           Clock
	transport       TransportAdapter
	store           StateStore
	prompter        RedirectPrompter

	authMu    sync.Mutex
	mu        sync.Mutex
	state     SessionState
	authState AuthState
}

type SessionDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Clock           Clock
	Transport       TransportAdapter
	StateStore      StateStore
	Prompter        RedirectPrompter
}

// NewSession resolves configuration, validates credentials and loads any
// persisted state. When state caching is disabled the stored state is deleted
// instead of loaded.
func NewSession(credentials Credentials, cfg Config, opts ...Option) (*Session, error) {
	builder := defaultSessionBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("brokerage", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("brokerage"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = SystemClock{}
	}
	if builder.stateStore == nil {
		builder.stateStore = NewMemoryStateStore()
	}

	if err := credentials.Validate(); err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	if builder.transport == nil {
		return nil, mapBuildError(builder.errorMapper, NewConfigurationError("core: transport adapter is required", nil))
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	session := &Session{
		config:          finalConfig,
		credentials:     normalizeCredentials(credentials),
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		clock:           builder.clock,
		transport:       builder.transport,
		store:           builder.stateStore,
		prompter:        builder.prompter,
		authState:       AuthStateUnauthenticated,
	}
	if err := session.initState(context.Background()); err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	return session, nil
}

func normalizeCredentials(credentials Credentials) Credentials {
	return Credentials{
		ClientID:        strings.TrimSpace(credentials.ClientID),
		RedirectURI:     strings.TrimSpace(credentials.RedirectURI),
		AccountNumber:   strings.TrimSpace(credentials.AccountNumber),
		CredentialsPath: strings.TrimSpace(credentials.CredentialsPath),
	}
}

func (s *Session) initState(ctx context.Context) error {
	if !s.config.CacheState() {
		if err := s.store.Delete(ctx); err != nil {
			return wrapStateStoreError(err, "core: state store delete failed")
		}
		return nil
	}
	loaded, found, err := s.store.Load(ctx)
	if err != nil {
		return wrapStateStoreError(err, "core: state store load failed")
	}
	if !found {
		return nil
	}
	s.mu.Lock()
	s.state = loaded
	if loaded.LoggedIn {
		s.authState = AuthStateAuthenticated
	}
	s.mu.Unlock()
	return nil
}

func wrapStateStoreError(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryOperation, message).
		WithTextCode(ErrorCodeStateStore)
}

func (s *Session) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Session) Credentials() Credentials {
	if s == nil {
		return Credentials{}
	}
	return s.credentials
}

func (s *Session) Dependencies() SessionDependencies {
	if s == nil {
		return SessionDependencies{}
	}
	return SessionDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Clock:           s.clock,
		Transport:       s.transport,
		StateStore:      s.store,
		Prompter:        s.prompter,
	}
}

// State returns a copy of the current token state.
func (s *Session) State() SessionState {
	if s == nil {
		return SessionState{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AuthState() AuthState {
	if s == nil {
		return AuthStateUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState
}

func (s *Session) LoggedIn() bool {
	return s.State().LoggedIn
}

func (s *Session) String() string {
	if s == nil {
		return "Session(<nil>)"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Session(logged_in=%t, auth_state=%s)", s.state.LoggedIn, s.authState)
}

func (s *Session) setAuthState(next AuthState) {
	s.mu.Lock()
	s.authState = next
	s.mu.Unlock()
}

// updateState applies mutate and persists the result while still holding the
// state lock so concurrent writers never interleave their saves.
func (s *Session) updateState(ctx context.Context, mutate func(*SessionState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.state)
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) error {
	if !s.config.CacheState() {
		return nil
	}
	if err := s.store.Save(ctx, s.state); err != nil {
		return wrapStateStoreError(err, "core: state store save failed")
	}
	return nil
}

// Save writes the full state to the store. It is a no-op when state caching
// is disabled.
func (s *Session) Save(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

// clear resets the state to empty defaults and persists it.
func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{}
	s.authState = AuthStateUnauthenticated
	return s.saveLocked(ctx)
}

// Logout discards all tokens.
func (s *Session) Logout(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("core: session is nil")
	}
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "logout", err, nil)
	}()
	s.authMu.Lock()
	defer s.authMu.Unlock()
	if clearErr := s.clear(ctx); clearErr != nil {
		return s.mapError(clearErr)
	}
	return nil
}

func (s *Session) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	var response *ResponseError
	if errors.As(err, &response) {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
