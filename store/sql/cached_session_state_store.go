package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-brokerage/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const sessionStateCacheKeyPrefix = "go-brokerage::session_state::v1"

// CachedSessionStateStore serves Load from a read-through cache and
// invalidates the entry on every write.
type CachedSessionStateStore struct {
	base     core.StateStore
	cache    repositorycache.CacheService
	clientID string
}

type cachedSessionState struct {
	State core.SessionState
	Found bool
}

func NewCachedSessionStateStore(
	base core.StateStore,
	cacheService repositorycache.CacheService,
	clientID string,
) (*CachedSessionStateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base session state store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: session state cache service is required")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("sqlstore: client id is required")
	}
	return &CachedSessionStateStore{base: base, cache: cacheService, clientID: strings.TrimSpace(clientID)}, nil
}

// SessionStateCacheKey returns go-brokerage::session_state::v1::<client_id>
// with the client id URL-path escaped.
func SessionStateCacheKey(clientID string) string {
	return sessionStateCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(clientID))
}

func (s *CachedSessionStateStore) Load(ctx context.Context) (core.SessionState, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.SessionState{}, false, fmt.Errorf("sqlstore: cached session state store is not configured")
	}
	cached, err := repositorycache.GetOrFetch(ctx, s.cache, SessionStateCacheKey(s.clientID),
		func(ctx context.Context) (cachedSessionState, error) {
			state, found, fetchErr := s.base.Load(ctx)
			if fetchErr != nil {
				return cachedSessionState{}, fetchErr
			}
			return cachedSessionState{State: state, Found: found}, nil
		})
	if err != nil {
		return core.SessionState{}, false, err
	}
	return cached.State, cached.Found, nil
}

func (s *CachedSessionStateStore) Save(ctx context.Context, state core.SessionState) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached session state store is not configured")
	}
	if err := s.base.Save(ctx, state); err != nil {
		return err
	}
	return s.cache.Delete(ctx, SessionStateCacheKey(s.clientID))
}

func (s *CachedSessionStateStore) Delete(ctx context.Context) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached session state store is not configured")
	}
	if err := s.base.Delete(ctx); err != nil {
		return err
	}
	return s.cache.Delete(ctx, SessionStateCacheKey(s.clientID))
}
