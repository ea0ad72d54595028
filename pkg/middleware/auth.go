package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/httputil"
	"github.com/packbazaar/bazaar/pkg/observability"
)

type actorContextKey struct{}

// TokenResolver exchanges a bearer token for an actor
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (authz.Actor, error)
}

// StaticTokenResolver resolves tokens from an in-memory table. It backs
// development setups and tests; production deployments plug in their own
// resolver.
type StaticTokenResolver struct {
	mu     sync.RWMutex
	actors map[string]authz.Actor
}

// NewStaticTokenResolver creates a resolver over a fixed token table
func NewStaticTokenResolver(actors map[string]authz.Actor) *StaticTokenResolver {
	if actors == nil {
		actors = make(map[string]authz.Actor)
	}
	return &StaticTokenResolver{actors: actors}
}

// Add registers a token for an actor
func (r *StaticTokenResolver) Add(token string, actor authz.Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[token] = actor
}

// Resolve looks up the actor for a token
func (r *StaticTokenResolver) Resolve(_ context.Context, token string) (authz.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	actor, ok := r.actors[token]
	if !ok {
		return authz.Actor{}, ErrInvalidToken
	}
	return actor, nil
}

// ErrInvalidToken is returned when a presented token resolves to nothing
var ErrInvalidToken = errInvalidToken{}

type errInvalidToken struct{}

func (errInvalidToken) Error() string { return "invalid or expired token" }

// Auth resolves the Authorization header into an actor and stores it on
// the request context. Missing credentials yield the anonymous actor; a
// token that fails to resolve is rejected with 401.
func Auth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), authz.AnonymousActor)))
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header || token == "" {
				httputil.WriteUnauthorized(w, "Authorization header must use the Bearer scheme")
				return
			}

			actor, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				httputil.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := WithActor(r.Context(), actor)
			ctx = observability.WithActorID(ctx, actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor stores the actor on the context
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor retrieves the actor from the request context, defaulting to
// the anonymous actor when the auth middleware did not run
func GetActor(r *http.Request) authz.Actor {
	return ActorFromContext(r.Context())
}

// ActorFromContext retrieves the actor from a context
func ActorFromContext(ctx context.Context) authz.Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(authz.Actor); ok {
		return actor
	}
	return authz.AnonymousActor
}
