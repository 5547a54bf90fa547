package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware rejects requests without a valid bearer token and stores the
// token subject as the caller's user id.
func Middleware(verifier Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, models.ErrUnauthenticated)
				return
			}

			identity, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, models.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// WithUserID returns ctx carrying an authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithIdentity(ctx, &Identity{Subject: userID})
}

func IdentityFrom(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// UserID returns the authenticated user id, or "" when there is none.
func UserID(ctx context.Context) string {
	if identity := IdentityFrom(ctx); identity != nil {
		return identity.Subject
	}
	return ""
}

type ProfileSyncer interface {
	EnsureProfile(ctx context.Context, userID, email string) error
}

// SyncProfile makes sure every authenticated caller has a profiles row
// before any handler references it. The syncer must be idempotent; it runs on
// every request so a deleted profile is recreated on the next call.
func SyncProfile(syncer ProfileSyncer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFrom(r.Context())
			if identity == nil || identity.Subject == "" {
				next.ServeHTTP(w, r)
				return
			}
			if err := syncer.EnsureProfile(r.Context(), identity.Subject, identity.Email); err != nil {
				log.Error("AUTH", fmt.Sprintf("Profile sync for %s failed: %v", identity.Subject, err))
				utils.WriteError(w, models.ErrStoreFailure)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin must run after Middleware.
func RequireAdmin(checker AdminChecker, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == "" {
				utils.WriteError(w, models.ErrUnauthenticated)
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), userID)
			if err != nil {
				log.Error("AUTH", fmt.Sprintf("Admin lookup for %s failed: %v", userID, err))
				utils.WriteError(w, models.ErrStoreFailure)
				return
			}
			if !isAdmin {
				log.LogSecurity("ADMIN_DENIED", fmt.Sprintf("user %s on %s %s", userID, r.Method, r.URL.Path))
				utils.WriteError(w, models.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
