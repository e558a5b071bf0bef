// Package auth holds the session use cases. Tokens are issued upstream;
// this service only revokes them.
package auth

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/jwt"
)

// TokenRevoker stores revoked tokens until they would have expired.
type TokenRevoker interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
}

// LogoutUseCase blacklists the presented access token.
type LogoutUseCase struct {
	revoker TokenRevoker
	now     func() time.Time
}

// NewLogoutUseCase accepts a nil revoker; logout then succeeds without
// revoking anything.
func NewLogoutUseCase(revoker TokenRevoker) *LogoutUseCase {
	return &LogoutUseCase{
		revoker: revoker,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, token string, claims *jwt.Claims) error {
	if token == "" || claims == nil {
		return apperrors.ErrUnauthorized
	}
	if uc.revoker == nil {
		slog.WarnContext(ctx, "logout without token blacklist", "user_id", claims.UserID)
		return nil
	}
	if err := uc.revoker.Add(ctx, token, claims.RemainingTTL(uc.now())); err != nil {
		return err
	}
	slog.InfoContext(ctx, "token revoked", "user_id", claims.UserID)
	return nil
}
