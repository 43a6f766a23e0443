package identity

import (
	"context"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/principal"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// tokenVerifier is the part of the Firebase auth client we depend on.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

type FirebaseVerifier struct {
	client tokenVerifier
	log    *zap.Logger
}

func NewFirebaseVerifier(ctx context.Context, cfg config.IdentityConfig, log *zap.Logger) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client, log: log.Named("identity.firebase")}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (principal.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return principal.Principal{}, ErrUnauthenticated
	}
	verified, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		v.log.Debug("id token rejected", zap.Error(err))
		return principal.Principal{}, ErrUnauthenticated
	}
	return PrincipalFromClaims(verified.UID, verified.Claims)
}
