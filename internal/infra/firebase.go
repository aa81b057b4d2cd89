// README: Firebase ID-token verification for garage staff and drivers.
package infra

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Identity is the caller resolved from a verified token.
type Identity struct {
	UID  string
	Role string
}

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
}

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier uses credentialsFile when set, application-default credentials otherwise.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	role, _ := token.Claims["role"].(string)
	return &Identity{UID: token.UID, Role: role}, nil
}

// LocalVerifier trusts the bearer value as "uid" or "uid:role". Only for GARAGE_AUTH_DISABLED runs.
type LocalVerifier struct{}

func (LocalVerifier) VerifyIDToken(_ context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, fmt.Errorf("empty token")
	}
	uid, role, _ := strings.Cut(idToken, ":")
	return &Identity{UID: uid, Role: role}, nil
}
