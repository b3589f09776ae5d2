package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// SessionToken holds the verified token data used by downstream middleware.
// Claims carry the caller's role (owner/walker/admin) and account status.
type SessionToken struct {
	UID    string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw Firebase ID token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*SessionToken, error)
}

// FirebaseClients bundles the Admin SDK services the engine uses: token
// verification for the authorization gate and FCM for push side effects.
type FirebaseClients struct {
	Auth      *auth.Client
	Messaging *messaging.Client
}

// NewFirebaseClients initialises the Firebase Admin SDK. If credentialsFile is
// non-empty it is used as the service-account JSON path; otherwise
// application-default credentials / GOOGLE_APPLICATION_CREDENTIALS are used.
func NewFirebaseClients(ctx context.Context, projectID, credentialsFile string) (*FirebaseClients, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Messaging: %w", err)
	}
	return &FirebaseClients{Auth: authClient, Messaging: msgClient}, nil
}

// Verifier adapts the auth client to the TokenVerifier interface.
func (c *FirebaseClients) Verifier() TokenVerifier {
	return &firebaseVerifier{client: c.Auth}
}

type firebaseVerifier struct {
	client *auth.Client
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*SessionToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return &SessionToken{UID: token.UID, Claims: token.Claims}, nil
}
