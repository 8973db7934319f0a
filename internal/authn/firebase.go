// Package authn issues Firebase sessions for users who completed the
// one-time-code login.
package authn

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type Issuer interface {
	Issue(ctx context.Context, userID string, claims map[string]interface{}) (string, error)
}

type Firebase struct {
	client *auth.Client
}

func NewFirebase(ctx context.Context, projectID, credentialsFile string) (*Firebase, error) {
	if projectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is not set")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &Firebase{client: client}, nil
}

// Issue mints a custom token the browser exchanges for a Firebase session.
func (f *Firebase) Issue(ctx context.Context, userID string, claims map[string]interface{}) (string, error) {
	if len(claims) == 0 {
		return f.client.CustomToken(ctx, userID)
	}
	return f.client.CustomTokenWithClaims(ctx, userID, claims)
}

// RoleClaims are the custom claims attached to a marketplace session.
func RoleClaims(isBuyer, isSeller bool, cityID string) map[string]interface{} {
	c := map[string]interface{}{
		"buyer":  isBuyer,
		"seller": isSeller,
	}
	if cityID != "" {
		c["city_id"] = cityID
	}
	return c
}
