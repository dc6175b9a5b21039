// Package push delivers notifications to registered devices through Firebase
// Cloud Messaging.
package push

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// TokenStore resolves and prunes device tokens.
type TokenStore interface {
	TokensForUser(ctx context.Context, userID int64) ([]string, error)
	Remove(ctx context.Context, tokens []string) error
}

type FCM struct {
	Client *messaging.Client
	Tokens TokenStore
}

// New initialises a Firebase app for projectID. cred may be a file path,
// inline JSON or base64-encoded JSON.
func New(ctx context.Context, projectID, cred string, tokens TokenStore) (*FCM, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, ClientOptions(cred)...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &FCM{Client: client, Tokens: tokens}, nil
}

// Send pushes a notification to every device of userID. Tokens that FCM
// reports as unregistered are removed.
func (f *FCM) Send(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	tokens, err := f.Tokens.TokensForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	resp, err := f.Client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("send multicast: %w", err)
	}

	var stale []string
	for i, r := range resp.Responses {
		if r.Error != nil && messaging.IsUnregistered(r.Error) {
			stale = append(stale, tokens[i])
		}
	}
	return f.Tokens.Remove(ctx, stale)
}

func ClientOptions(cred string) []option.ClientOption {
	if cred == "" {
		return nil
	}
	// Allow inline JSON or base64-encoded JSON in env to avoid writing a file.
	if strings.HasPrefix(strings.TrimSpace(cred), "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cred))}
	}
	if decoded, err := base64.StdEncoding.DecodeString(cred); err == nil && strings.HasPrefix(strings.TrimSpace(string(decoded)), "{") {
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}
	}
	return []option.ClientOption{option.WithCredentialsFile(cred)}
}
