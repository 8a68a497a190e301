package firebase

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// credentialOptions turns GOOGLE_APPLICATION_CREDENTIALS into client options.
// The value may hold the service account JSON itself or a path to it; empty
// means application default credentials.
func credentialOptions(credentials string) []option.ClientOption {
	credentials = strings.TrimSpace(credentials)
	switch {
	case credentials == "":
		logrus.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
		return nil
	case strings.HasPrefix(credentials, "{"):
		logrus.Info("Using Firebase credentials from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credentials))}
	default:
		logrus.WithField("path", credentials).Info("Using Firebase credentials from file")
		return []option.ClientOption{option.WithCredentialsFile(credentials)}
	}
}

// NewApp initializes the Firebase app for projectID.
func NewApp(ctx context.Context, projectID, credentials string) (*firebase.App, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, credentialOptions(credentials)...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}
	return app, nil
}

// NewFirestore returns a Firestore client for the configured project.
func NewFirestore(ctx context.Context, projectID, credentials string) (*firestore.Client, error) {
	app, err := NewApp(ctx, projectID, credentials)
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	logrus.WithField("project_id", projectID).Info("Firestore initialized successfully")
	return client, nil
}
