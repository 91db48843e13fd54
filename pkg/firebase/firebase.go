package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/anonto42/chirp/backend/pkg/logger"
)

// App holds the initialized Firebase app and the clients created from it
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	Firestore   *firestore.Client
}

// InitFirebase initializes the Firebase application and authentication client.
// An empty credentials path falls back to application default credentials.
func InitFirebase(ctx context.Context, credentialsPath, projectID, bucket string) (*App, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		// Check if the credentials file exists
		if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	conf := &firebase.Config{ProjectID: projectID, StorageBucket: bucket}
	firebaseApp, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	logger.L().Info("Firebase app and auth client initialized")
	return &App{FirebaseApp: firebaseApp, AuthClient: authClient}, nil
}

// OpenFirestore creates the Firestore client on first use
func (a *App) OpenFirestore(ctx context.Context) (*firestore.Client, error) {
	if a.Firestore != nil {
		return a.Firestore, nil
	}
	client, err := a.FirebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	a.Firestore = client
	return client, nil
}
