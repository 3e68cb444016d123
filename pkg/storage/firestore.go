package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/types"
)

// FirestoreProvider implements Database using Google Cloud Firestore.
// Everything lives under vehicles/<vin>.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

var _ Database = (*FirestoreProvider)(nil)

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	if f.projectID == "" && os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		return errors.New("firestore-project-id is required with the emulator")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(vin, name string) (*firestore.CollectionRef, error) {
	if vin == "" {
		return nil, fmt.Errorf("vin cannot be empty")
	}
	return f.client.Collection("vehicles").Doc(vin).Collection(name), nil
}

// actionDocID orders lexicographically by time. The operation suffix keeps
// two actions issued within the same second apart.
func actionDocID(a types.Action) string {
	return a.Timestamp.UTC().Format(time.RFC3339) + "_" + string(a.Operation)
}

// InsertAction adds a new action record to the "action_history" collection as
// a JSON blob.
func (f *FirestoreProvider) InsertAction(ctx context.Context, vin string, action types.Action) error {
	jsonBytes, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}

	coll, err := f.getCollection(vin, "action_history")
	if err != nil {
		return err
	}
	_, err = coll.Doc(actionDocID(action)).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": action.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

// GetActionHistory retrieves action records in [start, end).
// Uses document ID range queries for efficient filtering without reading all documents.
func (f *FirestoreProvider) GetActionHistory(ctx context.Context, vin string, start, end time.Time) ([]types.Action, error) {
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	coll, err := f.getCollection(vin, "action_history")
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var actions []types.Action
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating actions: %w", err)
		}

		var a types.Action
		if err := decodeJSONField(ctx, doc, &a); err != nil {
			return nil, fmt.Errorf("failed to decode action (id=%s): %w", doc.Ref.ID, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// SetLatestResult overwrites the "latest/<operation>" document.
func (f *FirestoreProvider) SetLatestResult(ctx context.Context, vin string, op types.Operation, result types.Result) error {
	if !op.Valid() {
		return fmt.Errorf("unknown operation: %q", op)
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	coll, err := f.getCollection(vin, "latest")
	if err != nil {
		return err
	}
	_, err = coll.Doc(string(op)).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": result.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to save latest result: %w", err)
	}
	return nil
}

// GetLatestResult reads the "latest/<operation>" document. It returns
// ErrResultNotFound when nothing was stored yet.
func (f *FirestoreProvider) GetLatestResult(ctx context.Context, vin string, op types.Operation) (types.Result, error) {
	if !op.Valid() {
		return types.Result{}, fmt.Errorf("unknown operation: %q", op)
	}
	coll, err := f.getCollection(vin, "latest")
	if err != nil {
		return types.Result{}, err
	}
	doc, err := coll.Doc(string(op)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Result{}, ErrResultNotFound
		}
		return types.Result{}, fmt.Errorf("failed to fetch latest result: %w", err)
	}

	var r types.Result
	if err := decodeJSONField(ctx, doc, &r); err != nil {
		return types.Result{}, fmt.Errorf("failed to decode latest result: %w", err)
	}
	return r, nil
}

func decodeJSONField(ctx context.Context, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return fmt.Errorf("missing 'json' field: %w", err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("'json' field is not a string")
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc json", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return err
	}
	return nil
}
