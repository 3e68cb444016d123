package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/leafremote/leafremote/pkg/types"
)

var (
	ErrResultNotFound = errors.New("result not found")
)

// Database persists issued actions and the latest normalized result per
// vehicle and operation.
type Database interface {
	// Actions
	InsertAction(ctx context.Context, vin string, action types.Action) error
	GetActionHistory(ctx context.Context, vin string, start, end time.Time) ([]types.Action, error)

	// Results
	SetLatestResult(ctx context.Context, vin string, op types.Operation, result types.Result) error
	GetLatestResult(ctx context.Context, vin string, op types.Operation) (types.Result, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	return ConfiguredProvider("none")
}

// ConfiguredProvider is Configured with a different default for the
// storage-provider flag.
func ConfiguredProvider(defaultProvider string) Database {
	provider := lflag.String("storage-provider", defaultProvider, "Storage provider to use (available: firestore, none)")

	var p configured

	fs := configuredFirestore()

	lflag.Do(func() {
		db, err := newProvider(*provider, fs)
		if err != nil {
			panic(err.Error())
		}
		p.Database = db
	})

	return &p
}

// configured lets Configured hand out a Database before flags are parsed.
type configured struct{ Database }

func newProvider(name string, fs *FirestoreProvider) (Database, error) {
	switch name {
	case "firestore":
		if err := fs.Validate(); err != nil {
			return nil, fmt.Errorf("firestore validation failed: %w", err)
		}
		if err := fs.Init(context.Background()); err != nil {
			return nil, fmt.Errorf("firestore init failed: %w", err)
		}
		return fs, nil
	case "none", "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", name)
	}
}

// IsNone reports whether db discards everything written to it.
func IsNone(db Database) bool {
	if c, ok := db.(*configured); ok {
		db = c.Database
	}
	switch db.(type) {
	case None, *None:
		return true
	default:
		return false
	}
}

// None is a Database that stores nothing.
type None struct{}

var _ Database = None{}

func (None) InsertAction(context.Context, string, types.Action) error { return nil }

func (None) GetActionHistory(context.Context, string, time.Time, time.Time) ([]types.Action, error) {
	return nil, nil
}

func (None) SetLatestResult(context.Context, string, types.Operation, types.Result) error {
	return nil
}

func (None) GetLatestResult(context.Context, string, types.Operation) (types.Result, error) {
	return types.Result{}, ErrResultNotFound
}

func (None) Close() error { return nil }
