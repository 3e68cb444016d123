package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/storage"
	"github.com/leafremote/leafremote/pkg/types"
)

var errNoStorage = errors.New("storage-provider none discards everything; seed needs a real provider")

// seed fills a storage backend (normally the Firestore emulator) with a day of
// climate actions and latest results for local server development.
func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.ConfiguredProvider("firestore")
	vin := lflag.String("vin", "1N4AZ0CP5DC400000", "VIN to seed data for")
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC().Truncate(time.Second)
	if err := run(ctx, s, *vin, now, rng); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
}

func run(ctx context.Context, s storage.Database, vin string, now time.Time, rng *rand.Rand) error {
	if storage.IsNone(s) {
		return errNoStorage
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding mock data", slog.String("vin", vin))

	// a morning and an evening pre-conditioning cycle
	for _, hour := range []int{7, 17} {
		start := time.Date(now.Year(), now.Month(), now.Day(), hour, rng.Intn(30), 0, 0, time.UTC)
		if start.After(now) {
			continue
		}
		stop := start.Add(time.Duration(15+rng.Intn(15)) * time.Minute)
		for _, a := range []types.Action{
			{Timestamp: start, VIN: vin, Operation: types.OperationClimateStart, ResultKey: randomKey(rng)},
			{Timestamp: stop, VIN: vin, Operation: types.OperationClimateStop, ResultKey: randomKey(rng)},
		} {
			if err := s.InsertAction(ctx, vin, a); err != nil {
				return fmt.Errorf("failed to insert action: %w", err)
			}
		}
	}

	rangeKM := 90 + rng.Float64()*40
	on := true
	off := false
	until := now.Add(30 * time.Minute)
	latest := []types.Result{
		{Operation: types.OperationClimateStart, Timestamp: now, CruisingRangeKM: &rangeKM, HVACRunning: &on, ACContinueUntil: &until},
		{Operation: types.OperationClimateStop, Timestamp: now, CruisingRangeKM: &rangeKM, HVACRunning: &off},
	}
	for _, r := range latest {
		if err := s.SetLatestResult(ctx, vin, r.Operation, r); err != nil {
			return fmt.Errorf("failed to set latest result: %w", err)
		}
	}
	return nil
}

// randomKey returns a numeric resultKey like the ones the remote endpoints
// hand back.
func randomKey(rng *rand.Rand) string {
	const digits = "0123456789"
	b := make([]byte, 20)
	for i := range b {
		b[i] = digits[rng.Intn(len(digits))]
	}
	return string(b)
}
