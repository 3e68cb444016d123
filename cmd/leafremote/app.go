package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leafremote/leafremote/pkg/carwings"
	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/storage"
	"github.com/leafremote/leafremote/pkg/types"
)

const (
	defaultPollInterval = 20 * time.Second
	defaultPollAttempts = 10
)

// app runs one-shot commands against a session.
type app struct {
	session *carwings.Session
	storage storage.Database
	out     io.Writer

	pollInterval time.Duration
	pollAttempts int
}

type statusOutput struct {
	Update  map[string]any       `json:"update,omitempty"`
	Battery *types.BatteryRecord `json:"battery,omitempty"`
}

func (a *app) run(ctx context.Context, command string) error {
	login, err := a.session.Connect(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	remote := a.session.Remote()

	switch command {
	case "connect":
		return a.print(login)
	case "battery":
		rec, err := remote.LatestBatteryStatus(ctx)
		if err != nil {
			return err
		}
		return a.print(rec)
	case "status":
		return a.status(ctx, remote)
	case "climate-start":
		res, err := a.operation(ctx, remote, types.OperationClimateStart)
		if err != nil {
			return err
		}
		return a.print(res)
	case "climate-stop":
		res, err := a.operation(ctx, remote, types.OperationClimateStop)
		if err != nil {
			return err
		}
		return a.print(res)
	default:
		return fmt.Errorf("unknown command: %q", command)
	}
}

// status requests a fresh update while fetching the last stored record.
func (a *app) status(ctx context.Context, remote *carwings.Remote) error {
	var out statusOutput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := remote.LatestBatteryStatus(gctx)
		if err != nil {
			return fmt.Errorf("battery status: %w", err)
		}
		out.Battery = rec
		return nil
	})
	g.Go(func() error {
		key, err := remote.RequestUpdate(gctx)
		if err != nil {
			return err
		}
		a.recordAction(gctx, remote.VIN(), types.OperationStatusUpdate, key)
		res, err := remote.Wait(gctx, types.OperationStatusUpdate, key, a.pollInterval, a.pollAttempts)
		if err != nil && !(res.Ready && carwings.KindOf(err) == carwings.KindNotImplemented) {
			return fmt.Errorf("status update: %w", err)
		}
		out.Update = res.Raw
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return a.print(out)
}

// operation starts op, waits for it and stores the normalized result.
func (a *app) operation(ctx context.Context, remote *carwings.Remote, op types.Operation) (*types.Result, error) {
	key, err := remote.Start(ctx, op)
	if err != nil {
		return nil, err
	}
	a.recordAction(ctx, remote.VIN(), op, key)

	log.Ctx(ctx).InfoContext(ctx, "waiting for result",
		slog.String("operation", string(op)),
		slog.Duration("interval", a.pollInterval),
		slog.Int("attempts", a.pollAttempts),
	)
	res, err := remote.Wait(ctx, op, key, a.pollInterval, a.pollAttempts)
	if err != nil {
		if errors.Is(err, carwings.ErrPollExhausted) {
			return nil, fmt.Errorf("%s still pending (resultKey %s): %w", op, key, err)
		}
		return nil, err
	}
	if err := a.storage.SetLatestResult(ctx, remote.VIN(), op, *res.Result); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to store latest result", slog.Any("error", err))
	}
	return res.Result, nil
}

func (a *app) recordAction(ctx context.Context, vin string, op types.Operation, key string) {
	err := a.storage.InsertAction(ctx, vin, types.Action{
		Timestamp: time.Now().UTC(),
		VIN:       vin,
		Operation: op,
		ResultKey: key,
	})
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to record action", slog.Any("error", err))
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
