package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leafremote/leafremote/pkg/carwings"
	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/types"
)

type startResponse struct {
	ResultKey string `json:"resultKey"`
}

type resultResponse struct {
	Ready  bool           `json:"ready"`
	Result *types.Result  `json:"result,omitempty"`
	Raw    map[string]any `json:"raw,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// connect logs in unless another caller already replaced stale. stale is the
// remote that failed, or nil to force a login when none exists.
func (s *Server) connect(ctx context.Context, stale *carwings.Remote) (*carwings.Remote, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if cur := s.session.Remote(); cur != nil && cur != stale {
		return cur, nil
	}
	if _, err := s.session.Connect(ctx); err != nil {
		return nil, err
	}
	return s.session.Remote(), nil
}

// withRemote runs fn against the logged in vehicle. When fn fails with a
// server error the session logs in again and fn is retried once.
func (s *Server) withRemote(ctx context.Context, fn func(*carwings.Remote) error) error {
	remote, err := s.connect(ctx, nil)
	if err != nil {
		return err
	}
	err = fn(remote)
	if err == nil || !errors.Is(err, carwings.ErrServerError) {
		return err
	}

	log.Ctx(ctx).WarnContext(ctx, "carwings server error, logging in again", slog.Any("error", err))
	remote, err = s.connect(ctx, remote)
	if err != nil {
		return err
	}
	return fn(remote)
}

func (s *Server) handleStart(op types.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("operation", string(op))))

		var key, vin string
		err := s.withRemote(ctx, func(remote *carwings.Remote) error {
			vin = remote.VIN()
			var err error
			key, err = remote.Start(ctx, op)
			return err
		})

		action := types.Action{
			Timestamp: s.now().UTC(),
			VIN:       vin,
			Operation: op,
			ResultKey: key,
		}
		if err != nil {
			action.Error = err.Error()
		}
		if vin != "" {
			if serr := s.storage.InsertAction(ctx, vin, action); serr != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to insert action", slog.Any("error", serr))
			}
		}

		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to start operation", slog.Any("error", err))
			writeJSONError(w, err.Error(), errorStatus(err))
			return
		}
		log.Ctx(ctx).InfoContext(ctx, "started operation", slog.String("resultKey", key))
		writeJSON(w, http.StatusAccepted, startResponse{ResultKey: key})
	}
}

func (s *Server) handleResult(op types.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("operation", string(op))))

		key := r.URL.Query().Get("resultKey")
		if key == "" {
			writeJSONError(w, "resultKey required", http.StatusBadRequest)
			return
		}

		var res carwings.PollResult
		var vin string
		err := s.withRemote(ctx, func(remote *carwings.Remote) error {
			vin = remote.VIN()
			var err error
			res, err = remote.Poll(ctx, op, key)
			return err
		})
		if err != nil {
			if res.Ready && carwings.KindOf(err) == carwings.KindNotImplemented {
				writeJSON(w, http.StatusNotImplemented, resultResponse{Ready: true, Raw: res.Raw, Error: err.Error()})
				return
			}
			log.Ctx(ctx).ErrorContext(ctx, "failed to poll operation", slog.Any("error", err))
			writeJSONError(w, err.Error(), errorStatus(err))
			return
		}
		if !res.Ready {
			writeJSON(w, http.StatusAccepted, resultResponse{Ready: false})
			return
		}

		if serr := s.storage.SetLatestResult(ctx, vin, op, *res.Result); serr != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to store latest result", slog.Any("error", serr))
		}
		writeJSON(w, http.StatusOK, resultResponse{Ready: true, Result: res.Result})
	}
}

func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var rec *types.BatteryRecord
	err := s.withRemote(ctx, func(remote *carwings.Remote) error {
		var err error
		rec, err = remote.LatestBatteryStatus(ctx)
		return err
	})
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get battery status", slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// errorStatus maps a carwings failure onto the HTTP status reported to
// clients.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, carwings.ErrVehicleUnreachable):
		return http.StatusGatewayTimeout
	case errors.Is(err, carwings.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, carwings.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, carwings.ErrTransport),
		errors.Is(err, carwings.ErrServerError),
		errors.Is(err, carwings.ErrInvalidBody),
		errors.Is(err, carwings.ErrStartFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
