package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/leafremote/leafremote/pkg/carwings"
	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/storage"
	"github.com/leafremote/leafremote/pkg/types"
)

// vin returns the logged in vehicle, logging in first if needed.
func (s *Server) vin(r *http.Request) (string, error) {
	var vin string
	err := s.withRemote(r.Context(), func(remote *carwings.Remote) error {
		vin = remote.VIN()
		return nil
	})
	return vin, err
}

func (s *Server) handleHistoryActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := parseTimeRange(r, s.now())
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}
	vin, err := s.vin(r)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to log in", slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	actions, err := s.storage.GetActionHistory(ctx, vin, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get actions", slog.String("vin", vin), slog.Any("error", err))
		writeJSONError(w, "failed to get actions", http.StatusInternalServerError)
		return
	}
	if actions == nil {
		actions = []types.Action{}
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := types.Operation(r.URL.Query().Get("operation"))
	if !op.Valid() {
		writeJSONError(w, fmt.Sprintf("unknown operation: %q", op), http.StatusBadRequest)
		return
	}
	vin, err := s.vin(r)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to log in", slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	res, err := s.storage.GetLatestResult(ctx, vin, op)
	if errors.Is(err, storage.ErrResultNotFound) {
		writeJSONError(w, "no result stored", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest result", slog.String("vin", vin), slog.Any("error", err))
		writeJSONError(w, "failed to get latest result", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseTimeRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to last 7 days if not specified
		end := now
		start := end.Add(-7 * 24 * time.Hour)
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > 31*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 31 days")
	}

	return start, end, nil
}
