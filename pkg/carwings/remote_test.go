package carwings

import (
	"context"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leafremote/leafremote/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResultKey = "12345678901234567890123456789012345678901234567890"

func startOK(url.Values) any {
	return map[string]any{
		"status":    200,
		"userId":    testUsername,
		"vin":       testVIN,
		"resultKey": testResultKey,
	}
}

func notReady(url.Values) any {
	return map[string]any{"status": 200, "responseFlag": "0"}
}

func TestRemoteClimateControl(t *testing.T) {
	t.Run("Start Then Poll Until Ready", func(t *testing.T) {
		var polls atomic.Int32
		f, s := connected(t, map[string]endpointFunc{
			"ACRemoteRequest.php": startOK,
			"ACRemoteResult.php": func(form url.Values) any {
				if polls.Add(1) == 1 {
					return notReady(form)
				}
				return map[string]any{
					"status":             200,
					"responseFlag":       "1",
					"operationResult":    "START_BATTERY",
					"acContinueTime":     30,
					"cruisingRangeAcOn":  "107136.0",
					"crusingRangeAcOn":   "107136.0",
					"cruisingRangeAcOff": "115200.0",
					"timeStamp":          "2016-02-21 15:24:36",
					"hvacStatus":         "ON",
				}
			},
		})
		r := s.Remote()

		key, err := r.StartClimateControl(testCtx())
		require.NoError(t, err)
		assert.Equal(t, testResultKey, key)

		start := f.callsTo("ACRemoteRequest.php")
		require.Len(t, start, 1)
		assert.Equal(t, testVIN, start[0].Get("VIN"))
		assert.Equal(t, testDCMID, start[0].Get("DCMID"))
		assert.Equal(t, "NNA", start[0].Get("RegionCode"))
		assert.Equal(t, "America/New_York", start[0].Get("tz"))
		assert.Equal(t, testSessionID, start[0].Get("custom_sessionid"))

		res, err := r.StartClimateControlResult(testCtx(), key)
		require.NoError(t, err)
		assert.False(t, res.Ready)
		assert.Nil(t, res.Result)

		res, err = r.StartClimateControlResult(testCtx(), key)
		require.NoError(t, err)
		require.True(t, res.Ready)
		require.NotNil(t, res.Result)
		assert.Equal(t, types.OperationClimateStart, res.Result.Operation)
		require.NotNil(t, res.Result.HVACRunning)
		assert.True(t, *res.Result.HVACRunning)
		require.NotNil(t, res.Result.ACContinueUntil)
		assert.Equal(t, testNow.Add(30*time.Minute), *res.Result.ACContinueUntil)
		require.NotNil(t, res.Result.CruisingRangeKM)
		assert.Equal(t, 115.2, *res.Result.CruisingRangeKM)
		assert.Equal(t, time.Date(2016, 2, 21, 15, 24, 36, 0, time.UTC), res.Result.Timestamp)

		for _, c := range f.callsTo("ACRemoteResult.php") {
			assert.Equal(t, testResultKey, c.Get("resultKey"))
			assert.Equal(t, testVIN, c.Get("VIN"))
		}
	})

	t.Run("Stop", func(t *testing.T) {
		_, s := connected(t, map[string]endpointFunc{
			"ACRemoteOffRequest.php": startOK,
			"ACRemoteOffResult.php": func(url.Values) any {
				return map[string]any{
					"status":          200,
					"responseFlag":    "1",
					"operationResult": "START",
					"hvacStatus":      "OFF",
				}
			},
		})
		r := s.Remote()
		key, err := r.StopClimateControl(testCtx())
		require.NoError(t, err)

		res, err := r.StopClimateControlResult(testCtx(), key)
		require.NoError(t, err)
		require.True(t, res.Ready)
		require.NotNil(t, res.Result.HVACRunning)
		assert.False(t, *res.Result.HVACRunning)
		assert.Nil(t, res.Result.ACContinueUntil)
	})

	t.Run("Unreachable", func(t *testing.T) {
		_, s := connected(t, map[string]endpointFunc{
			"ACRemoteResult.php": func(url.Values) any {
				return map[string]any{
					"status":          200,
					"responseFlag":    "1",
					"OperationResult": "ELECTRIC_WAVE_ABNORMAL",
					"hvacStatus":      "ON",
				}
			},
		})
		res, err := s.Remote().StartClimateControlResult(testCtx(), testResultKey)
		assert.ErrorIs(t, err, ErrVehicleUnreachable)
		assert.False(t, res.Ready)
		assert.Nil(t, res.Result)
	})
}

func TestRemotePollFlag(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		ready bool
	}{
		{name: "Zero", body: map[string]any{"status": 200, "responseFlag": "0"}},
		{name: "Other Value", body: map[string]any{"status": 200, "responseFlag": "2"}},
		{name: "Missing", body: map[string]any{"status": 200}},
		{name: "Numeric One", body: map[string]any{"status": 200, "responseFlag": 1, "hvacStatus": "ON"}, ready: true},
		{name: "One", body: map[string]any{"status": 200, "responseFlag": "1", "hvacStatus": "ON"}, ready: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			_, s := connected(t, map[string]endpointFunc{
				"ACRemoteOffResult.php": func(url.Values) any { return body },
			})
			res, err := s.Remote().Poll(testCtx(), types.OperationClimateStop, testResultKey)
			require.NoError(t, err)
			assert.Equal(t, tt.ready, res.Ready)
			if !tt.ready {
				assert.Nil(t, res.Result)
			}
		})
	}
}

func TestRemoteStatusUpdate(t *testing.T) {
	_, s := connected(t, map[string]endpointFunc{
		"BatteryStatusCheckRequest.php": startOK,
		"BatteryStatusCheckResultRequest.php": func(url.Values) any {
			return map[string]any{
				"status":             200,
				"responseFlag":       "1",
				"operationResult":    "START",
				"batteryDegradation": "10",
				"batteryCapacity":    "12",
				"chargeMode":         "NOT_CHARGING",
				"pluginState":        "NOT_CONNECTED",
			}
		},
	})
	r := s.Remote()

	key, err := r.RequestUpdate(testCtx())
	require.NoError(t, err)

	res, err := r.StatusFromUpdate(testCtx(), key)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.True(t, res.Ready)
	assert.Nil(t, res.Result)
	require.NotNil(t, res.Raw)
	mode, _ := res.Raw.String("chargeMode")
	assert.Equal(t, "NOT_CHARGING", mode)
}

func TestRemoteStartFailed(t *testing.T) {
	t.Run("Missing Result Key", func(t *testing.T) {
		_, s := connected(t, map[string]endpointFunc{
			"ACRemoteRequest.php": func(url.Values) any { return map[string]any{"status": 200} },
		})
		_, err := s.Remote().StartClimateControl(testCtx())
		assert.ErrorIs(t, err, ErrStartFailed)
	})

	t.Run("Transport Failure", func(t *testing.T) {
		_, s := connected(t, map[string]endpointFunc{
			"ACRemoteRequest.php": func(url.Values) any { return maintenancePage },
		})
		_, err := s.Remote().StartClimateControl(testCtx())
		assert.ErrorIs(t, err, ErrStartFailed)
		assert.ErrorIs(t, err, ErrInvalidBody)
		assert.Equal(t, KindStartFailed, KindOf(err))
	})

	t.Run("Unknown Operation", func(t *testing.T) {
		_, s := connected(t, nil)
		_, err := s.Remote().Start(testCtx(), types.Operation("honk"))
		assert.Error(t, err)
		_, err = s.Remote().Poll(testCtx(), types.Operation("honk"), testResultKey)
		assert.Error(t, err)
	})
}

func TestRemoteLatestBatteryStatus(t *testing.T) {
	_, s := connected(t, map[string]endpointFunc{
		"BatteryStatusRecordsRequest.php": func(url.Values) any {
			return map[string]any{
				"status": 200,
				"BatteryStatusRecords": map[string]any{
					"OperationResult": "START",
					"TimeStamp":       "2016-02-21 15:24:36",
					"BatteryStatus": map[string]any{
						"BatteryChargingStatus": "NOT_CHARGING",
					},
				},
			}
		},
	})
	rec, err := s.Remote().LatestBatteryStatus(testCtx())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 2, 21, 15, 24, 36, 0, time.UTC), rec.Timestamp)
	assert.Contains(t, rec.Raw, "BatteryStatusRecords")
}

func TestRemoteWait(t *testing.T) {
	var polls atomic.Int32
	_, s := connected(t, map[string]endpointFunc{
		"ACRemoteResult.php": func(form url.Values) any {
			if polls.Add(1) < 3 {
				return notReady(form)
			}
			return map[string]any{"status": 200, "responseFlag": "1", "hvacStatus": "ON", "acContinueTime": "15"}
		},
	})

	res, err := s.Remote().Wait(testCtx(), types.OperationClimateStart, testResultKey, time.Millisecond, 5)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.Equal(t, int32(3), polls.Load())
	require.NotNil(t, res.Result.ACContinueUntil)
	assert.Equal(t, testNow.Add(15*time.Minute), *res.Result.ACContinueUntil)

	polls.Store(-100)
	_, err = s.Remote().Wait(testCtx(), types.OperationClimateStart, testResultKey, time.Millisecond, 2)
	assert.ErrorIs(t, err, ErrPollExhausted)

	ctx, cancel := context.WithCancel(testCtx())
	cancel()
	_, err = s.Remote().Wait(ctx, types.OperationClimateStart, testResultKey, time.Millisecond, 0)
	assert.Error(t, err)
}
