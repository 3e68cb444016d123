package carwings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/types"
	"github.com/stretchr/testify/require"
)

const (
	testBasePrm   = "88dSp7wWnV3bvv9Z88zEwg"
	testSessionID = "c2Vzc2lvbi1pZC0xMjM0"
	testVIN       = "1N4AZ0CP5DC400000"
	testDCMID     = "200101000000"
	testUsername  = "user@example.com"
	testPassword  = "SOMEPASS"
)

var testNow = time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)

// endpointFunc answers one endpoint. Returning a string writes it verbatim,
// anything else is JSON encoded.
type endpointFunc func(form url.Values) any

type fakeCarwings struct {
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]endpointFunc
	calls    map[string][]url.Values
}

func newFakeCarwings(t *testing.T, handlers map[string]endpointFunc) (*fakeCarwings, *Session) {
	t.Helper()
	return newFakeCarwingsRegion(t, "", handlers)
}

func newFakeCarwingsRegion(t *testing.T, region types.Region, handlers map[string]endpointFunc) (*fakeCarwings, *Session) {
	t.Helper()
	f := &fakeCarwings{
		t:        t,
		handlers: handlers,
		calls:    make(map[string][]url.Values),
	}
	ts := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(ts.Close)

	s := NewSession(testUsername, testPassword, region,
		WithHTTPClient(ts.Client()),
		WithBaseURL(ts.URL),
		WithClock(func() time.Time { return testNow }),
	)
	return f, s
}

func (f *fakeCarwings) serveHTTP(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	endpoint := r.URL.Path[1:]

	f.mu.Lock()
	f.calls[endpoint] = append(f.calls[endpoint], r.PostForm)
	h, ok := f.handlers[endpoint]
	f.mu.Unlock()

	if !ok {
		http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
		return
	}
	switch v := h(r.PostForm).(type) {
	case string:
		w.Write([]byte(v))
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}

func (f *fakeCarwings) callsTo(endpoint string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *fakeCarwings) set(endpoint string, h endpointFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[endpoint] = h
}

func initialAppOK(url.Values) any {
	return map[string]any{
		"status":  200,
		"message": "success",
		"baseprm": testBasePrm,
	}
}

// nestedLoginPayload is the login layout with the vehicle list wrapped in
// VehicleInfoList.
func nestedLoginPayload() map[string]any {
	return map[string]any{
		"status":    200,
		"sessionId": "ignored",
		"VehicleInfoList": map[string]any{
			"vehicleInfo": []any{
				map[string]any{
					"charger20066":      "false",
					"nickname":          "LEAF",
					"telematicsEnabled": "true",
					"vin":               testVIN,
					"custom_sessionid":  testSessionID,
				},
			},
			"cartalkUrl": "https://example.com",
		},
		"vehicle": map[string]any{
			"profile": map[string]any{
				"vin":       testVIN,
				"gdcUserId": "gdc-user",
				"dcmId":     testDCMID,
				"nickname":  "LEAF",
				"status":    "ACCEPTED",
			},
		},
		"CustomerInfo": map[string]any{
			"UserInfo": map[string]any{
				"UserId": testUsername,
			},
			"Timezone": "America/New_York",
			"Language": "en-US",
			"Nickname": "owner",
			"VehicleInfo": map[string]any{
				"VIN":                  testVIN,
				"DCMID":                testDCMID,
				"UserVehicleBoundTime": "2015-08-15T23:00:24Z",
			},
		},
	}
}

// flatLoginPayload keeps vehicleInfo at the top level and has no profile.
func flatLoginPayload() map[string]any {
	return map[string]any{
		"status": 200,
		"vehicleInfo": []any{
			map[string]any{
				"nickname":         "FLAT",
				"vin":              "FLATVIN0000000001",
				"custom_sessionid": "flat-session",
			},
		},
		"customerInfo": map[string]any{
			"timezone": "Europe/London",
			"language": "en-GB",
			"UserInfo": map[string]any{"UserId": "flat-user"},
			"VehicleInfo": map[string]any{
				"DCMID": "flat-dcm",
			},
		},
	}
}

func loginOK(url.Values) any {
	return nestedLoginPayload()
}

func loginHandlers() map[string]endpointFunc {
	return map[string]endpointFunc{
		endpointInitialApp: initialAppOK,
		endpointLogin:      loginOK,
	}
}

// connected returns a logged in session backed by a fake server that also
// serves extra.
func connected(t *testing.T, extra map[string]endpointFunc) (*fakeCarwings, *Session) {
	t.Helper()
	handlers := loginHandlers()
	for k, v := range extra {
		handlers[k] = v
	}
	f, s := newFakeCarwings(t, handlers)
	_, err := s.Connect(testCtx())
	require.NoError(t, err)
	return f, s
}

func testCtx() context.Context {
	return log.Discard(context.Background())
}
