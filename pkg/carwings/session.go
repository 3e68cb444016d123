package carwings

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/leafremote/leafremote/pkg/common"
	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/types"
)

const (
	endpointInitialApp = "InitialApp_v2.php"
	endpointLogin      = "UserLoginRequest.php"

	defaultLanguage = "en-US"
)

// Session states.
const (
	StateUnauthenticated = "unauthenticated"
	StateAuthenticating  = "authenticating"
	StateAuthenticated   = "authenticated"
)

const (
	eventConnect = "connect"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

// Session holds the credentials and the server-issued login state of one
// carwings account.
//
// Connect must not run concurrently with itself or with operations on the
// session's Remote; a second Connect while one is in flight fails. Once
// connected, any number of operations may run concurrently.
type Session struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	region   types.Region
	language string
	timeZone string
	now      func() time.Time

	state *fsm.FSM

	mu              sync.RWMutex
	customSessionID string
	loggedIn        bool
	identity        types.Identity
	remote          *Remote
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.client = c
	}
}

// WithBaseURL overrides DefaultBaseURL. A trailing slash is added if missing.
func WithBaseURL(u string) Option {
	return func(s *Session) {
		if u != "" && u[len(u)-1] != '/' {
			u += "/"
		}
		s.baseURL = u
	}
}

// WithLanguage sets the language sent during login and with operations.
func WithLanguage(lang string) Option {
	return func(s *Session) {
		s.language = lang
	}
}

// WithTimeZone sets the time zone sent with operations. When unset, the time
// zone reported at login is used.
func WithTimeZone(tz string) Option {
	return func(s *Session) {
		s.timeZone = tz
	}
}

// WithClock replaces time.Now for values derived from the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession returns an unauthenticated session. An empty region selects
// types.DefaultRegion; any other value is sent to the server unchecked.
func NewSession(username, password string, region types.Region, opts ...Option) *Session {
	if region == "" {
		region = types.DefaultRegion
	}
	s := &Session{
		client:   common.HTTPClient(time.Minute),
		baseURL:  DefaultBaseURL,
		username: username,
		password: password,
		region:   region,
		language: defaultLanguage,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	s.state = fsm.NewFSM(
		StateUnauthenticated,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateUnauthenticated, StateAuthenticated}, Dst: StateAuthenticating},
			{Name: eventSucceed, Src: []string{StateAuthenticating}, Dst: StateAuthenticated},
			{Name: eventFail, Src: []string{StateAuthenticating}, Dst: StateUnauthenticated},
		},
		fsm.Callbacks{
			"enter_" + StateAuthenticating: func(_ context.Context, _ *fsm.Event) {
				s.reset()
			},
		},
	)
	return s
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customSessionID = ""
	s.loggedIn = false
	s.identity = types.Identity{}
	s.remote = nil
}

// Username returns the account name.
func (s *Session) Username() string {
	return s.username
}

// Region returns the region code the session logs in with.
func (s *Session) Region() types.Region {
	return s.region
}

// State returns the current authentication state.
func (s *Session) State() string {
	return s.state.Current()
}

// LoggedIn reports whether the last Connect succeeded.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// CustomSessionID returns the server-issued session id, empty before login.
func (s *Session) CustomSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customSessionID
}

// Identity returns the identity fields captured at login.
func (s *Session) Identity() types.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Remote returns the handle for the account's first vehicle, or nil before
// login.
func (s *Session) Remote() *Remote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote
}

// Connect performs the handshake and login. Any previous login state is
// discarded first. Failures are not retried. State transitions complete even
// when ctx is done, so a failed or abandoned attempt always leaves the session
// unauthenticated and ready for another Connect.
func (s *Session) Connect(ctx context.Context) (*types.LoginResult, error) {
	fsmCtx := context.WithoutCancel(ctx)
	if err := s.state.Event(fsmCtx, eventConnect); err != nil {
		return nil, fmt.Errorf("cannot connect in state %s: %w", s.State(), err)
	}

	res, sessionID, err := s.login(ctx)
	if err != nil {
		if ferr := s.state.Event(fsmCtx, eventFail); ferr != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to record login failure", slog.Any("error", ferr))
			s.state.SetState(StateUnauthenticated)
		}
		return nil, err
	}

	s.mu.Lock()
	s.customSessionID = sessionID
	s.identity = res.Identity
	s.loggedIn = true
	s.remote = &Remote{session: s, vin: res.Identity.VIN}
	s.mu.Unlock()

	if err := s.state.Event(fsmCtx, eventSucceed); err != nil {
		return nil, fmt.Errorf("failed to complete login: %w", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "carwings login success",
		slog.String("region", string(s.region)),
		slog.String("vin", res.Identity.VIN),
	)
	return res, nil
}

func (s *Session) login(ctx context.Context) (*types.LoginResult, string, error) {
	params := url.Values{}
	params.Set("RegionCode", string(s.region))
	params.Set("lg", s.language)

	initial, err := s.Post(ctx, endpointInitialApp, params)
	if err != nil {
		return nil, "", err
	}
	key, ok := initial.String("baseprm")
	if !ok || key == "" {
		return nil, "", &Error{Kind: KindInvalidBody, Op: endpointInitialApp, Message: "missing baseprm"}
	}

	encrypted, err := EncryptPassword(key, s.password)
	if err != nil {
		return nil, "", err
	}

	params = url.Values{}
	params.Set("RegionCode", string(s.region))
	params.Set("UserId", s.username)
	params.Set("Password", encrypted)
	params.Set("lg", s.language)

	p, err := s.Post(ctx, endpointLogin, params)
	if err != nil {
		return nil, "", err
	}
	if err := CheckReachable(endpointLogin, p); err != nil {
		return nil, "", err
	}

	res, sessionID, err := parseLogin(p)
	if err != nil {
		return nil, "", err
	}
	res.Region = s.region
	return res, sessionID, nil
}
