package carwings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/leafremote/leafremote/pkg/log"
)

const (
	// DefaultBaseURL is the gateway every endpoint is relative to.
	DefaultBaseURL = "https://gdcportalgw.its-mo.com/api_v190426_NE/gdc/"

	// initialAppStr identifies the application and is sent with every call.
	initialAppStr = "9s5rfKVuMrT03RtzajWNcA"

	// maxResponseLength caps how much of a response body is read.
	maxResponseLength = 1 << 20

	invalidParamsMessage = "INVALID PARAMS"
)

// Post sends params form-encoded to endpoint and classifies the response. The
// application identifier and the current session id are attached to every
// call; params itself is not modified.
func (s *Session) Post(ctx context.Context, endpoint string, params url.Values) (Payload, error) {
	form := url.Values{}
	for k, v := range params {
		form[k] = append([]string(nil), v...)
	}
	form.Set("initial_app_str", initialAppStr)
	form.Set("custom_sessionid", s.CustomSessionID())

	u := s.baseURL + endpoint
	l := log.Ctx(ctx).With(slog.String("endpoint", endpoint))
	l.DebugContext(ctx, "invoking carwings api", slog.String("url", u), slog.Any("params", redact(form)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		l.WarnContext(ctx, "carwings request failed", slog.Any("error", err))
		return nil, &Error{Kind: KindTransport, Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLength))
	if err != nil {
		l.WarnContext(ctx, "failed to read carwings response", slog.Any("error", err))
		return nil, &Error{Kind: KindTransport, Op: endpoint, Err: err}
	}
	l.DebugContext(ctx, "carwings response", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.WarnContext(ctx, "carwings request failed", slog.Int("status", resp.StatusCode))
		return nil, &Error{Kind: KindTransport, Op: endpoint, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	p, err := decodeBody(endpoint, body)
	if err != nil {
		l.ErrorContext(ctx, "carwings error", slog.Any("error", err))
		return nil, err
	}
	return p, nil
}

// decodeBody turns a response body into a Payload. The servers occasionally
// answer with an HTML maintenance page, which must not be mistaken for data.
func decodeBody(endpoint string, body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &Error{Kind: KindInvalidBody, Op: endpoint, Message: "empty body"}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &Error{Kind: KindInvalidBody, Op: endpoint, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &Error{Kind: KindInvalidBody, Op: endpoint, Message: "trailing data after JSON value"}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Kind: KindInvalidBody, Op: endpoint, Message: fmt.Sprintf("expected JSON object, got %T", v)}
	}
	p := Payload(m)

	if msg, _ := p.String("message"); msg == invalidParamsMessage {
		status, _ := p.String("status")
		return nil, &Error{Kind: KindInvalidParams, Op: endpoint, Code: status, Message: msg}
	}

	if msg, _ := p.String("ErrorMessage", "errorMessage"); msg != "" {
		code, _ := p.String("ErrorCode", "errorCode")
		return nil, &Error{Kind: KindServerError, Op: endpoint, Code: code, Message: msg}
	}

	return p, nil
}

func redact(form url.Values) url.Values {
	out := make(url.Values, len(form))
	for k, v := range form {
		if k == "Password" {
			out[k] = []string{"[redacted]"}
			continue
		}
		out[k] = v
	}
	return out
}
