package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/config"
	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
)

// Request describes one backend call.
type Request struct {
	Method string
	// Path is relative to the profile's base URL, e.g. "launcher/GetPatchList".
	Path  string
	Query map[string]string
	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is a successful backend call. The compressed body has been
// replaced by the decoded envelope.
type Response struct {
	StatusCode int
	Header     http.Header
	Envelope   *protocol.Envelope
}

// Decode unmarshals the envelope's data field into v.
func (r *Response) Decode(v any) error {
	return r.Envelope.DecodeData(v)
}

// shared is the mutable state every handle of one gateway reads.
type shared struct {
	session  *SessionState
	counter  *RequestCounter
	versions *versionStore
}

func (s *shared) identity() *protocol.Identity {
	return &protocol.Identity{
		Session:       s.session.Session(),
		Versions:      s.versions.get(),
		NextRequestID: s.counter.Next,
	}
}

// Handle is a pre-configured client for one profile.
// Its profile and flags never change after construction.
type Handle struct {
	spec    ProfileSpec
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	state   *shared
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func newHandle(spec ProfileSpec, tc config.TransportConfig, transport http.RoundTripper, state *shared, logger *zap.Logger, metrics *monitoring.Metrics) (*Handle, error) {
	if err := spec.Flags.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", spec.Profile, err)
	}

	h := &Handle{
		spec:    spec,
		state:   state,
		logger:  logger.With(zap.String("profile", string(spec.Profile))),
		metrics: metrics,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}

	if tc.RateLimitRPS > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(tc.RateLimitRPS), max(1, int(tc.RateLimitRPS)))
	}

	if tc.BreakerEnabled {
		h.breaker = resilience.New(string(spec.Profile), resilience.Settings{
			MaxRequests: 1,
			Timeout:     tc.BreakerCooldown,
			ReadyToTrip: resilience.TripAfter(tc.BreakerThreshold),
			IsSuccessful: func(err error) bool {
				return err == nil || !IsTransport(err)
			},
			OnStateChange: func(name string, from, to resilience.State) {
				h.logger.Warn("Circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
				if h.metrics != nil {
					h.metrics.SetBreakerState(name, int(to))
				}
			},
		})
	}

	h.client = resty.New().
		SetBaseURL(spec.BaseURL).
		SetTimeout(tc.Timeout).
		SetRetryCount(0).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(logger.Sugar())
	if transport != nil {
		h.client.SetTransport(transport)
	}

	h.client.SetPreRequestHook(h.beforeRequest)
	h.client.OnAfterResponse(h.afterResponse)
	h.client.OnError(h.onError)

	return h, nil
}

// Profile returns the handle's profile name.
func (h *Handle) Profile() Profile {
	return h.spec.Profile
}

// BaseURL returns the prefix every request path is joined to.
func (h *Handle) BaseURL() string {
	return h.spec.BaseURL
}

// Flags returns the header-injection flags of the handle.
func (h *Handle) Flags() protocol.Flags {
	return h.spec.Flags
}

// BreakerState returns the breaker state, or closed when the breaker is off.
func (h *Handle) BreakerState() resilience.State {
	if h.breaker == nil {
		return resilience.StateClosed
	}
	return h.breaker.State()
}

// Post sends a POST request.
func (h *Handle) Post(ctx context.Context, path string, body any, query map[string]string) (*Response, error) {
	return h.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Query: query})
}

// Get sends a GET request.
func (h *Handle) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	return h.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Do sends req and returns the decoded envelope.
//
// Errors are one of *TransportError, *protocol.DecompressionError or
// *protocol.ProtocolError. Nothing is retried.
func (h *Handle) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodPost
	}
	op := req.Method + " " + req.Path
	timer := monitoring.NewTimer(h.metrics, string(h.spec.Profile))

	if err := h.limiter.Wait(ctx); err != nil {
		err = &TransportError{Op: op, Err: fmt.Errorf("rate limit: %w", err)}
		timer.Stop(monitoring.OutcomeTransport, 0)
		return nil, err
	}

	var resp *resty.Response
	send := func() error {
		var err error
		resp, err = h.execute(ctx, req)
		return classify(op, err)
	}

	var err error
	if h.breaker != nil {
		err = h.breaker.Execute(send)
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			err = &TransportError{Op: op, Err: err}
		}
	} else {
		err = send()
	}

	size := 0
	if resp != nil {
		size = len(resp.Body())
	}
	timer.Stop(outcome(err), size)
	if err != nil {
		return nil, err
	}

	env, ok := resp.Request.Result.(*protocol.Envelope)
	if !ok {
		return nil, &TransportError{Op: op, Err: errors.New("response was not decoded")}
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Envelope:   env,
	}, nil
}

func (h *Handle) execute(ctx context.Context, req Request) (*resty.Response, error) {
	r := h.client.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	return r.Execute(req.Method, req.Path)
}

// beforeRequest runs on the final *http.Request, after resty has added its
// own defaults, so the header rules see everything that will be sent.
func (h *Handle) beforeRequest(_ *resty.Client, req *http.Request) error {
	protocol.ApplyHeaders(req.Header, h.spec.Flags, h.state.identity())
	return nil
}

// afterResponse replaces the compressed body with the decoded envelope.
// The envelope is checked before the HTTP status, so a backend error sent
// with a 4xx/5xx status still reaches the caller as a *ProtocolError.
func (h *Handle) afterResponse(_ *resty.Client, resp *resty.Response) error {
	env, err := protocol.Decode(resp.Body())
	if err != nil {
		if !resp.IsSuccess() {
			return &TransportError{StatusCode: resp.StatusCode()}
		}
		return err
	}
	if err := env.Check(); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return &TransportError{StatusCode: resp.StatusCode()}
	}

	resp.Request.Result = env
	return nil
}

func (h *Handle) onError(req *resty.Request, err error) {
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Error(err),
	}

	switch {
	case protocol.IsProtocol(err):
		h.logger.Warn("Backend rejected request", fields...)
	case protocol.IsDecompression(err):
		h.logger.Error("Failed to decode backend response", fields...)
	default:
		h.logger.Error("Backend request failed", fields...)
	}
}

// classify keeps hook errors as they are, filling in the Op of a
// *TransportError, and wraps everything else, which can only come from the
// HTTP layer, as a *TransportError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var terr *TransportError
	if errors.As(err, &terr) {
		if terr.Op == "" {
			terr.Op = op
		}
		return err
	}
	if protocol.IsDecompression(err) || protocol.IsProtocol(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeSuccess
	case protocol.IsProtocol(err):
		return monitoring.OutcomeProtocol
	case protocol.IsDecompression(err):
		return monitoring.OutcomeDecompression
	default:
		return monitoring.OutcomeTransport
	}
}
