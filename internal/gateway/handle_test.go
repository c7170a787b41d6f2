package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/config"
	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
	"github.com/GriffinCanCode/tarkov-gateway/internal/testutil"
)

// deadURL returns the address of a server that is no longer listening.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestProtocolError(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope("client/game/profile/list", `{"err":1,"errmsg":"bad session"}`)
	core, logs := observer.New(zapcore.DebugLevel)
	gw := newTestGateway(t, testutil.Config(backend.URL()), WithLogger(zap.New(core)))

	resp, err := gw.Prod.Post(context.Background(), "client/game/profile/list", nil, nil)
	require.Error(t, err)
	assert.Nil(t, resp)

	perr, ok := protocol.AsProtocol(err)
	require.True(t, ok, "expected a protocol error, got %T", err)
	assert.Equal(t, "bad session", perr.Envelope.ErrMsg)
	code, numeric := perr.Envelope.Code()
	assert.True(t, numeric)
	assert.Equal(t, float64(1), code)

	assert.False(t, protocol.IsDecompression(err))
	assert.False(t, IsTransport(err))

	entries := logs.FilterMessage("Backend rejected request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "prod", entries[0].ContextMap()["profile"])
}

func TestProtocolErrorVariants(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing err", `{"data":{}}`},
		{"null err", `{"err":null,"data":{}}`},
		{"string err", `{"err":"0","data":{}}`},
		{"backend code", `{"err":205,"errmsg":"profile locked"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewBackend(t)
			backend.Envelope("client/ping", tt.doc)
			gw := newTestGateway(t, testutil.Config(backend.URL()))

			_, err := gw.Trading.Post(context.Background(), "client/ping", nil, nil)
			assert.True(t, protocol.IsProtocol(err), "got %v", err)
		})
	}
}

func TestDecompressionError(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Raw("client/ping", http.StatusOK, []byte("this is not a deflate stream"))
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	_, err := gw.Ragfair.Post(context.Background(), "client/ping", nil, nil)
	require.Error(t, err)

	var derr *protocol.DecompressionError
	require.ErrorAs(t, err, &derr)
	assert.False(t, protocol.IsProtocol(err))
	assert.False(t, IsTransport(err))
}

func TestDecompressionErrorOnInvalidJSON(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope("client/ping", `{"err":0,`)
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	_, err := gw.Prod.Post(context.Background(), "client/ping", nil, nil)

	var derr *protocol.DecompressionError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, protocol.StageParse, derr.Stage)
}

func TestNonSuccessStatusIsTransportError(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Raw("client/ping", http.StatusBadGateway, []byte("bad gateway"))
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	_, err := gw.Prod.Post(context.Background(), "client/ping", nil, nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
	assert.Equal(t, "POST client/ping", terr.Op)
	assert.False(t, protocol.IsDecompression(err))
}

func TestErrorEnvelopeWithErrorStatus(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Raw("client/ping", http.StatusUnauthorized, testutil.Deflate(t, `{"err":201,"errmsg":"bad session"}`))
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	_, err := gw.Prod.Post(context.Background(), "client/ping", nil, nil)

	perr, ok := protocol.AsProtocol(err)
	require.True(t, ok, "expected a protocol error, got %T: %v", err, err)
	assert.Equal(t, "bad session", perr.Envelope.ErrMsg)
	code, _ := perr.Envelope.Code()
	assert.Equal(t, float64(201), code)
	assert.False(t, IsTransport(err))
}

func TestSuccessEnvelopeWithErrorStatus(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Raw("client/ping", http.StatusServiceUnavailable, testutil.Deflate(t, okDoc))
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	_, err := gw.Trading.Post(context.Background(), "client/ping", nil, nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
	assert.Equal(t, "POST client/ping", terr.Op)
	assert.False(t, protocol.IsProtocol(err))
}

func TestUnknownPathIsTransportError(t *testing.T) {
	backend := testutil.NewBackend(t)
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	_, err := gw.Launcher.Post(context.Background(), "launcher/nope", nil, nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
	assert.Equal(t, "POST launcher/nope", terr.Op)
}

func TestConnectionFailureIsTransportError(t *testing.T) {
	gw := newTestGateway(t, testutil.Config(deadURL(t)))

	_, err := gw.Prod.Post(context.Background(), "client/ping", nil, nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, terr.StatusCode)
	assert.Equal(t, "POST client/ping", terr.Op)
	assert.NotNil(t, terr.Err)
}

func TestCanceledContextIsTransportError(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Delay("client/ping", okDoc, time.Second)
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gw.Prod.Post(ctx, "client/ping", nil, nil)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	cfg := testutil.Config(deadURL(t))
	cfg.Transport.BreakerEnabled = true
	cfg.Transport.BreakerThreshold = 2
	cfg.Transport.BreakerCooldown = time.Minute
	gw := newTestGateway(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := gw.Prod.Post(ctx, "client/ping", nil, nil)
		require.True(t, IsTransport(err))
	}
	assert.Equal(t, resilience.StateOpen, gw.Prod.BreakerState())

	_, err := gw.Prod.Post(ctx, "client/ping", nil, nil)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	// Breakers are per handle.
	assert.Equal(t, resilience.StateClosed, gw.Trading.BreakerState())
}

func TestBreakerIgnoresProtocolErrors(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope("client/ping", `{"err":201,"errmsg":"bad session"}`)
	cfg := testutil.Config(backend.URL())
	cfg.Transport.BreakerEnabled = true
	cfg.Transport.BreakerThreshold = 2
	gw := newTestGateway(t, cfg)

	for i := 0; i < 4; i++ {
		_, err := gw.Prod.Post(context.Background(), "client/ping", nil, nil)
		require.True(t, protocol.IsProtocol(err))
	}
	assert.Equal(t, resilience.StateClosed, gw.Prod.BreakerState())
}

func TestRateLimiterRespectsDeadline(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope("client/ping", okDoc)
	cfg := testutil.Config(backend.URL())
	cfg.Transport.RateLimitRPS = 0.5
	gw := newTestGateway(t, cfg)

	_, err := gw.Prod.Post(context.Background(), "client/ping", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = gw.Prod.Post(ctx, "client/ping", nil, nil)
	assert.True(t, IsTransport(err))
	assert.Len(t, backend.RequestsTo("client/ping"), 1)
}

func TestNewHandleRejectsConflictingAgents(t *testing.T) {
	spec := ProfileSpec{
		Profile: "broken",
		BaseURL: "http://127.0.0.1",
		Flags:   protocol.BSGAgent | protocol.UnityAgent,
	}
	state := &shared{
		session:  &SessionState{},
		counter:  &RequestCounter{},
		versions: &versionStore{},
	}

	_, err := newHandle(spec, config.Default().Transport, nil, state, zap.NewNop(), nil)
	assert.True(t, errors.Is(err, protocol.ErrConflictingAgents))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("POST x", nil))

	perr := &protocol.ProtocolError{Envelope: &protocol.Envelope{ErrMsg: "no"}}
	assert.Same(t, perr, classify("POST x", perr))

	derr := &protocol.DecompressionError{Stage: protocol.StageInflate, Err: protocol.ErrEmptyBody}
	assert.Same(t, derr, classify("POST x", derr))

	err := classify("POST x", errors.New("dial tcp: refused"))
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "POST x", terr.Op)

	status := &TransportError{StatusCode: http.StatusForbidden}
	assert.Same(t, status, classify("GET y", status))
	assert.Equal(t, "GET y", status.Op)

	named := &TransportError{Op: "POST z", StatusCode: http.StatusForbidden}
	classify("GET y", named)
	assert.Equal(t, "POST z", named.Op)
}
