package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
	"github.com/GriffinCanCode/tarkov-gateway/internal/testutil"
)

const (
	distribDoc   = `{"err":0,"errmsg":null,"data":{"Version":"1.2.3"}}`
	patchListDoc = `{"err":0,"errmsg":null,"data":[{"Version":"0.13.0.1"},{"Version":"0.12.12.0"}]}`
)

func waitRefresh(t *testing.T, gw *Gateway) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := gw.Refresh().Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "refresh did not finish")
	return err
}

func TestRefreshOnStartUpdatesVersions(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope(DistribPath, distribDoc)
	backend.Envelope(PatchListPath, patchListDoc)

	cfg := testutil.Config(backend.URL())
	cfg.Refresh.OnStart = true
	core, logs := observer.New(zapcore.InfoLevel)
	gw := newTestGateway(t, cfg, WithLogger(zap.New(core)))

	require.NoError(t, waitRefresh(t, gw))

	v := gw.Versions()
	assert.Equal(t, "1.2.3", v.Launcher)
	assert.Equal(t, "0.13.0.1", v.Game)
	assert.Equal(t, "2018.4.28f1", v.Unity)

	launcher := logs.FilterMessage("Updated launcher version").All()
	require.Len(t, launcher, 1)
	assert.Equal(t, zapcore.InfoLevel, launcher[0].Level)
	assert.Equal(t, "10.4.4.123", launcher[0].ContextMap()["from"])
	assert.Equal(t, "1.2.3", launcher[0].ContextMap()["to"])

	game := logs.FilterMessage("Updated game version").All()
	require.Len(t, game, 1)
	assert.Equal(t, "0.12.9.10988", game[0].ContextMap()["from"])
	assert.Equal(t, "0.13.0.1", game[0].ContextMap()["to"])

	m := gw.Metrics()
	assert.Equal(t, float64(1), promtest.ToFloat64(m.VersionUpdates.WithLabelValues("launcher")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.VersionChecks.WithLabelValues(DistribPath, "ok")))
}

func TestRefreshPatchListUsesUpdatedLauncherVersion(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope(DistribPath, distribDoc)
	backend.Envelope(PatchListPath, patchListDoc)

	cfg := testutil.Config(backend.URL())
	cfg.Refresh.OnStart = true
	gw := newTestGateway(t, cfg)
	require.NoError(t, waitRefresh(t, gw))

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, DistribPath, reqs[0].Path)
	assert.Equal(t, PatchListPath, reqs[1].Path)

	for _, r := range reqs {
		assert.Equal(t, http.MethodPost, r.Method)
	}
	assert.Equal(t, "BSG Launcher 10.4.4.123", reqs[0].Header.Get("User-Agent"))
	assert.Equal(t, "BSG Launcher 1.2.3", reqs[1].Header.Get("User-Agent"))
	assert.Equal(t, "1.2.3", reqs[1].Query.Get("launcherVersion"))
	assert.Equal(t, LiveBranch, reqs[1].Query.Get("branch"))
}

func TestRefreshUnchangedVersionIsNotLogged(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope(DistribPath, `{"err":0,"data":{"Version":"10.4.4.123"}}`)
	backend.Envelope(PatchListPath, `{"err":0,"data":[{"Version":"0.12.9.10988"}]}`)
	core, logs := observer.New(zapcore.InfoLevel)
	gw := newTestGateway(t, testutil.Config(backend.URL()), WithLogger(zap.New(core)))

	require.NoError(t, gw.RefreshVersions(context.Background()))
	assert.Zero(t, logs.FilterMessageSnippet("Updated").Len())
	assert.Equal(t, "10.4.4.123", gw.Versions().Launcher)
}

func TestRefreshFailureDoesNotFailNew(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Raw(DistribPath, http.StatusInternalServerError, []byte("down"))
	backend.Envelope(PatchListPath, patchListDoc)

	cfg := testutil.Config(backend.URL())
	cfg.Refresh.OnStart = true
	core, logs := observer.New(zapcore.InfoLevel)
	gw, err := New(cfg, WithLogger(zap.New(core)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	err = waitRefresh(t, gw)
	require.Error(t, err)
	assert.Equal(t, err, gw.Refresh().Err())

	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	var verr *VersionCheckError
	require.ErrorAs(t, errs[0], &verr)
	assert.Equal(t, DistribPath, verr.Endpoint)
	assert.True(t, IsTransport(err))

	// The game check still ran with the configured launcher version.
	v := gw.Versions()
	assert.Equal(t, "10.4.4.123", v.Launcher)
	assert.Equal(t, "0.13.0.1", v.Game)
	patch := backend.RequestsTo(PatchListPath)
	require.Len(t, patch, 1)
	assert.Equal(t, "10.4.4.123", patch[0].Query.Get("launcherVersion"))

	failed := logs.FilterMessage("Version check failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, DistribPath, failed[0].ContextMap()["endpoint"])
}

func TestRefreshCombinesBothFailures(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Envelope(DistribPath, `{"err":0,"data":{}}`)
	backend.Envelope(PatchListPath, `{"err":14,"errmsg":"unknown branch"}`)
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	err := gw.RefreshVersions(context.Background())
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)

	assert.ErrorIs(t, errs[0], ErrMissingVersion)
	assert.True(t, protocol.IsProtocol(errs[1]))
	for _, e := range errs {
		assert.True(t, IsVersionCheck(e))
	}

	v := gw.Versions()
	assert.Equal(t, "10.4.4.123", v.Launcher)
	assert.Equal(t, "0.12.9.10988", v.Game)
}

func TestRefreshRunsInBackground(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Delay(DistribPath, distribDoc, 10*time.Second)
	backend.Envelope(PatchListPath, patchListDoc)

	cfg := testutil.Config(backend.URL())
	cfg.Refresh.OnStart = true
	gw, err := New(cfg)
	require.NoError(t, err)

	select {
	case <-gw.Refresh().Done():
		t.Fatal("New waited for the version refresh")
	default:
	}
	assert.NoError(t, gw.Refresh().Err())

	// Close abandons the pending refresh.
	require.NoError(t, gw.Close())
	select {
	case <-gw.Refresh().Done():
	default:
		t.Fatal("Close returned before the refresh stopped")
	}
	assert.True(t, IsVersionCheck(gw.Refresh().Err()))
	assert.Equal(t, "10.4.4.123", gw.Versions().Launcher)
}

func TestRefreshDisabled(t *testing.T) {
	backend := testutil.NewBackend(t)
	gw := newTestGateway(t, testutil.Config(backend.URL()))

	assert.NoError(t, waitRefresh(t, gw))
	assert.Empty(t, backend.Requests())
}
