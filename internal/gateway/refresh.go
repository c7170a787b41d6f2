package gateway

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
)

// Version endpoints on the launcher host.
const (
	DistribPath   = "launcher/GetLauncherDistrib"
	PatchListPath = "launcher/GetPatchList"
	LiveBranch    = "live"
)

// Refresh is the completion signal of a background version refresh.
type Refresh struct {
	done chan struct{}
	err  error
}

func completedRefresh(err error) *Refresh {
	r := &Refresh{done: make(chan struct{}), err: err}
	close(r.done)
	return r
}

// Done is closed when the refresh has finished.
func (r *Refresh) Done() <-chan struct{} {
	return r.done
}

// Err returns the combined version-check errors once Done is closed,
// and nil before that.
func (r *Refresh) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the refresh finishes or ctx ends.
func (r *Refresh) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) startRefresh(ctx context.Context) *Refresh {
	r := &Refresh{done: make(chan struct{})}
	go func() {
		defer close(r.done)

		if d := g.cfg.Refresh.Timeout; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		r.err = g.RefreshVersions(ctx)
	}()
	return r
}

// RefreshVersions asks the launcher host for the latest launcher and game
// versions and stores any change. The patch list is requested with the
// launcher version as updated by the first call. A failed check does not
// skip the other one; both errors are returned.
func (g *Gateway) RefreshVersions(ctx context.Context) error {
	var errs error
	errs = multierr.Append(errs, g.checkLauncherVersion(ctx))
	errs = multierr.Append(errs, g.checkGameVersion(ctx))
	return errs
}

func (g *Gateway) checkLauncherVersion(ctx context.Context) error {
	var data struct {
		Version string `json:"Version"`
	}

	err := g.versionCall(ctx, DistribPath, nil, func(resp *Response) error {
		if err := resp.Decode(&data); err != nil {
			return err
		}
		if data.Version == "" {
			return ErrMissingVersion
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.setVersion("launcher", data.Version, func(v *protocol.VersionInfo) *string { return &v.Launcher })
	return nil
}

func (g *Gateway) checkGameVersion(ctx context.Context) error {
	var data []struct {
		Version string `json:"Version"`
	}

	query := map[string]string{
		"launcherVersion": g.Versions().Launcher,
		"branch":          LiveBranch,
	}
	err := g.versionCall(ctx, PatchListPath, query, func(resp *Response) error {
		if err := resp.Decode(&data); err != nil {
			return err
		}
		if len(data) == 0 || data[0].Version == "" {
			return ErrMissingVersion
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.setVersion("game", data[0].Version, func(v *protocol.VersionInfo) *string { return &v.Game })
	return nil
}

func (g *Gateway) versionCall(ctx context.Context, path string, query map[string]string, extract func(*Response) error) error {
	start := time.Now()
	resp, err := g.Launcher.Post(ctx, path, nil, query)
	if err == nil {
		err = extract(resp)
	}
	g.metrics.RecordVersionCheck(path, err)

	if err != nil {
		err = &VersionCheckError{Endpoint: path, Err: err}
		g.logger.Error("Version check failed",
			zap.String("endpoint", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}
	return nil
}

// setVersion stores value in the field picked by field and logs a change.
func (g *Gateway) setVersion(component, value string, field func(*protocol.VersionInfo) *string) {
	var prev string
	g.state.versions.update(func(v *protocol.VersionInfo) {
		p := field(v)
		prev = *p
		*p = value
	})
	if prev == value {
		return
	}

	g.metrics.IncVersionUpdates(component)
	g.logger.Info("Updated "+component+" version",
		zap.String("from", prev),
		zap.String("to", value))
}
