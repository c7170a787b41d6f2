// Package gateway is the request gateway to the EFT backend.
//
// A Gateway owns five client handles, one per profile:
//
//	prod, launcherProd  https://prod.escapefromtarkov.com
//	launcher            https://launcher.escapefromtarkov.com
//	trading             https://trading.escapefromtarkov.com
//	ragfair             https://ragfair.escapefromtarkov.com
//
// Every handle shares one interception policy, registered as resty hooks:
//   - before the request is written, identity headers are injected according
//     to the profile's flags (see protocol.ApplyHeaders)
//   - after the body is read, it is inflated and the envelope is unwrapped;
//     a non-zero err field fails the call with a *protocol.ProtocolError
//
// The only mutable state is the session token, the request counter and the
// version strings. They belong to the Gateway instance, so independent
// gateways never share them.
//
// Construction starts a background refresh of the launcher and game
// versions and returns without waiting for it:
//
//	gw, err := gateway.New(cfg, gateway.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer gw.Close()
//
//	gw.Session.SetSession(token)
//	resp, err := gw.Prod.Post(ctx, "client/game/profile/list", nil, nil)
//
// Callers that need the refreshed versions can wait:
//
//	err := gw.Refresh().Wait(ctx)
package gateway
