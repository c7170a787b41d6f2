/*
Package resilience provides the circuit breaker that guards each gateway handle.

# Overview

A handle whose backend keeps failing at the transport level stops sending
requests for a cool-down period instead of piling up connection attempts.
Only failures selected by Settings.IsSuccessful count; backend envelope
errors prove the backend is reachable and are usually excluded.

# Usage

	breaker := resilience.New("prod", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: resilience.TripAfter(10),
		IsSuccessful: func(err error) bool {
			return err == nil || protocol.IsProtocol(err)
		},
	})

	err := breaker.Execute(func() error {
		return send()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
