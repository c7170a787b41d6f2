// Package protocol implements the wire rules of the EFT backend.
//
// The package is free of network code so every rule can be tested in
// isolation:
//   - flags: per-profile header-injection switches
//   - headers: ordered header rules applied before each request
//   - envelope: zlib/DEFLATE inflate and JSON parse of response bodies
//   - errors: decompression and backend (envelope) failures
//
// Response bodies arrive compressed and decode to an envelope shaped
// {"err": number, "errmsg": string, "data": any}. Any err other than a
// numeric zero is reported as a *ProtocolError carrying the whole envelope.
//
// Example Usage:
//
//	env, err := protocol.Decode(body)
//	if err != nil {
//	    return err // *DecompressionError
//	}
//	if err := env.Check(); err != nil {
//	    return err // *ProtocolError
//	}
package protocol
