// Package testutil provides a fake EFT backend for tests.
//
// Backend is an httptest server that records every request and answers with
// zlib-compressed envelopes, the way the real backend does.
package testutil
