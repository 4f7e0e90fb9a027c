// Package pnba provides phone-number-based authentication (PNBA) against
// Telegram for Go host applications.
//
// PNBA separates the login handshake into discrete, restartable steps: send a
// one-time code to a phone number, validate the code, and optionally validate
// a second-factor password. Each step is an independent operation that opens
// its own short-lived connection to Telegram, so the handshake can span
// separate process invocations.
//
// # Architecture
//
// Protocol: The host-facing contract. A fixed set of five operations
// (send-code, validate-code, validate-password, invalidate-session,
// send-message) implemented by the Telegram adapter in the telegram
// subpackage.
//
// Session Registry: Small on-disk bookkeeping that carries state between
// steps. Each phone number maps to a directory named by the md5 of the
// number, holding the opaque Telegram session artifact and a registry.json
// record with the server-issued phone_code_hash. The stores package provides
// the file-system registry; stores/gorm provides a database-backed
// alternative.
//
// Credentials: The Telegram API identity (api_id, api_hash) loaded once from
// a JSON file referenced by the module configuration.
//
// # Basic Usage
//
// Load configuration and credentials, then construct the adapter:
//
//	cfg, err := pnba.LoadConfig("config.yaml")
//	if err != nil { ... }
//	creds, err := pnba.LoadCredentials(cfg)
//	if err != nil { ... }
//
//	adapter := telegram.NewAdapter(creds, cfg.Sessions.Dir)
//
//	result, err := adapter.SendAuthorizationCode(ctx, "+15551234567")
//	// later, possibly in another process:
//	info, err := adapter.ValidateCodeAndFetchUserInfo(ctx, "+15551234567", code)
//
// # HTTP Surface
//
// The API type exposes the protocol over HTTP for host frameworks that embed
// the adapter as a service. A successful validation mints a signed access
// token which guards the message-sending endpoint.
//
// # Concurrency
//
// Operations are not safe for concurrent invocation with the same phone
// number: the file-system registry has no locking, so two in-flight
// handshakes for one number race (last writer wins). The gorm-backed record
// store serializes updates transactionally; the session directory itself is
// still unguarded.
//
// # Testing
//
// The adapter accepts an injectable client constructor, so handshake logic
// can be tested without network access. HTTP handlers are tested with
// httptest; stores use temporary directories for isolation.
package pnba
