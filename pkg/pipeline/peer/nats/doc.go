// Package nats publishes records to NATS.
//
// NATS subject (aka topic) patterns:
//   - Case-sensitive, dot-separated, no spaces
//   - Valid chars: alphanumeric, `-` or `_`
//   - Max length: 255 bytes
//
// Records are published to `subjectPrefix.kind`, eg
//
//   - emu.pin   → pinterest post
//   - emu.geo   → geolocation
//   - emu.user  → user profile
//
// Payload: JSON object of the record fields.
//
// With jetStream enabled the stream `stream` (default `<subjectPrefix>-stream`)
// capturing `subjectPrefix.>` is created or updated on connect and every
// publish waits for the stream's ack.
package nats
