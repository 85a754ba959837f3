// Package kafka produces records straight to Kafka brokers with a sarama
// SyncProducer, bypassing any REST proxy.
//
// Topic naming follows the REST sink: `[topicPrefix].[kind]`, eg
//
//   - emu.pin  → pinterest posts
//   - emu.geo  → geolocation of the posting user
//   - emu.user → user profile
//
// Message Format:
//   - Key: unset; the broker spreads records over partitions
//   - Value: JSON object of the record fields, timestamps as `2006-01-02 15:04:05`
//
// SASL/SCRAM (sha256, sha512) and TLS are configured per peer. When
// createTopics is set the three topics are created on connect if missing.
package kafka
