// Package pipeline manages the sinks (`Peer`s) that sampled records are
// forwarded to.
//
// Supported connectors are the HTTP-fronted Kafka REST proxy and Kinesis
// ingestion endpoint, plus native Kafka, Kinesis, NATS and MQTT publishers
// and a debug logger.
//
// It defines a `Connector` interface that all `Peer` types must implement.
package pipeline
