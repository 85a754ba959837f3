package record

import (
	"encoding/json"
	"fmt"
)

// KafkaRecord is a single entry of a Kafka REST proxy produce request.
type KafkaRecord struct {
	Value map[string]any `json:"value"`
}

// KafkaRequest is the body of a Kafka REST proxy v2 JSON produce request.
type KafkaRequest struct {
	Records []KafkaRecord `json:"records"`
}

// KinesisRequest is the body accepted by an API-gateway Kinesis PutRecord proxy.
type KinesisRequest struct {
	StreamName   string         `json:"StreamName"`
	Data         map[string]any `json:"Data"`
	PartitionKey string         `json:"PartitionKey"`
}

// KafkaEnvelope wraps rec into a single-record Kafka REST produce request.
func KafkaEnvelope(rec Record) ([]byte, error) {
	body, err := json.Marshal(KafkaRequest{
		Records: []KafkaRecord{{Value: rec.Values(KafkaTimeLayout)}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal kafka %s envelope: %w", rec.Kind(), err)
	}
	return body, nil
}

// KinesisEnvelope wraps rec into a PutRecord request for stream.
func KinesisEnvelope(stream, partitionKey string, rec Record) ([]byte, error) {
	body, err := json.Marshal(KinesisRequest{
		StreamName:   stream,
		Data:         rec.Values(KinesisTimeLayout),
		PartitionKey: partitionKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal kinesis %s envelope: %w", rec.Kind(), err)
	}
	return body, nil
}
