// Package mqtt publishes records to an MQTT broker.
//
// topic: [topicPrefix]/[kind]
// payload: JSON object of the record fields
//
// Example:
//
//	mosquitto_sub -t 'postemu/#'
//
// receives postemu/pin, postemu/geo and postemu/user messages for
// topicPrefix "postemu". QoS and the retained flag are configurable per peer.
package mqtt
