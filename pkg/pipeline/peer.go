package pipeline

// Peer is a record destination with an associated connector (ie Kafka REST, Kinesis, NATS, etc).
type Peer struct {
	connector     Connector
	Name          string `mapstructure:"name"`
	ConnectorName string `mapstructure:"connector"`
	// Config contains the connection config of the underlying connector
	// eg endpoints of the Kafka REST proxy, github.com/IBM/sarama settings etc
	Config map[string]any `mapstructure:"config"`
}

// Connector returns the connected instance backing the peer, or nil before
// Manager.Init.
func (p *Peer) Connector() Connector {
	return p.connector
}

// Config lists the configured sinks.
type Config struct {
	Peers []Peer `mapstructure:"peers"`
}

func (c *Config) GetPeer(peerName string) *Peer {
	for i := range c.Peers {
		if c.Peers[i].Name == peerName {
			return &c.Peers[i]
		}
	}
	return nil
}
