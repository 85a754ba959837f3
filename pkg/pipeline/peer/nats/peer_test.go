package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

func fakePeer(t *testing.T, config string, err error) (*PeerNATS, *[]published) {
	t.Helper()
	var msgs []published
	p := &PeerNATS{
		publish: func(_ context.Context, subject string, data []byte) error {
			msgs = append(msgs, published{subject: subject, data: data})
			return err
		},
	}
	require.NoError(t, p.Connect(json.RawMessage(config)))
	return p, &msgs
}

func TestPeerNATSPub(t *testing.T) {
	p, msgs := fakePeer(t, `{"subjectPrefix":"emu"}`, nil)

	for _, rec := range []record.Record{&record.Pin{Index: 1}, &record.Geo{Ind: 1}, &record.User{Ind: 1}} {
		require.NoError(t, p.Pub(context.Background(), rec))
	}

	require.Len(t, *msgs, 3)
	assert.Equal(t, "emu.pin", (*msgs)[0].subject)
	assert.Equal(t, "emu.geo", (*msgs)[1].subject)
	assert.Equal(t, "emu.user", (*msgs)[2].subject)

	var pin map[string]any
	require.NoError(t, json.Unmarshal((*msgs)[0].data, &pin))
	assert.Equal(t, float64(1), pin["index"])
}

func TestPeerNATSDefaults(t *testing.T) {
	p, _ := fakePeer(t, `{"subjectPrefix":"emu"}`, nil)
	assert.Equal(t, []string{nats.DefaultURL}, p.Config.Servers)
	assert.Equal(t, "emu-stream", p.Config.Stream)
	assert.Equal(t, []string{"emu.>"}, streamConfig(p.Config).Subjects)
}

func TestPeerNATSPubFailure(t *testing.T) {
	p, _ := fakePeer(t, `{"subjectPrefix":"emu"}`, nats.ErrConnectionClosed)
	err := p.Pub(context.Background(), &record.Pin{})
	assert.True(t, errors.Is(err, nats.ErrConnectionClosed))
}

func TestPeerNATSConnectInvalid(t *testing.T) {
	p := &PeerNATS{}
	var ce *pipeline.ConfigError
	assert.ErrorAs(t, p.Connect(json.RawMessage(`{}`)), &ce)
	assert.ErrorAs(t, p.Connect(json.RawMessage(`[`)), &ce)
}

func TestPeerNATSDisconnect(t *testing.T) {
	p, _ := fakePeer(t, `{"subjectPrefix":"emu"}`, nil)
	require.NoError(t, p.Disconnect())
	assert.ErrorIs(t, p.Pub(context.Background(), &record.Pin{}), pipeline.ErrNotConnected)
}

func TestStreamConfigEqual(t *testing.T) {
	a := *streamConfig(Config{Stream: "s", SubjectPrefix: "emu"})
	b := a
	assert.True(t, streamConfigEqual(a, b))

	b.Subjects = []string{"other.>"}
	assert.False(t, streamConfigEqual(a, b))
}
