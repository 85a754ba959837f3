package postemu

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edgeflare/postemu/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postemu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  user: emu\n  password: hunter2\n  database: pinterest_data\nsampler:\n  seed: 3\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", path, "--log-level", "error"))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestOffsetsCommand(t *testing.T) {
	got := strings.Fields(execute(t, "offsets", "-n", "4"))

	want := make([]string, 0, 4)
	for _, off := range source.Offsets(source.SamplerOptions{Seed: 3}, 4) {
		want = append(want, fmt.Sprint(off))
	}
	assert.Equal(t, want, got)
}

func TestDSNCommand(t *testing.T) {
	out := execute(t, "dsn")
	assert.Contains(t, out, "emu:****@tcp(localhost:3306)/pinterest_data")
	assert.NotContains(t, out, "hunter2")
}

func TestConnectorsCommand(t *testing.T) {
	got := strings.Fields(execute(t, "connectors"))
	assert.Equal(t, []string{"debug", "kafka", "kafkarest", "kinesis", "kinesisrest", "mqtt", "nats"}, got)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("warn")
	assert.NoError(t, err)

	_, err = newLogger("loud")
	assert.Error(t, err)
}
