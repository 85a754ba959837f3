package source_test

import (
	"context"
	"testing"

	"github.com/edgeflare/postemu/internal/testutil/dbtest"
	"github.com/edgeflare/postemu/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLive(t *testing.T) {
	ctx := context.Background()
	cfg := dbtest.Config(t)
	db := dbtest.Connect(ctx, t)

	d, err := source.DialectFor(cfg.Driver)
	require.NoError(t, err)

	for _, table := range []string{cfg.Tables.Pin, cfg.Tables.Geo, cfg.Tables.User} {
		row, err := source.Fetch(ctx, db, d, table, 0)
		require.NoError(t, err, table)
		assert.NotEmpty(t, row, table)
	}
}
