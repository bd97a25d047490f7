package ledger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/sheets-ledger/internal/config"
	"github.com/dvloznov/sheets-ledger/internal/sheets"
)

func TestFromConfig(t *testing.T) {
	l, err := FromConfig(&config.Config{TableBackend: config.BackendMemory, RowIdentity: config.IdentityStable}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "stable", l.Scheme().Name())

	id, err := l.Create(context.Background(), map[string]any{"type": "income"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	l, err = FromConfig(&config.Config{TableBackend: config.BackendSheets}, zerolog.Nop())
	require.NoError(t, err)
	_, err = l.List(context.Background())
	assert.ErrorIs(t, err, sheets.ErrConfiguration)

	_, err = FromConfig(&config.Config{TableBackend: "csv"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = FromConfig(&config.Config{TableBackend: config.BackendMemory, RowIdentity: "uuid"}, zerolog.Nop())
	assert.Error(t, err)
}
