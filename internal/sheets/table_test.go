package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTable(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable([]any{"id", "date"})

	require.NoError(t, table.AppendRows(ctx, []any{1, "2026-01-01"}))
	require.NoError(t, table.AppendRows(ctx, []any{2, "2026-01-02"}))
	require.NoError(t, table.DeleteRow(ctx, 2))

	values, err := table.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"id", "date"}, {2, "2026-01-02"}}, values)
	assert.Equal(t, 3, table.Mutations())
}

func TestMemoryTable_AppendRowsIsOneMutation(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable()

	require.NoError(t, table.AppendRows(ctx, []any{"id", "date"}, []any{1, "2026-01-01"}))

	values, err := table.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"id", "date"}, {1, "2026-01-01"}}, values)
	assert.Equal(t, 1, table.Mutations())
}

func TestMemoryTable_ValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable([]any{"id"})

	values, err := table.Values(ctx)
	require.NoError(t, err)
	values[0][0] = "changed"

	again, err := table.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id", again[0][0])
}

func TestMemoryTable_UpdateRow(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable([]any{"id", "date"}, []any{1, "2026-01-01"})

	require.NoError(t, table.UpdateRow(ctx, 2, []any{1, ""}))
	values, err := table.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{1, ""}, values[1])
	assert.Equal(t, 1, table.Mutations())

	var remote *RemoteError
	assert.ErrorAs(t, table.UpdateRow(ctx, 3, []any{2}), &remote)
}

func TestMemoryTable_DeleteOutOfRange(t *testing.T) {
	table := NewMemoryTable([]any{"id"})

	for _, index := range []int{0, 2} {
		err := table.DeleteRow(context.Background(), index)
		var remote *RemoteError
		assert.ErrorAs(t, err, &remote)
	}
	assert.Zero(t, table.Mutations())
}
