package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famreport/internal/adapters"
	"famreport/internal/core"
	"famreport/internal/services"
	"famreport/internal/storage"
	"famreport/internal/storage/memory"
)

func run(t *testing.T, store *memory.Store, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	open := func(ctx context.Context) (*services.ReportSession, error) {
		return services.OpenSession(ctx, adapters.NewStoreAdapter(store), nil, nil), nil
	}
	cmd := NewRootCmd(open, WithOutput(&out))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func stored(t *testing.T, store *memory.Store) core.Report {
	t.Helper()
	r, err := adapters.NewStoreAdapter(store).LoadReport(context.Background())
	require.NoError(t, err)
	return r
}

func TestSummaryDefaults(t *testing.T) {
	store := memory.New()

	out, err := run(t, store, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "¥ 246,000.00")
	assert.Contains(t, out, "¥ 140,400.00")

	out, err = run(t, store, "summary", "--view", "day")
	require.NoError(t, err)
	assert.Contains(t, out, "¥ 363,000.00")

	_, err = run(t, store, "summary", "--view", "day", "--period", "2025")
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)

	_, err = run(t, store, "summary", "--view", "week")
	assert.ErrorIs(t, err, core.ErrInvalidView)
}

func TestShowRendersTree(t *testing.T) {
	out, err := run(t, memory.New(), "show", "--view", "month", "--period", "2025-01")
	require.NoError(t, err)
	assert.Contains(t, out, "month 2025-01")
	assert.Contains(t, out, "[income]")
	assert.Contains(t, out, "工资收入")
	assert.Contains(t, out, "20,000.00")
	assert.NotContains(t, out, "[asset]")
	assert.Contains(t, out, "养老保险总缴纳额")
}

func TestAddPeriodPersists(t *testing.T) {
	store := memory.New()

	out, err := run(t, store, "add-year", "2026")
	require.NoError(t, err)
	assert.Contains(t, out, "added year 2026")
	assert.Contains(t, stored(t, store).Years(), "2026")

	_, err = run(t, store, "add-year", "2026")
	assert.ErrorIs(t, err, core.ErrDuplicatePeriod)

	_, err = run(t, store, "add-month", "2026-13")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestItemCommands(t *testing.T) {
	store := memory.New()

	out, err := run(t, store, "item", "add", "expense", "Utilities")
	require.NoError(t, err)
	var id string
	for _, it := range mustGroup(t, stored(t, store), "expense").Items {
		if it.Name == "Utilities" {
			id = it.ID
		}
	}
	require.NotEmpty(t, id)
	assert.Contains(t, out, id)

	_, err = run(t, store, "item", "set-value", "expense", id, "2025", "1,200.50")
	require.NoError(t, err)
	assert.Equal(t, 106800.5, stored(t, store).Summary(core.ViewYear, "2025").Expense)

	_, err = run(t, store, "item", "set-quantity", "expense", id, "2025", "3", "--unit-price", "100")
	require.NoError(t, err)
	it, _ := mustGroup(t, stored(t, store), "expense").FindItem(id)
	assert.Equal(t, 300.0, it.Values["2025"])

	_, err = run(t, store, "item", "add", "expense", "Water", "--parent", id)
	require.NoError(t, err)
	_, err = run(t, store, "item", "set-value", "expense", id, "2025", "5")
	assert.ErrorIs(t, err, core.ErrAggregateItem)

	_, err = run(t, store, "item", "rename", "expense", id, " ")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = run(t, store, "item", "note", "expense", id, "bills")
	require.NoError(t, err)
	it, _ = mustGroup(t, stored(t, store), "expense").FindItem(id)
	assert.Equal(t, "bills", it.Note)

	_, err = run(t, store, "item", "delete", "expense", id)
	require.NoError(t, err)
	_, ok := mustGroup(t, stored(t, store), "expense").FindItem(id)
	assert.False(t, ok)

	_, err = run(t, store, "item", "add", "nope", "Ghost")
	assert.Error(t, err)
}

func TestNoteAndSnapshotCommands(t *testing.T) {
	store := memory.New()

	_, err := run(t, store, "note", "add", "Bank", "ICBC")
	require.NoError(t, err)
	notes := stored(t, store).Notes()
	require.Len(t, notes, 2)
	id := notes[1].ID

	_, err = run(t, store, "note", "set", id, "Bank", "CMB")
	require.NoError(t, err)
	out, err := run(t, store, "note", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bank: CMB")

	_, err = run(t, store, "note", "delete", id)
	require.NoError(t, err)
	assert.Len(t, stored(t, store).Notes(), 1)

	out, err = run(t, store, "snapshot", "take", "--note", "new year")
	require.NoError(t, err)
	assert.Contains(t, out, "¥ 363,000.00")
	snaps := stored(t, store).Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "2025-01-01", snaps[0].Date)

	_, err = run(t, store, "snapshot", "take", "2025-1-1")
	assert.ErrorIs(t, err, core.ErrInvalidDay)

	_, err = run(t, store, "snapshot", "delete", snaps[0].ID)
	require.NoError(t, err)
	out, err = run(t, store, "snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no snapshots")
}

func TestMigrateResetDelete(t *testing.T) {
	store := memory.New()
	file := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `{"years":["2023"],"groups":[{"id":"g1","type":"INCOME","name":"Pay","items":[{"id":"p","name":"Pay","values":{"2023":"5000"}}]}]}`
	require.NoError(t, os.WriteFile(file, []byte(legacy), 0o600))

	out, err := run(t, store, "migrate", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported")
	assert.Equal(t, 5000.0, stored(t, store).Summary(core.ViewYear, "2023").Income)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2]`), 0o600))
	_, err = run(t, store, "migrate", bad)
	assert.ErrorIs(t, err, core.ErrMalformedPayload)

	_, err = run(t, store, "reset")
	require.NoError(t, err)
	assert.Equal(t, 246000.0, stored(t, store).Summary(core.ViewYear, "2025").Income)

	_, err = run(t, store, "delete")
	assert.Error(t, err)

	_, err = run(t, store, "delete", "--yes")
	require.NoError(t, err)
	// the template is saved back locally after the delete
	r := stored(t, store)
	assert.Equal(t, core.Default().Years(), r.Years())
}

func TestOpenFailure(t *testing.T) {
	open := func(context.Context) (*services.ReportSession, error) {
		return nil, storage.ErrNoReport
	}
	cmd := NewRootCmd(open, WithOutput(&bytes.Buffer{}))
	cmd.SetArgs([]string{"summary"})
	err := cmd.Execute()
	assert.True(t, errors.Is(err, storage.ErrNoReport))
}

func TestExportPDF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.pdf")
	msg, err := run(t, memory.New(), "export", "pdf", "--view", "day", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, msg, "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func mustGroup(t *testing.T, r core.Report, id string) core.Group {
	t.Helper()
	g, ok := r.Group(id)
	require.True(t, ok, "group %s", id)
	return g
}
