package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows    []Row
	rates   map[string]float64
	listErr error
	rateErr error
	lookups []string
	closed  bool
}

func (f *fakeStore) ListProviders(context.Context) ([]Row, error) {
	return f.rows, f.listErr
}

func (f *fakeStore) LookupRate(_ context.Context, tin, procCode string) (*float64, error) {
	f.lookups = append(f.lookups, tin+"/"+procCode)
	if f.rateErr != nil {
		return nil, f.rateErr
	}
	if r, ok := f.rates[tin+"/"+procCode]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeStore) Counts(context.Context) (int, int, error) { return len(f.rows), len(f.rows), nil }

func (f *fakeStore) Columns(context.Context) ([]string, error) { return RequiredColumns, nil }

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func opener(st *fakeStore) StoreOpener {
	return func(context.Context) (Store, error) { return st, nil }
}

func row(key, tin, lat string) Row {
	return Row{PrimaryKey: key, DisplayName: key, TIN: tin, Lat: lat, Lon: "-82.4572"}
}

func TestMatch_OrdersByDistance(t *testing.T) {
	st := &fakeStore{rows: []Row{
		row("c", "", "28.0931"),
		row("a", "", "27.9666"),
		row("b", "", "28.0262"),
	}}

	got, err := NewMatcher(opener(st)).Match(context.Background(), patientLat, patientLon, "", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var distances []float64
	for _, p := range got {
		distances = append(distances, p.DistanceMiles)
	}
	assert.Equal(t, []float64{1.1, 5.22, 9.84}, distances)
	assert.True(t, st.closed, "store is closed after each call")
}

func TestMatch_Limit(t *testing.T) {
	st := &fakeStore{rows: []Row{
		row("c", "", "28.0931"),
		row("a", "", "27.9666"),
		row("b", "", "28.0262"),
	}}
	m := NewMatcher(opener(st), WithDefaultLimit(2))

	got, err := m.Match(context.Background(), patientLat, patientLon, "", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].PrimaryKey)

	got, err = m.Match(context.Background(), patientLat, patientLon, "", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2, "non-positive limit falls back to the default")
}

func TestMatch_SkipsUnparseableRows(t *testing.T) {
	st := &fakeStore{rows: []Row{
		row("ok", "", "27.9666"),
		{PrimaryKey: "bad-lat", Lat: "north", Lon: "-82.1"},
		{PrimaryKey: "bad-lon", Lat: "27.9", Lon: "west"},
	}}

	got, err := NewMatcher(opener(st)).Match(context.Background(), patientLat, patientLon, "", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].PrimaryKey)
}

func TestMatch_RateJoin(t *testing.T) {
	st := &fakeStore{
		rows: []Row{
			row("clean", "12-345 6789", "27.9666"),
			row("unclean", "123", "28.0262"),
			row("norate", "987654321", "28.0931"),
		},
		rates: map[string]float64{"123456789/A4550": 99.5},
	}

	got, err := NewMatcher(opener(st)).Match(context.Background(), patientLat, patientLon, " a4550 ", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.NotNil(t, got[0].Rate)
	assert.Equal(t, 99.5, *got[0].Rate)
	assert.Nil(t, got[1].Rate)
	assert.Nil(t, got[2].Rate)
	assert.Equal(t, []string{"123456789/A4550", "987654321/A4550"}, st.lookups,
		"lookups use the cleaned TIN and normalized code, and skip unclean TINs")
}

func TestMatch_NoProcCodeSkipsRates(t *testing.T) {
	st := &fakeStore{rows: []Row{row("clean", "123456789", "27.9666")}}

	got, err := NewMatcher(opener(st)).Match(context.Background(), patientLat, patientLon, "  ", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Rate)
	assert.Empty(t, st.lookups)
}

func TestMatch_RateErrorLeavesRateNil(t *testing.T) {
	st := &fakeStore{
		rows:    []Row{row("clean", "123456789", "27.9666")},
		rateErr: errors.New("ppo locked"),
	}

	got, err := NewMatcher(opener(st)).Match(context.Background(), patientLat, patientLon, "72148", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Rate)
}

func TestMatch_StoreErrors(t *testing.T) {
	failOpen := func(context.Context) (Store, error) { return nil, errors.New("no such file") }
	_, err := NewMatcher(failOpen).Match(context.Background(), patientLat, patientLon, "", 3)
	assert.ErrorContains(t, err, "provider: open store")

	st := &fakeStore{listErr: errors.New("no such table: providers")}
	_, err = NewMatcher(opener(st)).Match(context.Background(), patientLat, patientLon, "", 3)
	assert.ErrorContains(t, err, "provider: load providers")
	assert.True(t, st.closed)
}

func TestMatch_EmptyStore(t *testing.T) {
	got, err := NewMatcher(opener(&fakeStore{})).Match(context.Background(), patientLat, patientLon, "", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
