package calendar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/internal/domain/calendar"
)

func TestNewCatalog_SortsAndDropsDuplicates(t *testing.T) {
	c := NewCatalog([]calendar.Instrument{
		{Key: "MSFT.US", Title: "Microsoft"},
		{Key: "AAPL.US", Title: "Apple"},
		{Key: " "},
		{Key: "MSFT.US", Title: "duplicate"},
	})

	require.Equal(t, 2, c.Len())
	insts := c.Instruments()
	assert.Equal(t, "AAPL.US", insts[0].Key)
	assert.Equal(t, "MSFT.US", insts[1].Key)
	assert.Equal(t, "Microsoft", insts[1].Title, "first occurrence wins")

	inst, ok := c.Lookup("MSFT.US")
	assert.True(t, ok)
	assert.Equal(t, "Microsoft", inst.Title)
	_, ok = c.Lookup("TSLA.US")
	assert.False(t, ok)
}

func TestCatalog_Chunks(t *testing.T) {
	var insts []calendar.Instrument
	for _, k := range []string{"E", "B", "A", "D", "C"} {
		insts = append(insts, calendar.Instrument{Key: k})
	}
	c := NewCatalog(insts)

	var got [][]string
	var indexes []int
	for i, chunk := range c.Chunks(2) {
		indexes = append(indexes, i)
		var keys []string
		for _, inst := range chunk {
			keys = append(keys, inst.Key)
		}
		got = append(got, keys)
	}

	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}, {"E"}}, got)
	assert.Equal(t, []int{0, 1, 2}, indexes)
	assert.Equal(t, 3, c.ChunkCount(2))

	// stopping early is honoured
	seen := 0
	for range c.Chunks(1) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)

	// non-positive size yields a single batch
	batches := 0
	for _, chunk := range c.Chunks(0) {
		batches++
		assert.Len(t, chunk, 5)
	}
	assert.Equal(t, 1, batches)
}

func TestCatalog_ChunksAreIsolated(t *testing.T) {
	c := NewCatalog([]calendar.Instrument{{Key: "A"}, {Key: "B"}, {Key: "C"}})
	for _, chunk := range c.Chunks(2) {
		_ = append(chunk, calendar.Instrument{Key: "X"})
	}
	insts := c.Instruments()
	assert.Equal(t, "C", insts[2].Key)
}

func TestLoadCatalogs_Default(t *testing.T) {
	catalogs, err := LoadCatalogs("")
	require.NoError(t, err)

	assert.Greater(t, catalogs.Indicators.Len(), 10)
	assert.Greater(t, catalogs.Earnings.Len(), 10)
	assert.Same(t, catalogs.Earnings, catalogs.For(calendar.KindEarningsReport))
	assert.Same(t, catalogs.Indicators, catalogs.For(calendar.KindIndicatorRelease))

	for _, inst := range catalogs.Earnings.Instruments() {
		assert.True(t, strings.HasSuffix(inst.Key, ".US"), inst.Key)
	}

	cpi, ok := catalogs.Indicators.Lookup("CPI")
	require.True(t, ok)
	assert.Equal(t, "CPIAUCSL", cpi.Alias("fred"))
	assert.Equal(t, "CPI", cpi.Alias("unknown"))
}

func TestParseCatalogs_Invalid(t *testing.T) {
	_, err := ParseCatalogs([]byte("indicators: [unterminated"))
	assert.Error(t, err)
}
