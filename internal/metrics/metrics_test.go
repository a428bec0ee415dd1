package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinepos/internal/metrics"
)

func TestMetrics_CountsAndWrites(t *testing.T) {
	m := metrics.New()
	m.CacheHit("Butaca")
	m.CacheHit("Butaca")
	m.CacheMiss("Complemento")
	m.SaleCreated(decimal.RequireFromString("11.5"))
	m.SaleFailed("stock")
	m.StockMoved(-3)

	n, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	path := filepath.Join(t.TempDir(), "cinepos.prom")
	require.NoError(t, m.WriteFile(path))
	var b []byte
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.True(t, strings.Contains(out, `cinepos_cache_hits_total{kind="Butaca"} 2`), out)
	assert.True(t, strings.Contains(out, `cinepos_revenue_total 11.5`), out)
	assert.True(t, strings.Contains(out, `cinepos_sales_total{outcome="failed_stock"} 1`), out)
	assert.True(t, strings.Contains(out, `cinepos_concession_units_total{direction="out"} 3`), out)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.CacheHit("Butaca")
	m.SaleCreated(decimal.NewFromInt(1))
	assert.NoError(t, m.WriteFile("ignored"))
}
