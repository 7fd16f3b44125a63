package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Report {
	return Report{
		Title:  "PayPal <> Shopify Pending Orders sync",
		Kind:   "pending",
		Header: []string{"Name", "Order ID", "Amount"},
		Rows: [][]string{
			{"#1001", "gid://shopify/Order/1", "42.50"},
			{"#1002", "gid://shopify/Order/2", "10, with comma"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().WriteCSV(&buf))

	assert.Equal(t,
		"Name,Order ID,Amount\n#1001,gid://shopify/Order/1,42.50\n#1002,gid://shopify/Order/2,\"10, with comma\"\n",
		buf.String())
}

func TestValidateRejectsRaggedRows(t *testing.T) {
	r := sample()
	r.Rows = append(r.Rows, []string{"#1003"})

	assert.Error(t, r.Validate())
	assert.Error(t, r.WriteCSV(&bytes.Buffer{}))
}

func TestSaveCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	now := time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)

	path, err := sample().SaveCSV(dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-08-10_pending-report.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Name,Order ID,Amount\n"))
}

func TestFileNameDefaultsKind(t *testing.T) {
	r := Report{}
	assert.Equal(t, "2024-08-10_daily-report.csv", r.FileName(time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)))
}

func TestTable(t *testing.T) {
	out := sample().Table()

	for _, want := range []string{"Name", "Order ID", "#1001", "gid://shopify/Order/2", "42.50"} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasPrefix(out, "┌"))
}
