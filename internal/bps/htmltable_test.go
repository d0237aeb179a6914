package bps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stadata-x/stadatax/internal/tabular"
)

func TestParseHTMLTable(t *testing.T) {
	src := `
	<div>
	  <table class="bps">
	    <thead><tr><th>Provinsi</th><th>Luas Panen</th><th>Produksi</th></tr></thead>
	    <tbody>
	      <tr><td>ACEH</td><td>15 000</td><td>75,000</td></tr>
	      <tr><td>SUMATERA
	          UTARA</td><td>20 000</td><td>100,000</td></tr>
	    </tbody>
	  </table>
	</div>`

	r, err := ParseHTMLTable(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"Provinsi", "Luas Panen", "Produksi"}, r.ColumnNames())
	require.Equal(t, 2, r.RowCount())
	assert.Equal(t, "SUMATERA UTARA", r.Cell(1, 0), "whitespace is collapsed")
	assert.Equal(t, tabular.KindNumeric, r.Columns()[1].Kind)
	assert.Equal(t, tabular.KindNumeric, r.Columns()[2].Kind)
}

func TestParseHTMLTable_NoHeaderRow(t *testing.T) {
	src := `<table><tr><td>a</td><td>1</td></tr><tr><td>b</td><td>2</td></tr></table>`

	r, err := ParseHTMLTable(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"Col_1", "Col_2"}, r.ColumnNames())
	assert.Equal(t, 2, r.RowCount())
}

func TestParseHTMLTable_RaggedRows(t *testing.T) {
	src := `<table>
	  <tr><th>a</th><th>b</th></tr>
	  <tr><td>1</td></tr>
	  <tr><td>2</td><td>3</td><td>extra</td></tr>
	</table>`

	r, err := ParseHTMLTable(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", ""}, r.Row(0), "short rows are padded")
	assert.Equal(t, []string{"2", "3"}, r.Row(1), "long rows are truncated")
}

func TestParseHTMLTable_NoTable(t *testing.T) {
	_, err := ParseHTMLTable(strings.NewReader("<p>nothing here</p>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no <table>")
}
