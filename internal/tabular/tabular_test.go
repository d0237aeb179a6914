package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RowWidthMismatch(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]string{{"1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0")
}

func TestNew_UnnamedColumns(t *testing.T) {
	r, err := New([]string{"Provinsi", ""}, [][]string{{"ACEH", "x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Provinsi", "Unnamed_1"}, r.ColumnNames())
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want ColumnKind
	}{
		{
			name: "integers",
			rows: [][]string{{"15000"}, {"20000"}, {"12000"}},
			want: KindNumeric,
		},
		{
			name: "floats with grouping",
			rows: [][]string{{"1,234,567"}, {"12.5"}},
			want: KindNumeric,
		},
		{
			name: "mixed text",
			rows: [][]string{{"123"}, {"ACEH"}},
			want: KindText,
		},
		{
			name: "empty cells ignored",
			rows: [][]string{{""}, {"42"}},
			want: KindNumeric,
		},
		{
			name: "all empty is text",
			rows: [][]string{{""}, {""}},
			want: KindText,
		},
		{
			name: "no rows is text",
			rows: nil,
			want: KindText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New([]string{"v"}, tt.rows)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Columns()[0].Kind)
		})
	}
}

func TestResult_Immutable(t *testing.T) {
	rows := [][]string{{"ACEH", "15000"}}
	r, err := New([]string{"Provinsi", "Luas_Panen"}, rows)
	require.NoError(t, err)

	// Mutating the input or any accessor result must not leak into r.
	rows[0][0] = "changed"
	got := r.Row(0)
	got[1] = "changed"

	assert.Equal(t, "ACEH", r.Cell(0, 0))
	assert.Equal(t, "15000", r.Cell(0, 1))
}

func TestResult_MixedColumns(t *testing.T) {
	r, err := New(
		[]string{"Provinsi", "Luas_Panen", "Produksi", "Tahun"},
		[][]string{
			{"ACEH", "15000", "75000", "2023"},
			{"SUMATERA UTARA", "20000", "100000", "2023"},
			{"SUMATERA BARAT", "12000", "60000", "2023"},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, r.RowCount())
	cols := r.Columns()
	assert.Equal(t, KindText, cols[0].Kind)
	assert.Equal(t, KindNumeric, cols[1].Kind)
	assert.Equal(t, KindNumeric, cols[2].Kind)
	assert.Equal(t, KindNumeric, cols[3].Kind)
}
