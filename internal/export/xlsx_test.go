package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/resource"
)

func TestXLSXOperators(t *testing.T) {
	seq := int64(1)
	rows := []model.Operator{
		{ID: 7, SeqID: &seq, Name: "Joana Lima", PIN: "1234", Status: model.StatusActive, CreatedAt: time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)},
		{ID: 9, Name: "Carlos", PIN: "0042", Status: model.StatusInactive},
	}

	data, err := XLSX("Operators", resource.Operator.View, rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Operators"}, f.GetSheetList())

	got, err := f.GetRows("Operators")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"ID", "Name", "PIN", "Status", "Created"}, got[0])
	assert.Equal(t, []string{"7", "Joana Lima", "1234", "active"}, got[1][:4])
	assert.NotEmpty(t, got[1][4])
	// PINs keep their leading zeros as text.
	assert.Equal(t, "0042", got[2][2])
	assert.Len(t, got[2], 4, "zero creation time leaves the cell empty")
}
