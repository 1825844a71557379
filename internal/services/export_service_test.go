package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pcbuilder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportBuild(t *testing.T) {
	ctx := context.Background()
	sessions, _, _ := newSessionService()
	_, err := sessions.CreateOrUpdate(ctx, "sess-1", BuildInput{
		BuildID: "b1",
		Components: []models.BuildComponent{
			{Type: "CPU", ModelName: "Ryzen 5 5600X", Price: 199},
			{Type: "GPU", ModelName: "RTX 3060", Price: 329.5},
		},
	})
	require.NoError(t, err)

	data, err := NewExportService(sessions).ExportBuild(ctx, "sess-1", "b1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 5)
	assert.Equal(t, []string{"Type", "Model", "Price"}, rows[0])
	assert.Equal(t, []string{"CPU", "Ryzen 5 5600X", "199"}, rows[1])
	assert.Equal(t, []string{"GPU", "RTX 3060", "329.5"}, rows[2])

	total, err := f.GetCellValue(exportSheet, "C5")
	require.NoError(t, err)
	assert.Equal(t, "528.5", total)
	id, err := f.GetCellValue(exportSheet, "C6")
	require.NoError(t, err)
	assert.Equal(t, "b1", id)
	expires, err := f.GetCellValue(exportSheet, "C8")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(7*24*time.Hour).Format("2006-01-02 15:04:05 UTC"), expires)
}

func TestExportBuild_UnknownBuild(t *testing.T) {
	sessions, _, _ := newSessionService()
	_, err := NewExportService(sessions).ExportBuild(context.Background(), "sess-1", "b1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
