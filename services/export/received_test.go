package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReceivedWorkbook(t *testing.T) {
	storage := 128
	color := "Blue"
	rows := []ReceivedRow{
		{IMEI: "353282110000011", Manufacturer: "Apple", ModelName: "iPhone 13", ModelNo: "A2633", StorageGB: &storage, Color: &color, Grade: "A", Status: "in_stock", ReceivedAt: time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{IMEI: "353282110000029", Manufacturer: "Apple", ModelName: "iPhone 13", Status: "in_stock"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReceivedWorkbook(&buf, "PO-20240101-001", rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Received"}, f.GetSheetList())

	got, err := f.GetRows("Received")
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, []string{"Purchase Order", "PO-20240101-001"}, got[0])
	assert.Equal(t, []string{"Devices", "2"}, got[1])
	assert.Equal(t, receivedHeader, got[3])
	assert.Equal(t, []string{"353282110000011", "Apple", "iPhone 13", "A2633", "128", "Blue", "A", "in_stock", "2024-01-02 10:30:00"}, got[4])
	assert.Equal(t, "353282110000029", got[5][0])
	assert.Equal(t, "", got[5][4])
}
