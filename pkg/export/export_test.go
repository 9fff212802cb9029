package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Age Group", "Count"},
		Rows: []map[string]string{
			{"Age Group": "15–20", "Count": "3"},
			{"Age Group": "36+", "Count": "1", "Ignored": "x"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Age Group,Count\n15–20,3\n36+,1\n", string(payload))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	payload, err := NewPDFExporter().Render(sampleDataset(), "Age Segmentation")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))

	wide := Dataset{Headers: []string{"a", "b", "c", "d", "e", "f"}}
	payload, err = NewPDFExporter().Render(wide, "")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}
