package loader

import (
	"context"
	"strings"
	"testing"

	"wagewatch/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReplacer struct {
	entries   []models.WageReferenceEntry
	batchSize int
	calls     int
}

func (f *fakeReplacer) Replace(_ context.Context, entries []models.WageReferenceEntry, batchSize int) error {
	f.entries = entries
	f.batchSize = batchSize
	f.calls++
	return nil
}

const surveyHeader = "occupation,state,area,tier_label,hourly_rate,yearly_rate\n"

func TestLoadCSVParsesRows(t *testing.T) {
	csvData := surveyHeader +
		`Software Developers,TEXAS,AUSTIN-ROUND ROCK,I,"$28.85","$60,000"` + "\n" +
		`Software Developers,TEXAS,AUSTIN-ROUND ROCK,MEAN (H-2B),"$45.00","$93,600"` + "\n"

	replacer := &fakeReplacer{}
	l := New(replacer, 500, zap.NewNop())

	summary, err := l.LoadCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Loaded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, replacer.calls)
	assert.Equal(t, 500, replacer.batchSize)

	require.Len(t, replacer.entries, 2)
	assert.Equal(t, "Software Developers", replacer.entries[0].Occupation)
	assert.InDelta(t, 28.85, replacer.entries[0].HourlyRate, 0.001)
	assert.InDelta(t, 60000, replacer.entries[0].YearlyRate, 0.001)
	// MEAN rows are loaded verbatim; exclusion happens at query time
	assert.True(t, replacer.entries[1].IsMean())
}

func TestLoadCSVSkipsMalformedRows(t *testing.T) {
	csvData := surveyHeader +
		"Software Developers,TEXAS,AUSTIN,II,30.00,62400\n" +
		",TEXAS,AUSTIN,II,30.00,62400\n" + // no occupation
		"Nurses,TEXAS,AUSTIN,,31.00,64480\n" // no tier label

	replacer := &fakeReplacer{}
	l := New(replacer, 0, zap.NewNop())

	summary, err := l.LoadCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, 2, summary.Skipped)
}

func TestLoadCSVRejectsWrongHeader(t *testing.T) {
	csvData := "title,state,area,level,hourly,annual\nrow,TX,A,I,1,2\n"

	replacer := &fakeReplacer{}
	l := New(replacer, 0, zap.NewNop())

	_, err := l.LoadCSV(context.Background(), strings.NewReader(csvData))
	require.Error(t, err)
	assert.Equal(t, 0, replacer.calls)
}

func TestLoadCSVLenientRates(t *testing.T) {
	csvData := surveyHeader +
		"Software Developers,TEXAS,AUSTIN,III,n/a,\n"

	replacer := &fakeReplacer{}
	l := New(replacer, 0, zap.NewNop())

	summary, err := l.LoadCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, float64(0), replacer.entries[0].HourlyRate)
	assert.Equal(t, float64(0), replacer.entries[0].YearlyRate)
}
