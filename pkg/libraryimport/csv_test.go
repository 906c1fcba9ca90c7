package libraryimport

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"Ave. Rating", "averating"},
		{"Series Name", "seriesname"},
		{"ASIN", "asin"},
		{"\ufeffTitle", "title"},
		{"Rec_Id", "rec_id"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeHeader(tt.input))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	format, err := DetectFormat([]byte("Rec_Id,Rec_Title,Item_Id\n1,Dune,2\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatBackup, format)

	format, err = DetectFormat([]byte(mistbornCSV))
	require.NoError(t, err)
	assert.Equal(t, FormatLibrary, format)

	format, err = DetectFormat([]byte{})
	require.NoError(t, err)
	assert.Equal(t, FormatLibrary, format)
}

func TestReadRows(t *testing.T) {
	t.Parallel()

	data := "title,AUTHOR,Unknown Column,Ave. Rating\n" +
		"  Dune ,Frank Herbert,whatever,4.3\n" +
		",,,\n" +
		"Emma,Jane Austen\n"

	rows, err := ReadRows(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Dune", rows[0].Title)
	assert.Equal(t, "Frank Herbert", rows[0].Author)
	assert.Equal(t, "4.3", rows[0].AveRating)
	assert.Equal(t, "Emma", rows[1].Title)
	assert.Empty(t, rows[1].AveRating)
}

func TestReadRows_StrayQuotes(t *testing.T) {
	t.Parallel()

	data := "Title,Author\n" +
		"The \"Lost\" Metal,Brandon Sanderson\n" +
		"Emma,Jane Austen\n"

	rows, err := ReadRows(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, `The "Lost" Metal`, rows[0].Title)
	assert.Equal(t, "Emma", rows[1].Title)
}
