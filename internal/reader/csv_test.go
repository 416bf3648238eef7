package reader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := "Id,First Name,Last Name\n" +
		"1, Ada ,Lovelace\n" +
		"2,Grace,Hopper\n"

	records, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Ada", records[0]["First Name"], "cells are trimmed")
	assert.Equal(t, "Hopper", records[1]["Last Name"])
}

func TestReadCSV_VariableRowLength(t *testing.T) {
	input := "Id,First Name,Last Name\n" +
		"1,Ada\n" +
		"2,Grace,Hopper,extra\n"

	records, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[0]["Last Name"], "short rows padded with empty cells")
	assert.Len(t, records[1], 3, "extra cells beyond header dropped")
}

func TestReadCSV_EmptyHeaderColumnSkipped(t *testing.T) {
	input := "Id,,Last Name\n1,junk,Lovelace\n"

	records, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0], 2)
	assert.Equal(t, "Lovelace", records[0]["Last Name"])
}

func TestReadCSV_MaxRecords(t *testing.T) {
	input := "Id\n1\n2\n3\n4\n"

	records, err := ReadCSV(strings.NewReader(input), CSVOptions{MaxRecords: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadCSV_CustomDelimiter(t *testing.T) {
	input := "Id;First Name\n1;Ada\n"

	records, err := ReadCSV(strings.NewReader(input), CSVOptions{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ada", records[0]["First Name"])
}

func TestReadCSV_EmptyFile(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	records, err := ReadCSV(strings.NewReader("Id,First Name\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
