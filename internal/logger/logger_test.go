package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	log, err := New().FromBuffer(buff).Make()
	require.NoError(t, err)

	require.Equal(t, 0, buff.Len())
	log.Info().Msg("Test")
	require.Contains(t, buff.String(), "Test")
}

func TestLevelFilters(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	log, err := New().FromBuffer(buff).Level("warn").Make()
	require.NoError(t, err)

	log.Info().Msg("hidden")
	require.Equal(t, 0, buff.Len())

	component := Component(log, "editlogs")
	component.Warn().Msg("shown")
	require.Contains(t, buff.String(), "shown")
	require.Contains(t, buff.String(), `"component":"editlogs"`)
}
