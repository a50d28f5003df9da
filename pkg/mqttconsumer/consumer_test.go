package mqttconsumer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTopicExtractsFlightPartSeries(t *testing.T) {
	flightID, partIndex, seriesIndex, err := parseTopic("flight-1/m/2/3")
	require.NoError(t, err)
	require.Equal(t, "flight-1", flightID)
	require.Equal(t, 2, partIndex)
	require.Equal(t, 3, seriesIndex)
}

func TestParseTopicRejectsWrongSegmentCount(t *testing.T) {
	_, _, _, err := parseTopic("flight-1/m/2")
	require.Error(t, err)
}

func TestParseTopicRejectsMissingMarker(t *testing.T) {
	_, _, _, err := parseTopic("flight-1/x/2/3")
	require.Error(t, err)
}

func TestParseTopicRejectsEmptyFlightID(t *testing.T) {
	_, _, _, err := parseTopic("/m/2/3")
	require.Error(t, err)
}

func TestParseTopicRejectsNonIntegerIndices(t *testing.T) {
	_, _, _, err := parseTopic("flight-1/m/a/3")
	require.Error(t, err)

	_, _, _, err = parseTopic("flight-1/m/2/b")
	require.Error(t, err)
}
