package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/metricbus/internal/metric"
)

func TestEncode_CarriesMetricMetadata(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_250)
	m := &metric.Metric{Name: "players", Namespace: "game", Type: metric.Counter, Description: "Players"}
	r := metric.NewRecord(at, map[string]string{"server": "lobby-1"}, map[string]float64{"": 4})

	data, err := Encode(r, m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"metric": "game_players",
		"name": "players",
		"namespace": "game",
		"type": "counter",
		"description": "Players",
		"at": 1700000000250,
		"tags": {"server": "lobby-1"},
		"fields": {"": 4}
	}`, string(data))

	env, err := Decode(data)
	require.NoError(t, err)
	back := env.Record()
	assert.True(t, at.Equal(back.At()))
	assert.Equal(t, r.Fields(), back.Fields())
	assert.Equal(t, r.Tags(), back.Tags())
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.Error(t, err)
}
