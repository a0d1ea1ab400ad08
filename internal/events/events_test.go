package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_KeyedByMatch(t *testing.T) {
	at := time.Date(2026, 7, 19, 20, 0, 0, 0, time.UTC)
	e := MatchSettled{
		MatchID:    "m-final",
		Resolution: "payout",
		WinnerTeam: "IND",
		BetCount:   5,
		Winners:    3,
		Pool:       500,
		Share:      166,
		Remainder:  2,
		Entries:    3,
		SettledAt:  at,
	}

	msg, err := Message(e)
	require.NoError(t, err)
	assert.Equal(t, []byte("m-final"), msg.Key)
	assert.Equal(t, at, msg.Time)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "IND", decoded["winnerTeam"])
	assert.EqualValues(t, 2, decoded["remainder"])
}

func TestMessage_RefundOmitsWinner(t *testing.T) {
	msg, err := Message(MatchSettled{MatchID: "m1", Resolution: "refund"})
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), "winnerTeam")
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "match.settled")
	assert.Equal(t, "match.settled", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishMatchSettled(context.Background(), MatchSettled{MatchID: "m1"}))
	assert.NoError(t, p.Close())
}
