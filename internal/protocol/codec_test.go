package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/werewolf/internal/model"
)

func TestEncodeProducesTaggedEnvelope(t *testing.T) {
	b, err := Encode(AnnounceVote{Voter: 1, Target: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"announce_vote","p":{"voter":1,"target":2}}`, string(b))
}

func TestDecodeRoundTripsRosterSnapshot(t *testing.T) {
	want := RosterSnapshot{Players: []RosterEntry{{ID: 0, Name: "Alice"}, {ID: 1, Name: "Bob"}}}
	b, err := Encode(want)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeAcceptsMissingPayloadForFieldlessKinds(t *testing.T) {
	got, err := Decode([]byte(`{"t":"received"}`))
	require.NoError(t, err)
	assert.Equal(t, Received{}, got)
}

func TestDecodeChoiceForPlayerZero(t *testing.T) {
	got, err := Decode([]byte(`{"t":"kill","p":{"target":0}}`))
	require.NoError(t, err)
	assert.Equal(t, Kill{Target: 0}, got)

	b, err := Encode(Vote{Target: 0})
	require.NoError(t, err)
	got, err = Decode(b)
	require.NoError(t, err)
	assert.Equal(t, Vote{Target: 0}, got)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		is    error
	}{
		{name: "empty frame", frame: ``, is: ErrMalformed},
		{name: "not json", frame: `vote 3`, is: ErrMalformed},
		{name: "missing kind", frame: `{"p":{}}`, is: ErrMalformed},
		{name: "unknown kind", frame: `{"t":"chat","p":{}}`, is: ErrUnknownKind},
		{name: "bad payload type", frame: `{"t":"vote","p":{"target":"bob"}}`, is: ErrMalformed},
		{name: "negative id", frame: `{"t":"kill","p":{"target":-1}}`, is: ErrMalformed},
		{name: "vote without payload", frame: `{"t":"vote"}`, is: ErrMalformed},
		{name: "kill without target", frame: `{"t":"kill","p":{"targt":5}}`, is: ErrMalformed},
		{name: "null target", frame: `{"t":"vote","p":{"target":null}}`, is: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestUnknownKindIsMalformed(t *testing.T) {
	assert.ErrorIs(t, ErrUnknownKind, ErrMalformed)
}

func TestExpect(t *testing.T) {
	vote, err := Expect[Vote](Vote{Target: 3})
	require.NoError(t, err)
	assert.Equal(t, model.PlayerID(3), vote.Target)

	_, err = Expect[Vote](Kill{Target: 3})
	assert.ErrorIs(t, err, ErrProtocolViolation)
	assert.Contains(t, err.Error(), "expected vote, got kill")

	_, err = Expect[Vote](nil)
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestExpectReceived(t *testing.T) {
	assert.NoError(t, ExpectReceived(Received{}))
	assert.ErrorIs(t, ExpectReceived(Vote{Target: 0}), ErrProtocolViolation)
}

func TestChoice(t *testing.T) {
	candidates := []model.PlayerID{1, 2, 4}
	assert.NoError(t, Choice(2, candidates))
	assert.ErrorIs(t, Choice(3, candidates), ErrProtocolViolation)
	assert.ErrorIs(t, Choice(0, nil), ErrProtocolViolation)
}

func TestIsRequest(t *testing.T) {
	assert.True(t, IsRequest(KindKillOptions))
	assert.True(t, IsRequest(KindVoteOptions))
	assert.False(t, IsRequest(KindDied))
	assert.False(t, IsRequest(KindAnnounceWinner))
}
