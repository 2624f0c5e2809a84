package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"party-quiz-service/internal/domain"
)

func newTestRoom(questions ...domain.Question) *Room {
	return NewRoom("123456", "host", domain.RoomSettings{
		Title:      "Trivia",
		TimeLimit:  20,
		BasePoints: 1000,
		Questions:  questions,
	})
}

func TestPointsFor(t *testing.T) {
	cases := []struct {
		timeLeft, want int
	}{
		{20, 1000},
		{10, 500},
		{15, 750},
		{0, 0},
		{1, 50},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, pointsFor(1000, tc.timeLeft, 20), "timeLeft=%d", tc.timeLeft)
	}
	assert.Equal(t, 33, pointsFor(100, 1, 3))
	assert.Equal(t, 67, pointsFor(100, 2, 3))
}

func TestTimeLeftAt(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)

	assert.Equal(t, 20, timeLeftAt(20, start, start))
	assert.Equal(t, 15, timeLeftAt(20, start, start.Add(5*time.Second)))
	assert.Equal(t, 15, timeLeftAt(20, start, start.Add(4600*time.Millisecond)))
	assert.Equal(t, 14, timeLeftAt(20, start, start.Add(5600*time.Millisecond)))
	assert.Equal(t, 0, timeLeftAt(20, start, start.Add(time.Minute)))
	assert.Equal(t, 20, timeLeftAt(20, start, start.Add(-time.Second)), "clock skew never exceeds the limit")
}

func TestAddPlayerRules(t *testing.T) {
	room := newTestRoom()

	require.NoError(t, room.addPlayer("p1", "  Alice  "))
	assert.ErrorIs(t, room.addPlayer("p2", "alice"), domain.ErrNameTaken)
	assert.ErrorIs(t, room.addPlayer("p2", "   "), domain.ErrInvalidName)
	assert.ErrorIs(t, room.addPlayer("p1", "Alicia"), domain.ErrAlreadyInRoom)
	assert.ErrorIs(t, room.addPlayer("host", "Hosty"), domain.ErrAlreadyInRoom)

	require.NoError(t, room.addPlayer("p3", "Bartholomew the Magnificent"))
	p, ok := room.Player("p3")
	require.True(t, ok)
	assert.Equal(t, "Bartholomew the Ma", p.Name)

	p, ok = room.Player("p1")
	require.True(t, ok)
	assert.Equal(t, "Alice", p.Name)
}

func TestRecordAnswerGuards(t *testing.T) {
	room := newTestRoom(domain.Question{Text: "Q", Options: []string{"a", "b"}, Answer: 1})
	require.NoError(t, room.addPlayer("p1", "Alice"))
	now := time.Now()

	assert.ErrorIs(t, room.recordAnswer("p1", 0, now), domain.ErrQuestionClosed, "no question open yet")

	require.False(t, room.advance())
	room.openQuestion(now)

	assert.ErrorIs(t, room.recordAnswer("ghost", 0, now), domain.ErrPlayerNotRegistered)
	require.NoError(t, room.recordAnswer("p1", 1, now))
	assert.ErrorIs(t, room.recordAnswer("p1", 0, now), domain.ErrAlreadyAnswered)

	p, _ := room.Player("p1")
	require.NotNil(t, p.Choice)
	assert.Equal(t, 1, *p.Choice)
	assert.Equal(t, 20, p.TimeLeft)
}

func TestRevealScoresOnce(t *testing.T) {
	room := newTestRoom(domain.Question{Text: "Q", Options: []string{"a", "b"}, Answer: 1})
	require.NoError(t, room.addPlayer("p1", "Alice"))
	require.NoError(t, room.addPlayer("p2", "Bob"))
	require.NoError(t, room.addPlayer("p3", "Cleo"))
	start := time.Now()

	room.advance()
	room.openQuestion(start)
	require.NoError(t, room.recordAnswer("p2", 1, start.Add(10*time.Second)))
	require.NoError(t, room.recordAnswer("p1", 1, start))
	require.NoError(t, room.recordAnswer("p3", 0, start))

	reveal, ok := room.revealAndScore()
	require.True(t, ok)
	assert.Equal(t, 1, reveal.Correct)
	assert.Equal(t, []domain.ScoreEntry{
		{Name: "Alice", Score: 1000, Correct: true, TimeLeft: 20},
		{Name: "Bob", Score: 500, Correct: true, TimeLeft: 10},
		{Name: "Cleo", Score: 0, Correct: false, TimeLeft: 20},
	}, reveal.Scoreboard)

	_, ok = room.revealAndScore()
	assert.False(t, ok)
	p, _ := room.Player("p1")
	assert.Equal(t, 1000, p.Score)
	assert.ErrorIs(t, room.recordAnswer("p2", 0, start), domain.ErrAlreadyAnswered)
}

func TestOpenQuestionResetsPlayers(t *testing.T) {
	room := newTestRoom(
		domain.Question{Text: "Q1", Options: []string{"a", "b"}, Answer: 0},
		domain.Question{Text: "Q2", Options: []string{"a", "b"}, Answer: 1},
	)
	require.NoError(t, room.addPlayer("p1", "Alice"))
	now := time.Now()

	room.advance()
	room.openQuestion(now)
	require.NoError(t, room.recordAnswer("p1", 0, now))
	room.revealAndScore()

	room.advance()
	shown := room.openQuestion(now)
	assert.Equal(t, 1, shown.Index)
	assert.Equal(t, 2, shown.Total)
	assert.Equal(t, "Q2", shown.Text)

	p, _ := room.Player("p1")
	assert.False(t, p.Answered)
	assert.Nil(t, p.Choice)
	assert.False(t, p.Correct)
	assert.Equal(t, 0, p.TimeLeft)
	assert.Equal(t, 1000, p.Score)
	assert.False(t, room.Revealed())
}

func TestAdvanceStopsAtEnd(t *testing.T) {
	room := newTestRoom(domain.Question{Text: "Q", Options: []string{"a"}, Answer: 0})

	assert.False(t, room.advance())
	assert.True(t, room.advance())
	assert.True(t, room.advance())
	assert.Equal(t, 1, room.CurrentIndex())
	assert.True(t, room.IsOver())
}

func TestScoreboardTiesKeepJoinOrder(t *testing.T) {
	room := newTestRoom()
	for _, name := range []string{"Zed", "Amy", "Max", "Bea"} {
		require.NoError(t, room.addPlayer(name, name))
	}
	room.players["Max"].score = 300
	room.players["Bea"].score = 300
	room.players["Zed"].score = 100

	over := room.gameOver()
	assert.Equal(t, []domain.PlayerView{
		{Name: "Max", Score: 300},
		{Name: "Bea", Score: 300},
		{Name: "Zed", Score: 100},
		{Name: "Amy", Score: 0},
	}, over.Scoreboard)
	assert.Len(t, over.Podium, 3)
	assert.Equal(t, "Max", over.Podium[0].Name)
}

func TestRemovePlayerKeepsOrder(t *testing.T) {
	room := newTestRoom()
	require.NoError(t, room.addPlayer("p1", "A"))
	require.NoError(t, room.addPlayer("p2", "B"))
	require.NoError(t, room.addPlayer("p3", "C"))

	assert.True(t, room.removePlayer("p2"))
	assert.False(t, room.removePlayer("p2"))
	assert.Equal(t, []domain.PlayerView{{Name: "A"}, {Name: "C"}}, room.update().Players)
}
