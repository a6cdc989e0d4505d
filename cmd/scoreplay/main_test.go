package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Little6thingys/lyric-mind/internal/playback"
)

func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestRequiresOneScore(t *testing.T) {
	assert.Error(t, execute())
	assert.Error(t, execute("a.musicxml", "b.musicxml"))
}

func TestRejectsChannelOutOfRange(t *testing.T) {
	err := execute("--channel", "16", "a.musicxml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestFlagsParse(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "IAC", "--channel", "9"}))
	assert.Equal(t, "IAC", flags.port)
	assert.Equal(t, uint8(9), flags.channel)
}

func TestMissingFileFails(t *testing.T) {
	err := execute("--port", "none", t.TempDir()+"/missing.musicxml")
	assert.Error(t, err)
}

func TestLength(t *testing.T) {
	tracks := []playback.Track{
		{Notes: []playback.NoteEvent{{Time: 0, Duration: 1}, {Time: 2, Duration: 0.5}}},
		{Notes: []playback.NoteEvent{{Time: 1, Duration: 0.25}}},
	}
	assert.Equal(t, 2500*time.Millisecond, length(tracks))
}
