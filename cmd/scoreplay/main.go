// Command scoreplay plays a MusicXML file on a MIDI output through the
// editor's playback scheduler.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Little6thingys/lyric-mind/internal/playback"
	"github.com/Little6thingys/lyric-mind/internal/playback/midiout"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

const tailSilence = 500 * time.Millisecond

var flags struct {
	port    string
	channel uint8
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scoreplay [score.musicxml]",
		Short: "Play a MusicXML score on a MIDI output",
		Long: `scoreplay reads a MusicXML score, renders it to MIDI and plays it
through the same scheduler the editor uses. The output is picked by a
substring of its name, defaulting to MIDI_OUTPUT.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.channel > midiout.MaxChannel {
				return fmt.Errorf("channel %d out of range (0-%d)", flags.channel, midiout.MaxChannel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], flags.port, flags.channel)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&flags.port, "port", os.Getenv("MIDI_OUTPUT"),
		"Substring of the MIDI output name (empty picks the first output)")
	cmd.Flags().Uint8Var(&flags.channel, "channel", 0,
		"MIDI channel (0-15)")
	return cmd
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(path, port string, channel uint8) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := score.Parse(score.FixSteps(string(text)))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	data, err := playback.EncodeMIDI(doc)
	if err != nil {
		return err
	}
	tracks, err := playback.Decode(data)
	if err != nil {
		return err
	}

	synth, err := midiout.Open(port, channel)
	if err != nil {
		return err
	}
	defer synth.Close()

	player := playback.NewPlayer(playback.NewClockTransport(), synth)
	defer player.Stop()

	count, err := player.PlayMIDI(data)
	if err != nil {
		return err
	}
	log.Printf("🎹 Playing %q on %s (%d notes, %s)", doc.Title(), synth.Name(), count, length(tracks).Round(time.Millisecond))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-time.After(length(tracks) + tailSilence):
		log.Println("✅ Done")
	case <-interrupt:
		log.Println("⏹  Stopped")
	}
	return nil
}

// length is the end time of the last note.
func length(tracks []playback.Track) time.Duration {
	var end float64
	for _, tr := range tracks {
		for _, n := range tr.Notes {
			if t := n.Time + n.Duration; t > end {
				end = t
			}
		}
	}
	return time.Duration(end * float64(time.Second))
}
