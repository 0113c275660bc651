// Package main provides the player control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/feedplay/internal/api/connect"
	"github.com/osa030/feedplay/internal/app/scrub"
)

var (
	app    = kingpin.New("feedplay-playerctl", "feedplay player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show playback status")

	// play command
	playCmd     = app.Command("play", "Play a track from a listing")
	playTrackID = playCmd.Arg("track-id", "Track ID").Required().String()
	playSource  = playCmd.Flag("source", "Catalog source display name or type").Short('s').String()
	playContext = playCmd.Flag("context", "Listing context (recent, user:<name>, playlist URL)").Short('c').String()

	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	stopCmd   = app.Command("stop", "Stop playback and clear the queue")
	nextCmd   = app.Command("next", "Skip to the next track")
	prevCmd   = app.Command("prev", "Go back to the previous track").Alias("previous")

	// seek command
	seekCmd    = app.Command("seek", "Seek within the current track")
	seekTarget = seekCmd.Arg("position", "Position as 1:30, 90s or 50%, or an offset as +10s or +5% (use -- before negative offsets such as -- -1:00)").Required().String()

	// shuffle command
	shuffleCmd   = app.Command("shuffle", "Set shuffle")
	shuffleState = shuffleCmd.Arg("state", "on or off").Required().Enum("on", "off")

	// repeat command
	repeatCmd  = app.Command("repeat", "Set repeat mode")
	repeatMode = repeatCmd.Arg("mode", "off or one").Required().Enum("off", "one")

	// queue command
	queueCmd = app.Command("queue", "Show the queue")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Check admin token
	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	// Create client
	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx := context.Background()

	var (
		state apiconnect.PlaybackState
		err   error
	)

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		state, err = client.GetState(ctx)
	case playCmd.FullCommand():
		state, err = client.PlayTrack(ctx, *playSource, *playContext, *playTrackID)
	case pauseCmd.FullCommand():
		state, err = client.Pause(ctx)
	case resumeCmd.FullCommand():
		state, err = client.Resume(ctx)
	case stopCmd.FullCommand():
		state, err = client.Stop(ctx)
	case nextCmd.FullCommand():
		state, err = client.Next(ctx)
	case prevCmd.FullCommand():
		state, err = client.Previous(ctx)
	case seekCmd.FullCommand():
		state, err = seek(ctx, client, *seekTarget)
	case shuffleCmd.FullCommand():
		state, err = client.SetShuffle(ctx, *shuffleState == "on")
	case repeatCmd.FullCommand():
		state, err = client.SetRepeatMode(ctx, *repeatMode)
	case queueCmd.FullCommand():
		err = showQueue(ctx, client)
		exitOnError(err)
		return
	}
	exitOnError(err)

	printState(state)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// seek accepts "1:30", "90s" or "50%". Percentages are scaled by the
// current track's duration. A leading + or - moves relative to the
// current position.
func seek(ctx context.Context, client *apiconnect.Client, target string) (apiconnect.PlaybackState, error) {
	if strings.HasPrefix(target, "+") || strings.HasPrefix(target, "-") {
		return nudge(ctx, client, target)
	}
	if strings.HasSuffix(target, "%") {
		percent, err := strconv.ParseFloat(strings.TrimSuffix(target, "%"), 64)
		if err != nil {
			return apiconnect.PlaybackState{}, fmt.Errorf("invalid percentage %q", target)
		}
		state, err := client.GetState(ctx)
		if err != nil {
			return apiconnect.PlaybackState{}, err
		}
		if state.DurationMs == 0 {
			return apiconnect.PlaybackState{}, fmt.Errorf("track length is not known yet")
		}
		if err := scrub.New(client).Tap(ctx, state.Duration(), percent/100); err != nil {
			return apiconnect.PlaybackState{}, err
		}
		return client.GetState(ctx)
	}

	position, err := parsePosition(target)
	if err != nil {
		return apiconnect.PlaybackState{}, err
	}
	return client.SeekTo(ctx, position)
}

// nudge drags the seek bar from the current position by offset, shows
// where it will land and releases it.
func nudge(ctx context.Context, client *apiconnect.Client, offset string) (apiconnect.PlaybackState, error) {
	state, err := client.GetState(ctx)
	if err != nil {
		return apiconnect.PlaybackState{}, err
	}
	if state.Track == nil {
		return apiconnect.PlaybackState{}, fmt.Errorf("nothing is playing")
	}
	duration := state.Duration()
	if duration <= 0 {
		return apiconnect.PlaybackState{}, fmt.Errorf("track length is not known yet")
	}

	sign := time.Duration(1)
	if offset[0] == '-' {
		sign = -1
	}
	magnitude := offset[1:]

	var delta time.Duration
	if strings.HasSuffix(magnitude, "%") {
		percent, err := strconv.ParseFloat(strings.TrimSuffix(magnitude, "%"), 64)
		if err != nil {
			return apiconnect.PlaybackState{}, fmt.Errorf("invalid offset %q", offset)
		}
		delta = time.Duration(float64(duration) * percent / 100)
	} else {
		delta, err = parsePosition(magnitude)
		if err != nil {
			return apiconnect.PlaybackState{}, fmt.Errorf("invalid offset %q", offset)
		}
	}

	bar := scrub.New(client)
	bar.Begin(duration, scrub.Fraction(state.Position(), duration))
	bar.Move(scrub.Fraction(state.Position()+sign*delta, duration))
	fmt.Printf("Seeking %s -> %s / %s\n",
		formatPosition(state.Position()), formatPosition(bar.Display(state.Position())), formatPosition(duration))

	if err := bar.Release(ctx); err != nil {
		return apiconnect.PlaybackState{}, err
	}
	return client.GetState(ctx)
}

// parsePosition parses "m:ss" or a Go duration.
func parsePosition(s string) (time.Duration, error) {
	if m, sec, ok := strings.Cut(s, ":"); ok {
		minutes, err1 := strconv.Atoi(m)
		seconds, err2 := strconv.Atoi(sec)
		if err1 != nil || err2 != nil || seconds >= 60 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return d, nil
}

func formatPosition(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func printState(s apiconnect.PlaybackState) {
	fmt.Println("\n=== PLAYBACK STATUS ===")

	if s.Track == nil {
		fmt.Println("No track loaded")
	} else {
		state := "⏸  Paused"
		if s.IsPlaying {
			state = "▶️  Playing"
		}
		fmt.Printf("%s: %s - %s\n", state, s.Track.Artist, s.Track.Title)
		fmt.Printf("  Track ID: %s\n", s.Track.ID)
		fmt.Printf("  Stream URL: %s\n", s.Track.StreamURL)
		if s.Track.ArtworkURL != "" {
			fmt.Printf("  Artwork URL: %s\n", s.Track.ArtworkURL)
		}
		length := "--:--"
		if s.DurationMs > 0 {
			length = formatPosition(s.Duration())
		}
		fmt.Printf("  Position: %s / %s\n", formatPosition(s.Position()), length)
	}

	fmt.Printf("Shuffle: %v  Repeat: %s  (generation %d)\n", s.Shuffle, s.RepeatMode, s.Generation)
	fmt.Println()
}

func showQueue(ctx context.Context, client *apiconnect.Client) error {
	q, err := client.GetQueue(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Queue (%d):\n", len(q.Tracks))
	for i, t := range q.Tracks {
		marker := "  "
		if i == q.CurrentIndex {
			marker = "> "
		}
		fmt.Printf("%s%3d. %s - %s [%s]\n", marker, i+1, t.Artist, t.Title, t.ID)
	}
	return nil
}
