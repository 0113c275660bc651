// Package main provides the listener CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/feedplay/internal/api/connect"
)

var (
	app    = kingpin.New("feedplay-listencli", "feedplay listener client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// sources command
	sourcesCmd = app.Command("sources", "List catalog sources")

	// tracks command
	tracksCmd     = app.Command("tracks", "List the tracks of a listing")
	tracksSource  = tracksCmd.Flag("source", "Catalog source display name or type").Short('s').String()
	tracksContext = tracksCmd.Flag("context", "Listing context (recent, user:<name>, playlist URL)").Short('c').String()

	// state command
	stateCmd = app.Command("state", "Show the current playback state")

	// watch command
	watchCmd = app.Command("watch", "Follow playback state changes")
	barWidth = watchCmd.Flag("width", "Progress bar width").Default("30").Int()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := apiconnect.NewClient(http.DefaultClient, *server, "")

	ctx := context.Background()

	// Execute command
	switch command {
	case sourcesCmd.FullCommand():
		listSources(ctx, client)
	case tracksCmd.FullCommand():
		listTracks(ctx, client, *tracksSource, *tracksContext)
	case stateCmd.FullCommand():
		state, err := client.GetState(ctx)
		exitOnError(err)
		printState(state)
	case watchCmd.FullCommand():
		watch(ctx, client, *barWidth)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func listSources(ctx context.Context, client *apiconnect.Client) {
	sources, err := client.ListSources(ctx)
	exitOnError(err)

	fmt.Printf("Sources (%d):\n", len(sources))
	for _, s := range sources {
		fmt.Printf("  %s\n", s)
	}
}

func listTracks(ctx context.Context, client *apiconnect.Client, source, listingContext string) {
	resp, err := client.ListTracks(ctx, source, listingContext)
	exitOnError(err)

	fmt.Printf("%s [%s/%s] (%d tracks):\n", resp.Name, resp.Source, resp.Context, len(resp.Tracks))
	for i, t := range resp.Tracks {
		fmt.Printf("  %3d. %s - %s [%s]\n", i+1, t.Artist, t.Title, t.ID)
	}
}

func watch(ctx context.Context, client *apiconnect.Client, width int) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.SubscribeState(ctx)
	exitOnError(err)
	defer stream.Close()

	fmt.Println("Watching playback state. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		cancel()
	}()

	var last *apiconnect.PlaybackState
	for stream.Receive() {
		update := stream.Msg()
		state := update.State

		if update.Initial || last == nil || changed(*last, state) {
			fmt.Printf("\n[Sequence: %d] ", update.SequenceNo)
			if update.Initial {
				fmt.Println("=== INITIAL STATE ===")
			} else {
				fmt.Println("=== STATE CHANGED ===")
			}
			printState(state)
		}
		fmt.Printf("\r%s", progressLine(state, width))
		last = &state
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("\nStream error: %v\n", err)
	}
}

// changed reports a difference other than position.
func changed(a, b apiconnect.PlaybackState) bool {
	trackID := func(s apiconnect.PlaybackState) string {
		if s.Track == nil {
			return ""
		}
		return s.Track.ID
	}
	return trackID(a) != trackID(b) ||
		a.IsPlaying != b.IsPlaying ||
		a.Shuffle != b.Shuffle ||
		a.RepeatMode != b.RepeatMode ||
		a.Generation != b.Generation
}

func progressLine(s apiconnect.PlaybackState, width int) string {
	if s.Track == nil {
		return strings.Repeat(" ", width+16)
	}
	icon := "⏸ "
	if s.IsPlaying {
		icon = "▶️ "
	}
	if s.DurationMs <= 0 {
		return fmt.Sprintf("%s %s / --:--", icon, formatPosition(s.Position()))
	}

	filled := int(float64(width) * float64(s.PositionMs) / float64(s.DurationMs))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %s %s / %s", icon, bar, formatPosition(s.Position()), formatPosition(s.Duration()))
}

func formatPosition(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func printState(s apiconnect.PlaybackState) {
	if s.Track == nil {
		fmt.Println("  ⏹  Nothing playing")
	} else {
		state := "⏸  Paused"
		if s.IsPlaying {
			state = "▶️  Playing"
		}
		fmt.Printf("  %s: %s - %s\n", state, s.Track.Artist, s.Track.Title)
		if s.Track.ArtworkURL != "" {
			fmt.Printf("  Artwork URL: %s\n", s.Track.ArtworkURL)
		}
	}
	fmt.Printf("  Shuffle: %v  Repeat: %s\n", s.Shuffle, s.RepeatMode)
}
