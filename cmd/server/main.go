// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/gopxl/beep/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/feedplay/internal/api/connect"
	"github.com/osa030/feedplay/internal/app/catalog"
	"github.com/osa030/feedplay/internal/app/engine"
	"github.com/osa030/feedplay/internal/app/notification"
	"github.com/osa030/feedplay/internal/app/playback"
	"github.com/osa030/feedplay/internal/app/queue"
	"github.com/osa030/feedplay/internal/infra/audio"
	"github.com/osa030/feedplay/internal/infra/config"
	"github.com/osa030/feedplay/internal/infra/lastfm"
	"github.com/osa030/feedplay/internal/infra/logger"
	"github.com/osa030/feedplay/internal/infra/songs"
	"github.com/osa030/feedplay/internal/infra/spotify"
)

var (
	app        = kingpin.New("feedplay-server", "feedplay playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check command
	checkCmd = app.Command("check", "Validate config and catalog sources, then exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output:  "stdout",
		Level:   "info",
		Service: "feedplay-server",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkCmd.FullCommand() {
		if err := check(cfg); err != nil {
			zlog.Error().Msgf("Check failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// newCatalog creates the clients the configured sources need and the
// source chain on top of them.
func newCatalog(ctx context.Context, cfg *config.Config) (*catalog.Chain, error) {
	var clients catalog.Clients

	if cfg.HasSource(config.SourceTypeSongs) {
		songsClient, err := songs.New(songs.Config{
			BaseURL: cfg.Songs.BaseURL,
			Timeout: cfg.Songs.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create songs client: %w", err)
		}
		clients.Songs = songsClient
	}

	if cfg.HasSource(config.SourceTypeSpotify) {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Spotify client: %w", err)
		}

		// Validate playlist existence
		if err := validatePlaylists(ctx, cfg, spotifyClient); err != nil {
			return nil, fmt.Errorf("playlist validation failed: %w", err)
		}
		clients.Spotify = spotifyClient
	}

	if cfg.Catalog.Artwork {
		lastfmClient, err := lastfm.New(lastfm.Config{APIKey: cfg.LastFM.APIKey})
		if err != nil {
			return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
		}
		clients.Artwork = lastfmClient
	}

	chain, err := catalog.NewChainFromConfig(cfg, clients)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}
	return chain, nil
}

// newSink opens the configured audio output.
func newSink(cfg *config.Config) (audio.Sink, error) {
	rate := beep.SampleRate(cfg.Audio.SampleRate)
	buffer := time.Duration(cfg.Audio.BufferMs) * time.Millisecond

	switch cfg.Audio.Output {
	case "clock":
		zlog.Info().Msgf("Audio output: clock (%d Hz, no device)", rate)
		return audio.NewClockSink(rate, buffer), nil
	default:
		return audio.NewSpeakerSink(rate, buffer)
	}
}

// check validates the configuration by building the catalog and listing
// every source's default context.
func check(cfg *config.Config) error {
	ctx := context.Background()

	chain, err := newCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	for _, name := range chain.Sources() {
		listing, err := chain.List(ctx, name, "")
		if err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}
		fmt.Printf("  %-20s %-30s %d tracks\n", name, listing.Name, listing.Len())
	}
	return nil
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	chain, err := newCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	sink, err := newSink(cfg)
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer sink.Close()

	backend, err := audio.NewBackend(sink, audio.Config{
		MaxTrackBytes: cfg.Audio.MaxTrackBytes,
		FetchTimeout:  cfg.Audio.FetchTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create audio backend: %w", err)
	}

	// Create engine and transport controller
	eng := engine.New(backend, engine.Config{
		StatusInterval: cfg.Playback.StatusInterval(),
	})
	controller := playback.NewController(eng, queue.New(), playback.Config{
		AutoAdvanceDelay: cfg.Playback.AutoAdvanceDelay(),
		EventBuffer:      cfg.Playback.EventBuffer,
	})
	go logEvents(controller.Events())

	// Fan state out to remote subscribers
	notifications := notification.NewManager()
	notifyCtx, stopNotify := context.WithCancel(ctx)
	defer stopNotify()
	go notifications.Run(notifyCtx, controller.Subscribe())

	// Create RPC services
	streamsDone := make(chan struct{})
	listenerService := apiconnect.NewListenerService(controller, notifications, chain, streamsDone)
	playerService := apiconnect.NewPlayerService(controller, chain)

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register services
	loggingInterceptor := apiconnect.NewLoggingInterceptor()
	listenerPath, listenerHandler := apiconnect.NewListenerServiceHandler(
		listenerService,
		connect.WithInterceptors(loggingInterceptor),
	)

	// Create admin auth interceptor
	adminAuthInterceptor := apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)
	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(
		playerService,
		connect.WithInterceptors(loggingInterceptor, adminAuthInterceptor),
	)

	mux.Handle(listenerPath, listenerHandler)
	mux.Handle(playerPath, playerHandler)

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		controller.Close()
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// End state streams first so Shutdown does not wait on them
	close(streamsDone)
	controller.Close()
	notifications.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// logEvents logs controller events until the channel is closed.
func logEvents(events <-chan playback.Event) {
	log := logger.For("playback")
	for e := range events {
		name := "-"
		if e.Track != nil {
			name = e.Track.DisplayName()
		}
		switch e.Type {
		case playback.EventTrackStarted:
			log.Info().Msgf("Track started: %s (generation %d)", name, e.Generation)
		case playback.EventTrackFinished:
			log.Info().Msgf("Track finished: %s", name)
		case playback.EventLoadFailed:
			log.Error().Msgf("Track failed to load: %s: %v", name, e.Err)
		default:
			log.Debug().Msgf("Playback event: %s state=%s", e.Type, e.State)
		}
	}
}

// validatePlaylists validates that playlists configured as spotify source
// defaults exist. This uses lightweight checks to avoid fetching all tracks
// during startup. It includes retry logic to handle transient errors during
// startup.
func validatePlaylists(ctx context.Context, cfg *config.Config, spotifyClient *spotify.Client) error {
	maxRetries := 5
	baseDelay := 1 * time.Second

	var errs []string

	// Helper function to validate a single playlist with retry
	validate := func(name, url string) error {
		zlog.Info().Msgf("Validating %s playlist: url=%s", name, url)

		var lastErr error
		for i := 0; i < maxRetries; i++ {
			if i > 0 {
				delay := baseDelay * time.Duration(1<<uint(i-1))
				zlog.Info().Msgf("Retrying %s playlist validation in %v...", name, delay)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			if err := spotifyClient.CheckPlaylistExists(ctx, url); err != nil {
				lastErr = err
				zlog.Warn().Msgf("Failed to validate %s playlist (attempt %d/%d): %v", name, i+1, maxRetries, err)
				continue
			}

			zlog.Info().Msgf("%s playlist validated successfully", name)
			return nil
		}
		return fmt.Errorf("failed after %d attempts: %v", maxRetries, lastErr)
	}

	for _, source := range cfg.Catalog.Sources {
		if source.Type != config.SourceTypeSpotify {
			continue
		}
		url, _ := source.Settings["playlist_url"].(string)
		if url == "" {
			zlog.Info().Msgf("Source %s has no default playlist, contexts must name one", source.DisplayName)
			continue
		}
		if err := validate(source.DisplayName, url); err != nil {
			errs = append(errs, fmt.Sprintf("%s (%s): %v", source.DisplayName, url, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("playlist validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
