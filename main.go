// Command sweeper starts the infinite minesweeper server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, the
//     websocket game session and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the config directory and the board configuration,
// logging, and optional ngrok tunneling for easy external access during
// development. Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/infinite-sweeper/api"
	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/config"
	"github.com/wricardo/infinite-sweeper/game/cursor"
	"github.com/wricardo/infinite-sweeper/game/event"
	"github.com/wricardo/infinite-sweeper/game/handler"
	"github.com/wricardo/infinite-sweeper/logging"
	"github.com/wricardo/infinite-sweeper/transport/mcp"
	"github.com/wricardo/infinite-sweeper/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Infinite Sweeper Server"
)

// externalURL is where stdio-mcp looks for an already running server
const externalURL = "http://localhost:8080"

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCommand builds the CLI with its flags and modes
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "sweeper",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing board configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Value:   config.DefaultName,
				Usage:   "Board configuration to play",
				Sources: cli.EnvVars("GAME_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "seed",
				Usage:   "Board generation seed, 0 picks one from the clock",
				Sources: cli.EnvVars("SWEEPER_SEED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   logging.FormatText,
				Usage:   "Log format (text, json)",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

// settings are the flag values the game is built from
type settings struct {
	ConfigDir  string
	ConfigName string
	Seed       int64
}

func settingsFrom(cmd *cli.Command) settings {
	return settings{
		ConfigDir:  cmd.String("config-dir"),
		ConfigName: cmd.String("config"),
		Seed:       int64(cmd.Int("seed")),
	}
}

// game is one fully wired world: board, cursors, broker, transport and API
type game struct {
	cfg     *config.GameConfig
	configs *config.Manager
	board   *board.Board
	cursors *cursor.Registry
	broker  *event.Broker
	hub     *websocket.Hub
	api     *api.Server
}

// newGame loads the selected configuration and wires every component
func newGame(s settings, logger logrus.FieldLogger) (*game, error) {
	configs, err := config.NewManager(s.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if err := configs.SetDefault(s.ConfigName); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", s.ConfigName, err)
	}
	cfg := configs.GetDefault()

	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := cfg.BoardOptions()
	opts.Rand = rand.New(rand.NewSource(seed))
	opts.Logger = logger.WithField("component", "board")
	b := board.New(opts)

	cursors := cursor.NewRegistry(rand.New(rand.NewSource(seed + 1)))
	broker := event.NewBroker(logger)
	hub := websocket.NewHub(broker, b, websocket.Options{MaxViewSize: cfg.MaxViewSize, Logger: logger})

	broker.Register(hub.Routes())
	broker.Register(handler.NewBoardHandler(b, broker, handler.BoardOptions{
		MaxFetchArea: cfg.MaxFetchArea,
		Logger:       logger,
	}).Routes())
	broker.Register(handler.NewCursorHandler(cursors, broker, handler.CursorOptions{
		ReviveCooldown: cfg.ReviveCooldown(),
		Logger:         logger,
	}).Routes())

	apiServer := api.NewServer(b, cursors, configs, hub, api.Options{
		MaxFetchArea: cfg.MaxFetchArea,
		Logger:       logger,
	})

	logger.WithFields(logrus.Fields{
		"config":         cfg.Name,
		"section_length": cfg.SectionLength,
		"mine_ratio":     cfg.MineRatio,
		"seed":           seed,
	}).Info("board ready")

	return &game{
		cfg:     cfg,
		configs: configs,
		board:   b,
		cursors: cursors,
		broker:  broker,
		hub:     hub,
		api:     apiServer,
	}, nil
}

func newLogger(cmd *cli.Command) (*logrus.Logger, error) {
	return logging.New(os.Stderr, cmd.String("log-level"), cmd.String("log-format"))
}

// runHTTPServer starts the HTTP server with REST API, websocket hub, and an
// /mcp proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	logger.Infof("Starting %s v%s", AppName, Version)

	g, err := newGame(settingsFrom(cmd), logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	// Create MCP client for /mcp endpoint
	mcpClient := mcp.NewClient("http://" + addr)
	g.api.Handle("/mcp", mcpClient.Handler())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      g.api,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		g.hub.Run(gctx)
		return nil
	})

	group.Go(func() error {
		logger.Infof("HTTP server listening on %s", addr)
		logger.Infof("REST API: http://%s/api", addr)
		logger.Infof("WebSocket: ws://%s/session", addr)
		logger.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		group.Go(func() error {
			return serveNgrok(gctx, cmd, g.api, logger)
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		g.broker.Close()
		if err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		return nil
	})

	err = group.Wait()
	logger.Info("Server stopped")
	return err
}

// serveNgrok serves h through an ngrok tunnel until ctx ends. A missing auth
// token disables the tunnel without failing the server.
func serveNgrok(ctx context.Context, cmd *cli.Command, h http.Handler, logger logrus.FieldLogger) error {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return nil
	}

	logger.Info("Starting ngrok tunnel...")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Infof("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.WithError(err).Error("Failed to start ngrok tunnel")
		return nil
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.Infof("Ngrok tunnel established: %s", ngrokURL)
	logger.Infof("  REST API (ngrok): %s/api", ngrokURL)
	logger.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, h); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.WithError(err).Warn("Ngrok server error")
	}
	logger.Info("Ngrok tunnel closed")
	return nil
}

// runStdioMCP runs an MCP stdio server. It reuses a server already running at
// http://localhost:8080; if there is none, it starts the game with an
// internal HTTP API bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	baseURL, shutdown, err := selectAPI(ctx, settingsFrom(cmd), logger)
	if err != nil {
		return err
	}
	defer shutdown()

	mcpClient := mcp.NewClient(baseURL)
	logger.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// selectAPI returns the base URL of a reachable REST API, starting an internal
// one when no external server answers
func selectAPI(ctx context.Context, s settings, logger logrus.FieldLogger) (string, func(), error) {
	logger.Infof("Checking for external API server at %s...", externalURL)
	testClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := testClient.Get(externalURL + "/health"); err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			logger.Infof("External API server found at %s, using it for MCP", externalURL)
			return externalURL, func() {}, nil
		}
	}

	logger.Info("No external API server found, starting internal HTTP server")
	g, err := newGame(s, logger)
	if err != nil {
		return "", nil, err
	}

	// Start internal HTTP server on a random available port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	hubCtx, cancel := context.WithCancel(ctx)
	go g.hub.Run(hubCtx)

	httpServer := &http.Server{Handler: g.api}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Internal HTTP server error")
		}
	}()

	shutdown := func() {
		cancel()
		httpServer.Close()
		g.broker.Close()
	}
	return "http://" + listener.Addr().String(), shutdown, nil
}
