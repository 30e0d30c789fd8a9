package main

import (
	"bufio"
	"chat-sync/channel"
	"chat-sync/client"
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/infrastructure/postgres"
	"chat-sync/internal"
	"chat-sync/notification"
	"chat-sync/repositories"
	"chat-sync/runtime"
	"chat-sync/runtime/workers"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// backend is what a store flavour provides to the engine.
type backend struct {
	rooms    contract.IRoomStore
	messages contract.IMessageStore
	feed     contract.IChangeFeed
	workers  []contract.Worker
	close    func()
}

// run initializes all components, drives the console and centralizes error reporting.
// Returning instead of exiting lets every defer run before the program stops.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Store and change feed
	registry := runtime.NewRegistry(log)
	var (
		b   backend
		err error
	)
	switch config.StoreBackend {
	case internal.BackendPostgres:
		b, err = openPostgres(ctx, log, config, registry)
	default:
		b, err = openBadger(log, config, registry)
	}
	if err != nil {
		return err
	}
	defer b.close()

	// 4. Engine
	adapter := channel.NewAdapter(log, b.feed, config.ChannelBufferSize)
	defer adapter.Close()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(b.workers...)
	sup.Add(workers.NewChannelCapacityWorker(log, adapter, config.MetricInterval, config.LowCapacityThreshold))
	supervised := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervised)
	}()
	defer func() {
		sup.Stop()
		<-supervised
	}()

	var player contract.IPlayer = notification.SilentPlayer{}
	if config.Sound == internal.SoundBell {
		player = notification.NewBellPlayer(os.Stdout)
	}
	term := newTerminal(os.Stdout)
	c := client.New(log, b.rooms, b.messages, adapter, player, term, term)
	defer c.Close()
	c.OnRoomCreated(term.roomCreated)
	if err = c.Open(ctx); err != nil {
		return fmt.Errorf("could not load rooms: %w", err)
	}

	// 5. Console
	term.info(help)
	return console(ctx, os.Stdin, c, term)
}

func openBadger(log *slog.Logger, config internal.Config, registry *runtime.Registry) (backend, error) {
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLogger(runtime.NewBadgerLogger(log)))
	if err != nil {
		return backend{}, fmt.Errorf("database opening failed: %w", err)
	}
	rooms, err := repositories.NewRoomRepository(db, log, registry)
	if err != nil {
		_ = db.Close()
		return backend{}, err
	}
	return backend{
		rooms:    rooms,
		messages: repositories.NewMessageRepository(db, log, registry, config.LimitMessages),
		feed:     registry,
		workers:  []contract.Worker{workers.NewValueLogGCWorker(log, db, config.GCInterval)},
		close: func() {
			log.Info("Closing BadgerDB...")
			_ = rooms.Close()
			_ = db.Close()
		},
	}, nil
}

func openPostgres(ctx context.Context, log *slog.Logger, config internal.Config, registry *runtime.Registry) (backend, error) {
	store, err := postgres.NewStore(ctx, config.DatabaseURL, log, config.LimitMessages)
	if err != nil {
		return backend{}, fmt.Errorf("postgres connection failed: %w", err)
	}
	if config.Migrate {
		if err = store.Migrate(ctx); err != nil {
			store.Close()
			return backend{}, err
		}
	}
	listener := postgres.NewListener(log, config.DatabaseURL, registry)
	return backend{
		rooms:    store,
		messages: store,
		feed:     listener,
		workers:  []contract.Worker{listener},
		close: func() {
			log.Info("Closing Postgres pool...")
			store.Close()
		},
	}, nil
}

func console(ctx context.Context, in io.Reader, c *client.Client, term *terminal) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handle(ctx, c, term, line); quit {
				return nil
			}
		}
	}
}

// handle runs one console line and reports whether the user asked to quit.
func handle(ctx context.Context, c *client.Client, term *terminal, line string) bool {
	command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "":
	case "/quit":
		return true
	case "/help":
		term.info(help)
	case "/name":
		identity, err := c.SetName(arg)
		if err != nil {
			term.fail("Please enter your name: %v\n", err)
			return false
		}
		term.setSelf(identity.DisplayName)
		term.info("You are %s\n", identity.DisplayName)
	case "/rooms":
		term.rooms(c.Rooms())
	case "/create":
		// The room is announced by the room list subscription
		if _, err := c.CreateRoom(ctx, arg); err != nil {
			term.fail("Could not create room: %v\n", err)
		}
	case "/join":
		id, err := domain.ParseRoomID(arg)
		if err != nil {
			term.fail("Usage: /join <room id>\n")
			return false
		}
		room, err := c.JoinRoom(ctx, id)
		if err != nil {
			term.fail("Could not join room %s: %v\n", arg, err)
			return false
		}
		term.info("Joined %q\n", room.Name)
	case "/leave":
		c.LeaveRoom()
		term.rooms(c.Rooms())
	case "/sound":
		toggleSound(ctx, c, term)
	default:
		if err := c.Say(ctx, line); err != nil {
			term.fail("Message not sent: %v\n", err)
		}
	}
	return false
}

func toggleSound(ctx context.Context, c *client.Client, term *terminal) {
	if c.Sound().Enabled {
		c.DisableSound()
		term.info("Sound off\n")
		return
	}
	if _, err := c.EnableSound(ctx); err != nil {
		term.fail("Audio could not be enabled: %v\n", err)
		return
	}
	term.info("Sound on\n")
}
