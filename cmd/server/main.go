// Command server runs the number-generation server process described
// in spec.md: it binds one UDP socket and serves every connecting
// client concurrently, each on its own session goroutine (internal/
// server.Handler). Grounded in the teacher's core/main.go (signal
// handling, structured startup logging, graceful shutdown).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ventosilenzioso/numberstream/internal/config"
	"github.com/ventosilenzioso/numberstream/internal/obslog"
	"github.com/ventosilenzioso/numberstream/internal/options"
	"github.com/ventosilenzioso/numberstream/internal/protocol"
	"github.com/ventosilenzioso/numberstream/internal/server"
	"github.com/ventosilenzioso/numberstream/internal/transport"
)

func main() {
	opts, err := options.ParseServer(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString("numberstream-server: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := obslog.New(opts.LogsPath)
	if err != nil {
		os.Stderr.WriteString("numberstream-server: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg, err := config.LoadServer(opts.ConfigPath)
	if err != nil {
		log.Fatal("failed to load config: %v", err)
	}

	socket, err := transport.Listen(cfg.Port)
	if err != nil {
		log.Fatal("failed to bind UDP socket on port %d: %v", cfg.Port, err)
	}
	defer socket.Close()

	log.Success("server listening on UDP port %d (protocol version %d)", cfg.Port, protocol.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn("received signal %v, shutting down", sig)
		cancel()
	}()

	handler := server.NewHandler(socket, log)
	if err := handler.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("server loop exited: %v", err)
	}

	log.Success("server stopped")
}
