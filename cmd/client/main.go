// Command client runs one number-generation request against a server
// and persists the merged, descending result to disk. Grounded in the
// teacher's core/main.go startup/shutdown pattern, adapted to a single
// bounded request/response run instead of a long-lived game loop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ventosilenzioso/numberstream/internal/client"
	"github.com/ventosilenzioso/numberstream/internal/config"
	"github.com/ventosilenzioso/numberstream/internal/obslog"
	"github.com/ventosilenzioso/numberstream/internal/options"
	"github.com/ventosilenzioso/numberstream/internal/transport"
)

func main() {
	opts, err := options.ParseClient(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString("numberstream-client: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := obslog.New(opts.LogsPath)
	if err != nil {
		os.Stderr.WriteString("numberstream-client: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg, err := config.LoadClient(opts.ConfigPath)
	if err != nil {
		log.Fatal("failed to load config: %v", err)
	}

	socket, serverAddr, err := transport.Dial(cfg.Host, cfg.Port)
	if err != nil {
		log.Fatal("failed to dial server %s:%d: %v", cfg.Host, cfg.Port, err)
	}
	defer socket.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn("received signal %v, aborting run", sig)
		cancel()
	}()

	log.Info("requesting %d numbers in [-%g, %g) from %s:%d", cfg.NumbersCount, cfg.UpperBound, cfg.UpperBound, cfg.Host, cfg.Port)

	handler := client.NewHandler(socket, serverAddr, log)
	result, err := handler.Run(ctx, cfg.NumbersCount, cfg.UpperBound)
	if err != nil {
		log.Fatal("run failed: %v", err)
	}

	if err := client.PersistResult(opts.NumbersPath, result); err != nil {
		log.Fatal("failed to persist result to %s: %v", opts.NumbersPath, err)
	}

	log.Success("received %d numbers, persisted to %s", len(result.Numbers), opts.NumbersPath)
}
