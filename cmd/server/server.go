// Command server runs the TCP front end for a single-symbol matching
// engine, with NDJSON snapshot/recovery persistence to disk.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"emberbook/internal/engine"
	"emberbook/internal/journal"
	"emberbook/internal/net"
)

func main() {
	address := flag.String("address", "0.0.0.0", "address to listen on")
	port := flag.Int("port", 9001, "port to listen on")
	symbol := flag.String("symbol", "AAPL", "symbol this book trades")
	dataDir := flag.String("data-dir", "./data", "directory for snapshot and trade logs")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	rec, err := journal.New(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open journal")
	}

	book := engine.New(*symbol, rec)
	book.Recover()

	srv := net.New(*address, *port, book)
	book.SetReporter(srv)

	go srv.Run(ctx)
	<-ctx.Done()
}
