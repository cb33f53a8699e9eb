// Command pdfkitd is a small HTTP daemon wrapping document for
// upload/validate/save workflows, for clients that would rather speak
// HTTP than link the Go module directly.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mechiko/pdfkit/config"
)

func main() {
	host := flag.String("host", "127.0.0.1", "listen host")
	port := flag.String("port", "8888", "listen port")
	xref := flag.String("xref", "stream", "cross-reference format for /save: table or stream")
	flag.Parse()

	cfg := config.Default()
	switch *xref {
	case "table":
		cfg.XRefMode = config.XRefModeTable
	case "stream":
		cfg.XRefMode = config.XRefModeStream
	default:
		fmt.Fprintf(os.Stderr, "pdfkitd: -xref must be table or stream, got %q\n", *xref)
		os.Exit(2)
	}

	s, err := New(*host, *port, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pdfkitd:", err)
		os.Exit(1)
	}

	s.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-s.Notify():
		if err != nil {
			fmt.Fprintln(os.Stderr, "pdfkitd:", err)
			os.Exit(1)
		}
	case <-sig:
		if err := s.Shutdown(); err != nil {
			fmt.Fprintln(os.Stderr, "pdfkitd: shutdown:", err)
			os.Exit(1)
		}
	}
}
