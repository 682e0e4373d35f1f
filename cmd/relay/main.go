// Command relay runs the credential-injecting completion relay.
// Simulation hosts point inference.base_url at this process and never
// see the API key.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/sparkfield/sparkfield/internal/relay"
)

func main() {
	listen := flag.String("listen", ":8787", "listen address")
	upstream := flag.String("upstream", "", "upstream messages endpoint (default: hosted API)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	apiKey := os.Getenv("SPARKFIELD_API_KEY")
	h, err := relay.New(apiKey, *upstream)
	if err != nil {
		fmt.Fprintln(os.Stderr, "relay:", err)
		os.Exit(1)
	}

	slog.Info("relay starting", "addr", *listen)
	if err := http.ListenAndServe(*listen, h.Mux()); err != nil {
		slog.Error("relay server error", "error", err)
		os.Exit(1)
	}
}
