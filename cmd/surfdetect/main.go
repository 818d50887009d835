// Command surfdetect loads an image, runs the surf detector pipeline on
// it, and prints the detected locations and descriptors as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naisuuuu/surf"
	"github.com/naisuuuu/surf/configtext"
	"github.com/naisuuuu/surf/imgconv"
)

var (
	version = "dev"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to a configtext configuration file. (default built-in defaults)")
	numberOfLevels := flag.Int("levels", 0, "Override Hessian.NumberOfLevels. (0 leaves the config value untouched)")
	ver := flag.Bool("version", false, "Print version information.")
	verbose := flag.Bool("v", false, "Enable debug logging.")

	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *ver {
		log.Info().Str("version", version).Str("date", date).Msg("surfdetect")
		return
	}

	if flag.NArg() != 1 {
		log.Fatal().Msg("usage: surfdetect [flags] <image>")
	}
	path := flag.Arg(0)

	cfg := surf.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("cannot open config")
		}
		cfg, err = configtext.Decode(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot decode config")
		}
	}
	if *numberOfLevels > 0 {
		cfg.Hessian.NumberOfLevels = *numberOfLevels
	}

	detector, err := surf.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	img, err := imgconv.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("cannot load image")
	}

	start := time.Now()
	ctx := context.Background()
	result, err := detector.Detect(ctx, img)
	if err != nil {
		log.Fatal().Err(err).Msg("detection failed")
	}
	log.Debug().
		Int("locations", len(result.Locations)).
		Dur("elapsed", time.Since(start)).
		Msg("detection complete")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("cannot encode result")
	}
}
