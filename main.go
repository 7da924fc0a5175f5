package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/chaos-io/maskswap/config"
	"github.com/chaos-io/maskswap/segment"
	"github.com/chaos-io/maskswap/segment/sam2"
	"github.com/chaos-io/maskswap/util"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `usage:
  maskswap run -original a.png -mask layer.png -replacement b.png [-out dir] [-config file]
  maskswap serve [-config file]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runCmd(args)
	case "serve":
		err = serveCmd(args)
	case "version":
		fmt.Printf("maskswap %s (%s, %s)\n", Version, GitCommit, BuildTime)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		util.Fatal("maskswap failed", zap.Error(err))
	}
	util.Sync()
}

// setup loads the config and configures the global logger.
func setup(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := util.InitLogger(cfg.Server.Mode, &util.LogFile{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSize,
		MaxAgeDays: cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// modelLoader brings up the SAM2 client described by cfg.
func modelLoader(cfg config.ModelConfig) segment.Loader {
	return func(ctx context.Context) (segment.Predictor, error) {
		if !cfg.Enabled {
			return nil, errors.New("model disabled by config")
		}
		client, err := sam2.Load(ctx, sam2.Options{
			Endpoint: cfg.Endpoint,
			Weights:  cfg.Weights,
			Timeout:  cfg.Timeout,
			MaxSide:  cfg.MaxSide,
		}, nil)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func newPipeline(ctx context.Context, cfg *config.Config) *segment.Pipeline {
	defer util.Trace("select provider")()
	return segment.NewPipeline(segment.SelectProvider(ctx, modelLoader(cfg.Model)))
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML config file")
	return fs, configPath
}
