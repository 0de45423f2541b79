package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	// A missing .env is fine.
	_ = godotenv.Load()

	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("stripstitch"),
		kong.Description("Crop images into strips and stitch them together."),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(&args.LogFlags); err != nil {
		return err
	}

	return nil
}

type LogFlags struct {
	Verbose bool   `help:"Enable verbose logging" default:"false" env:"STRIPSTITCH_VERBOSE"`
	LogFile string `help:"Also write JSON logs to this file, rotated by size" type:"path" env:"STRIPSTITCH_LOG_FILE"`
}

// setup configures the global logger and returns a context carrying it.
func (f *LogFlags) setup(ctx context.Context) context.Context {
	level := zerolog.InfoLevel
	if f.Verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.NewConsoleWriter()
	if f.LogFile != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   f.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	log.Logger = log.Output(w).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	return log.Logger.WithContext(ctx)
}

type EncodeFlags struct {
	Format  string `help:"Output format of the stitched image (jpeg or png)" default:"jpeg" enum:"jpeg,jpg,png" env:"STRIPSTITCH_FORMAT"`
	Quality int    `help:"JPEG quality of the stitched image" default:"92" env:"STRIPSTITCH_QUALITY"`
}

func (f EncodeFlags) options() (EncodeOptions, error) {
	format, err := ParseFormat(f.Format)
	if err != nil {
		return EncodeOptions{}, err
	}
	if f.Quality < 1 || f.Quality > 100 {
		return EncodeOptions{}, fmt.Errorf("quality %d out of range 1-100", f.Quality)
	}
	return EncodeOptions{Format: format, Quality: f.Quality}, nil
}

type serveCmd struct {
	RootDir     string `arg:"" optional:"" help:"Directory to browse and import images from"`
	Open        bool   `help:"Open the browser automatically when the server starts" default:"true" negatable:"" env:"STRIPSTITCH_OPEN"`
	Orientation string `help:"Crop orientation for new images" default:"vertical" enum:"vertical,horizontal" env:"STRIPSTITCH_ORIENTATION"`
	MaxUploadMB int    `help:"Maximum upload request size in megabytes" default:"256" env:"STRIPSTITCH_MAX_UPLOAD_MB"`
	EncodeFlags
}

func (cmd *serveCmd) Run(lf *LogFlags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = lf.setup(ctx)

	if cmd.RootDir != "" {
		if fi, err := os.Stat(cmd.RootDir); err != nil {
			return err
		} else if !fi.IsDir() {
			return fmt.Errorf("%s is not a directory", cmd.RootDir)
		}
	}
	opts, err := cmd.options()
	if err != nil {
		return err
	}
	ambient, err := ParseOrientation(cmd.Orientation)
	if err != nil {
		return err
	}

	app := NewWebApp(Config{
		RootDir:   cmd.RootDir,
		Studio:    NewStudio(ambient, opts),
		BodyLimit: cmd.MaxUploadMB * 1024 * 1024,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := browser.OpenURL(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type stitchCmd struct {
	Manifest string `arg:"" help:"YAML manifest listing the images and their crops" type:"existingfile"`
	Out      string `short:"o" help:"Where to write the stitched image (default: stitch-result.<format>)" type:"path"`
	Plan     bool   `help:"Print the blit plan as JSON lines instead of rendering"`
	EncodeFlags
}

func (cmd *stitchCmd) Run(lf *LogFlags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = lf.setup(ctx)

	m, err := LoadManifest(cmd.Manifest)
	if err != nil {
		return err
	}
	defaults, err := cmd.options()
	if err != nil {
		return err
	}

	ws, err := m.Workspace(ctx)
	if err != nil {
		return err
	}

	if cmd.Plan {
		layout, err := Plan(ws.Entries())
		if err != nil {
			return err
		}
		printJSONL(layout.Blits)
		return nil
	}

	result, err := Composite(ws.Entries(), m.EncodeOptions(defaults))
	if err != nil {
		return err
	}
	out, err := outputPath(cmd.Out, result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	log.Ctx(ctx).Info().
		Str("out", out).
		Int("width", result.Layout.Width).
		Int("height", result.Layout.Height).
		Msg("stitched")
	return nil
}

// outputPath picks the file the composite is written to. An empty out uses
// the result's own filename and an out without extension gets one; an
// extension naming another format is an error.
func outputPath(out string, result *CompositeResult) (string, error) {
	if out == "" {
		return result.Filename(), nil
	}
	ext := filepath.Ext(out)
	if ext == "" {
		return out + result.Options.Extension(), nil
	}
	if f, err := ParseFormat(ext); err == nil && f != result.Options.Format {
		return "", fmt.Errorf("%s does not match the %s output format", out, result.Options.Format)
	}
	return out, nil
}

type cliArgs struct {
	LogFlags `embed:""`

	Serve  serveCmd  `cmd:"" default:"withargs" help:"Serve the interactive stitcher in the browser"`
	Stitch stitchCmd `cmd:"" help:"Stitch the images listed in a manifest"`
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
