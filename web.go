package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog/log"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type Config struct {
	// RootDir enables browsing and importing images from a local directory.
	RootDir          string
	Studio           *Studio
	BodyLimit        int
	OnBeforeShutdown func()
	OnReady          func(addr string)
}

type WebApp struct {
	config       Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func (a *WebApp) newServer(ctx context.Context) *fiber.App {
	bodyLimit := a.config.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(c.UserContext()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
					return nil
				}
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	webapp.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(ctx)
		return c.Next()
	})

	studio := a.config.Studio

	webapp.Get("/api/state", func(c *fiber.Ctx) error {
		return c.JSON(studio.State())
	})

	webapp.Post("/api/commands", func(c *fiber.Ctx) error {
		var request struct {
			Commands Commands `json:"commands"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		for _, cmd := range request.Commands {
			if err := studio.Exec(c.UserContext(), cmd); err != nil {
				return fmt.Errorf("%s: %w", cmd, err)
			}
		}
		return c.JSON(studio.State())
	})

	webapp.Post("/api/images", func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		var sources []Source
		for _, fh := range form.File["files"] {
			sources = append(sources, Source{
				Name: fh.Filename,
				Open: func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
		if _, err := studio.AddImages(c.UserContext(), sources); err != nil {
			return err
		}
		return c.JSON(studio.State())
	})

	webapp.Get("/api/images/:id", func(c *fiber.Ctx) error {
		bitmap, ok := studio.Bitmap(c.Params("id"))
		if !ok {
			return fiber.ErrNotFound
		}
		c.Set(fiber.HeaderContentType, "image/png")
		c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
		return imaging.Encode(c, bitmap, imaging.PNG)
	})

	webapp.Get("/api/result", func(c *fiber.Ctx) error {
		result, ok := studio.Result()
		if !ok {
			return fiber.ErrNotFound
		}
		c.Set(fiber.HeaderContentType, result.Options.ContentType())
		c.Set(fiber.HeaderCacheControl, "no-store")
		if c.QueryBool("download") {
			c.Attachment(result.Filename())
		}
		return c.Send(result.Data)
	})

	if root := a.config.RootDir; root != "" {
		a.mountRootDir(webapp, root)
	}

	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

func (a *WebApp) mountRootDir(webapp *fiber.App, root string) {
	filesRoot := http.Dir(root)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/ls", func(c *fiber.Ctx) error {
		dir, err := walkImages(c.UserContext(), root)
		if err != nil {
			return fmt.Errorf("failed to walk dir: %w", err)
		}

		type entry struct {
			FileInfo
			URL string `json:"url"`
		}
		var response struct {
			Name  string  `json:"name"`
			Files []entry `json:"files"`
		}
		response.Name = dir.Name
		response.Files = make([]entry, 0, len(dir.Files))
		for _, f := range dir.Files {
			response.Files = append(response.Files, entry{
				FileInfo: f,
				URL:      "/api/view?file=" + url.QueryEscape(f.Name),
			})
		}
		return c.JSON(response)
	})

	webapp.Post("/api/import", func(c *fiber.Ctx) error {
		var request struct {
			Files []string `json:"files"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		var sources []Source
		for _, name := range request.Files {
			local := filepath.FromSlash(name)
			if !filepath.IsLocal(local) {
				return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("invalid file name %q", name))
			}
			sources = append(sources, FileSource(name, filepath.Join(root, local)))
		}
		if _, err := a.config.Studio.AddImages(c.UserContext(), sources); err != nil {
			return err
		}
		return c.JSON(a.config.Studio.State())
	})
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.newServer(ctx)

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	// Use the listener that was already created
	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
