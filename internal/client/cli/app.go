// Package cli is the interactive Rosterhub client: a small REPL over the
// session controller and the directory paginator.
package cli

import (
	"bufio"
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dpetukhov/rosterhub/internal/client/config"
	"github.com/dpetukhov/rosterhub/internal/client/directory"
	"github.com/dpetukhov/rosterhub/internal/client/httpapi"
	"github.com/dpetukhov/rosterhub/internal/client/session"
	"github.com/dpetukhov/rosterhub/internal/logging"
	"github.com/dpetukhov/rosterhub/internal/netx"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config    *config.Config
	api       *httpapi.Client
	session   *session.Controller
	directory *directory.Paginator
	probe     *netx.DialProbe
	reader    *bufio.Reader
	Mode      Mode
}

func NewApp(c *config.Config) *App {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	api := httpapi.New(c.ServerURL(), logger)
	probe := netx.NewDialProbe(c.ServerEndpointAddr)

	return &App{
		config:    c,
		api:       api,
		session:   session.NewController(api, api, api, probe, logger),
		directory: directory.NewPaginator(api, logger, c.PageSize),
		probe:     probe,
		reader:    bufio.NewReader(os.Stdin),
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.session.Close()
	a.Root(ctx)
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

// StartOnlineStatusWatcher probes the server endpoint on a ticker and
// reports connectivity transitions.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.probe.Online() {
				a.setMode(ModeOnline)
			} else {
				a.setMode(ModeOffline)
			}
		case <-ctx.Done():
			return
		}
	}
}
