package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"sort"
	"time"

	"golang.org/x/exp/maps"

	"github.com/docopt/docopt-go"
	"gopkg.in/yaml.v3"

	"github.com/pxlslib/pxls/pxls"
)

const PxlsCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

// ctlConfig is the optional yaml config file. Flags win over the file.
type ctlConfig struct {
	Site             string `yaml:"site"`
	ReconnectSeconds int    `yaml:"reconnect_seconds"`
}

func main() {
	usage := `Pxls canvas control.

Usage:
    pxlsctl watch [--site=<site>] [--reconnect=<seconds>] [--config=<config>] [--verbose]
    pxlsctl info [--site=<site>] [--config=<config>]
    pxlsctl stats [--site=<site>] [--config=<config>]

Options:
    -h --help              Show this screen.
    --version              Show version.
    --site=<site>          Canvas site base url, e.g. https://pxls.space
    --reconnect=<seconds>  Delay between reconnect attempts.
    --config=<config>      Yaml config file with site and reconnect_seconds.
    --verbose              Debug-level client logging (dispatch, cache fills).`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], PxlsCtlVersion)
	if err != nil {
		panic(err)
	}

	if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	} else if info_, _ := opts.Bool("info"); info_ {
		info(opts)
	} else if stats_, _ := opts.Bool("stats"); stats_ {
		stats(opts)
	}
}

func loadConfig(opts docopt.Opts) *ctlConfig {
	config := &ctlConfig{}
	if configPath, err := opts.String("--config"); err == nil && configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			Err.Fatalf("Could not read config: %s", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			Err.Fatalf("Could not parse config: %s", err)
		}
	}
	if site, err := opts.String("--site"); err == nil && site != "" {
		config.Site = site
	}
	if reconnect, err := opts.Int("--reconnect"); err == nil && 0 < reconnect {
		config.ReconnectSeconds = reconnect
	}
	if config.Site == "" {
		Err.Fatalf("Missing site. Pass --site or set site in the config file.")
	}
	return config
}

func newClient(config *ctlConfig, eventHandler pxls.EventHandler) *pxls.Client {
	siteBase, err := url.Parse(config.Site)
	if err != nil {
		Err.Fatalf("Bad site url: %s", err)
	}
	settings := pxls.DefaultClientSettings()
	settings.SiteBase = siteBase
	settings.EventHandler = eventHandler
	if 0 < config.ReconnectSeconds {
		settings.ReconnectTimeout = time.Duration(config.ReconnectSeconds) * time.Second
	}
	client, err := pxls.NewClient(context.Background(), settings)
	if err != nil {
		Err.Fatalf("Could not create client: %s", err)
	}
	return client
}

func watch(opts docopt.Opts) {
	if verbose, _ := opts.Bool("--verbose"); verbose {
		pxls.GlobalLogLevel = pxls.LogLevelDebug
	}
	config := loadConfig(opts)
	client := newClient(config, &watchHandler{})
	if err := client.Run(context.Background()); err != nil {
		Err.Fatalf("Watch ended: %s", err)
	}
}

type watchHandler struct {
	pxls.NoopEventHandler
}

func (self *watchHandler) HandleReady(client *pxls.Client) {
	Out.Printf("ready: %s", client.SiteBase())
}

func (self *watchHandler) HandleDisconnect(client *pxls.Client) {
	Out.Printf("disconnected")
}

func (self *watchHandler) HandleBoardUpdate(client *pxls.Client, pixels []pxls.Pixel) {
	for _, pixel := range pixels {
		Out.Printf("pixel (%d, %d) -> %d", pixel.X, pixel.Y, pixel.Color)
	}
}

func (self *watchHandler) HandleUserCount(client *pxls.Client, count int) {
	Out.Printf("users online: %d", count)
}

func (self *watchHandler) HandleAlert(client *pxls.Client, sender string, message string) {
	Out.Printf("alert from %s: %s", sender, message)
}

func (self *watchHandler) HandleChatMessage(client *pxls.Client, message pxls.ChatMessage) {
	Out.Printf("<%s> %s", message.Author, message.MessageRaw)
}

func (self *watchHandler) HandleUnknown(client *pxls.Client, text string) {
	Out.Printf("unknown frame: %s", text)
}

func info(opts docopt.Opts) {
	config := loadConfig(opts)
	client := newClient(config, &pxls.NoopEventHandler{})

	info, err := client.Info(context.Background())
	if err != nil {
		Err.Fatalf("Info failed: %s", err)
	}
	info.RLock()
	defer info.RUnlock()

	Out.Printf("canvas %s: %dx%d", info.Value.CanvasCode, info.Value.Width, info.Value.Height)
	Out.Printf("palette: %d colors", len(info.Value.Palette))
	Out.Printf("cooldown: %s (static %ds)", info.Value.CooldownInfo.Type, info.Value.CooldownInfo.StaticCooldownSeconds)
	Out.Printf("heatmap cooldown: %ds", info.Value.HeatmapCooldown)
	authServiceIds := maps.Keys(info.Value.AuthServices)
	sort.Strings(authServiceIds)
	for _, id := range authServiceIds {
		service := info.Value.AuthServices[id]
		Out.Printf("auth service %s: %s", id, service.Name)
	}
}

func stats(opts docopt.Opts) {
	config := loadConfig(opts)
	client := newClient(config, &pxls.NoopEventHandler{})

	stats, err := client.Stats(context.Background())
	if err != nil {
		Err.Fatalf("Stats failed: %s", err)
	}

	Out.Printf("generated at: %s", stats.GeneratedAt.Format(time.RFC3339))
	Out.Printf("total users: %d", stats.General.TotalUsers)
	Out.Printf("total pixels placed: %d", stats.General.TotalPixelsPlaced)
	Out.Printf("active this canvas: %d", stats.General.UsersActiveThisCanvas)
	for i, entry := range stats.Toplist.Canvas {
		if 10 <= i {
			break
		}
		Out.Printf("#%d %s (%d pixels)", entry.Place, entry.Username, entry.Pixels)
	}
}
