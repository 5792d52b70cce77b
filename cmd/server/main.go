package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vsiao/sprintergories/internal/config"
	"github.com/vsiao/sprintergories/internal/room"
	"github.com/vsiao/sprintergories/internal/tree"
	"github.com/vsiao/sprintergories/internal/ws"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SPRINTERGORIES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sprintergories",
		Short:         "Realtime Scattergories-style party game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: SPRINTERGORIES_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: SPRINTERGORIES_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "external base URL used in join links (env: SPRINTERGORIES_PUBLIC_URL)")
	fs.StringVar(&cfg.CategoryPool, "category-pool", "", "newline-separated category file replacing the built-in pool (env: SPRINTERGORIES_CATEGORY_POOL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: SPRINTERGORIES_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("sprintergories v{{.Version}}\n")

	return cmd
}

func run(cfg *config.Config) error {
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	store := tree.New()
	coord := room.NewCoordinator(store)
	if cfg.CategoryPool != "" {
		pool, err := loadPool(cfg.CategoryPool)
		if err != nil {
			return err
		}
		coord.Pool = pool
		zerologlog.Info().Int("categories", len(pool)).Str("file", cfg.CategoryPool).Msg("loaded category pool")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Server clock for client countdown offset correction.
	r.GET("/api/time", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"serverTime": store.NowMillis()})
	})

	// PNG QR code for a room's join link.
	r.GET("/qr/:roomId", func(c *gin.Context) {
		roomID := c.Param("roomId")
		base := cfg.PublicURL
		if base == "" {
			scheme := "http"
			if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
				scheme = proto
			}
			base = scheme + "://" + c.Request.Host
		}
		png, err := qrcode.Encode(strings.TrimSuffix(base, "/")+"/room/"+roomID, qrcode.Medium, 256)
		if err != nil {
			c.String(http.StatusInternalServerError, "qr generation failed")
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	sock := ws.New(store, coord)
	io := sock.Mount(r)
	defer io.Close()

	zerologlog.Info().Str("addr", cfg.Addr()).Msg("listening")
	return r.Run(cfg.Addr())
}

func loadPool(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category pool: %w", err)
	}
	var pool []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			pool = append(pool, line)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("category pool %s is empty", path)
	}
	return pool, nil
}
