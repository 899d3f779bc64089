package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stoicbot/api"
	"stoicbot/assets"
	"stoicbot/common"
	"stoicbot/config"
	"stoicbot/content"
	"stoicbot/events"
	"stoicbot/inspire"
	"stoicbot/pipeline"
	"stoicbot/publish"
	"stoicbot/render"
	"stoicbot/scheduler"
	"stoicbot/state"
	"stoicbot/store"
	"stoicbot/types"
)

func main() {
	root := &cobra.Command{
		Use:          "stoicbot",
		Short:        "Automated wisdom content bot: generate, render, publish",
		SilenceUsage: true,
	}

	root.AddCommand(newPostCmd(), newServeCmd(), newStatsCmd(), newTokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components behind one teardown.
type app struct {
	cfg      *config.Settings
	orch     *pipeline.Orchestrator
	status   *state.Manager
	store    store.Store
	images   *assets.ImagePool
	themes   *inspire.ThemeProvider
	producer *events.Producer
}

func (a *app) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			log.Printf("warning: closing event producer: %v", err)
		}
	}
	if rs, ok := a.store.(*store.RedisStore); ok {
		if err := rs.Close(); err != nil {
			log.Printf("warning: closing redis store: %v", err)
		}
	}
}

// buildApp wires the full pipeline. dryRun skips publishing and resource
// commits.
func buildApp(ctx context.Context, dryRun bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.CohereAPIKey == "" {
		return nil, fmt.Errorf("COHERE_API_KEY is required")
	}

	var st store.Store
	switch cfg.StateBackend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		st = rs
	default:
		fs, err := store.NewFileStore(cfg.LogsPath)
		if err != nil {
			return nil, err
		}
		st = fs
	}

	gen := content.NewGenerator(content.GeneratorConfig{
		APIKey:      cfg.CohereAPIKey,
		Model:       cfg.CohereModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Personas:    cfg.Personas,
	})

	images := assets.NewImagePool(cfg.ImagesPath)
	audio := assets.NewAudioSelector(assets.AudioConfig{
		Root:         cfg.AudioPath,
		Mode:         cfg.AudioMode,
		AssetIDsFile: cfg.AudioAssetsFile,
	})

	renderer, err := render.NewRenderer(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	status := state.NewManager()

	a := &app{
		cfg:    cfg,
		status: status,
		store:  st,
		images: images,
	}

	orch := &pipeline.Orchestrator{
		Store:    st,
		Gen:      gen,
		Images:   images,
		Audio:    audio,
		Renderer: renderer,
		Status:   status,
		Rotation: pipeline.Rotation{
			FlashEvery:    cfg.FlashEvery,
			CarouselEvery: cfg.CarouselEvery,
			AnimatedEvery: cfg.AnimatedEvery,
		},
		Hashtags: defaultHashtags,
	}

	if cfg.AnimationURL != "" {
		orch.Animator = render.NewAnimatedRenderer(cfg.AnimationURL, cfg.AnimationKey, renderer)
	}

	if !dryRun {
		if err := cfg.RequirePublish(); err != nil {
			return nil, err
		}
		client := publish.NewClient(publish.ClientConfig{
			BaseURL:     cfg.GraphBaseURL,
			OwnerID:     cfg.OwnerID,
			AccessToken: cfg.AccessToken,
			ShareToFeed: cfg.ShareToFeed,
		})
		orch.Pub = client
		orch.Token = publish.NewTokenManager(client, cfg.AppID, cfg.AppSecret)
		orch.Host = buildHostChain(ctx, cfg)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(events.ProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Printf("warning: run event export disabled: %v", err)
		} else {
			orch.Events = producer
			a.producer = producer
		}
	}

	if cfg.ThemeFeedURL != "" {
		a.themes = inspire.NewThemeProvider(cfg.ThemeFeedURL)
	}

	a.orch = orch
	return a, nil
}

// buildHostChain assembles the media hosting fallback order: configured
// public base URL, then S3, then the multipart file host.
func buildHostChain(ctx context.Context, cfg *config.Settings) publish.Host {
	var chain publish.HostChain

	if cfg.PublicBaseURL != "" {
		chain = append(chain, publish.BaseURLHost{Base: cfg.PublicBaseURL})
	}
	if cfg.S3Bucket != "" {
		s3c, err := common.NewS3(ctx, common.S3Config{Region: cfg.S3Region})
		if err != nil {
			log.Printf("warning: s3 hosting disabled: %v", err)
		} else {
			chain = append(chain, &publish.S3Host{
				Client:     s3c,
				Bucket:     cfg.S3Bucket,
				Region:     cfg.S3Region,
				Prefix:     cfg.S3Prefix,
				PublicBase: cfg.S3PublicBase,
			})
		}
	}
	if cfg.FileHostURL != "" {
		chain = append(chain, &publish.FileHost{Endpoint: cfg.FileHostURL})
	}
	return chain
}

var defaultHashtags = []string{
	"#stoicism", "#wisdom", "#discipline", "#mindset",
	"#entrepreneur", "#philosophy", "#selfimprovement",
}

func newPostCmd() *cobra.Command {
	var (
		testMode bool
		theme    string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Run the pipeline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, testMode)
			if err != nil {
				return err
			}
			defer a.close()

			opts := pipeline.RunOptions{Theme: theme}
			if theme == "" && a.themes != nil {
				opts.Theme = a.themes.Theme(ctx)
			}
			switch format {
			case "":
			case string(types.FormatReel), string(types.FormatCarousel), string(types.FormatFlash), string(types.FormatAnimated):
				opts.Format = types.Format(format)
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			rec, err := a.orch.Run(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("run %s completed: %s #%d\n", rec.RunID, rec.Format, rec.Number)
			if rec.Output != nil && rec.Output.PostID != "" {
				fmt.Printf("post id: %s\n", rec.Output.PostID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&testMode, "test", false, "render without publishing or consuming assets")
	cmd.Flags().StringVar(&theme, "theme", "", "theme hint for content generation")
	cmd.Flags().StringVar(&format, "format", "", "force a format: reel, carousel, flash, animated")
	return cmd
}

func newServeCmd() *cobra.Command {
	var testMode bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and status API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := buildApp(ctx, testMode)
			if err != nil {
				return err
			}
			defer a.close()

			server := api.NewServer(a.status, a.store, a.images, a.orch, a.cfg.APIPort)
			server.Start()

			sched := scheduler.New(func(runCtx context.Context) error {
				opts := pipeline.RunOptions{}
				if a.themes != nil {
					opts.Theme = a.themes.Theme(runCtx)
				}
				_, err := a.orch.Run(runCtx, opts)
				return err
			}, a.cfg.Jitter)
			if err := sched.Start(ctx, a.cfg.PostTimes); err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			log.Println("shutting down...")
			cancel()
			sched.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&testMode, "test", false, "schedule dry runs that never publish")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the post counter, asset stats, and today's runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			count, err := a.store.ReadCounter(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("posts published: %d\n", count)
			fmt.Printf("next format: %s\n", a.orch.Rotation.ChooseFormat(count+1))

			stats := a.images.Stats()
			fmt.Printf("images: %d curated, %d generated, %d used\n",
				stats.Curated, stats.Generated, stats.Used)

			runs, err := a.store.RunsForDay(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("runs today: %d\n", len(runs))
			for _, rec := range runs {
				fmt.Printf("  %s  %-8s #%-3d %s\n",
					rec.StartTime.Format("15:04:05"), rec.Format, rec.Number, rec.Status)
			}
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		refresh bool
		verify  bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect (and optionally refresh) the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequirePublish(); err != nil {
				return err
			}

			client := publish.NewClient(publish.ClientConfig{
				BaseURL:     cfg.GraphBaseURL,
				OwnerID:     cfg.OwnerID,
				AccessToken: cfg.AccessToken,
			})
			tm := publish.NewTokenManager(client, cfg.AppID, cfg.AppSecret)

			info, err := tm.Inspect(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("valid: %t\n", info.Valid)
			if !info.ExpiresAt.IsZero() {
				fmt.Printf("expires: %s (%s remaining)\n",
					info.ExpiresAt.Format(time.RFC3339),
					time.Until(info.ExpiresAt).Round(time.Hour))
			} else {
				fmt.Println("expires: never")
			}
			if len(info.Scopes) > 0 {
				fmt.Printf("scopes: %v\n", info.Scopes)
			}

			if verify {
				acct, err := client.VerifyCredentials(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("account: %s (id %s)\n", acct.Username, acct.ID)
			}

			if refresh {
				token, err := tm.Refresh(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("new token issued (%d chars); update PLATFORM_ACCESS_TOKEN\n", len(token))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "exchange for a fresh long-lived token")
	cmd.Flags().BoolVar(&verify, "verify", false, "confirm the token can read the account")
	return cmd
}
