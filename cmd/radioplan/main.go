// radioplan 排班引擎服务与命令行工具
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/radioplan/radioplan/internal/config"
	"github.com/radioplan/radioplan/internal/database"
	"github.com/radioplan/radioplan/internal/handler"
	"github.com/radioplan/radioplan/internal/metrics"
	"github.com/radioplan/radioplan/internal/middleware"
	"github.com/radioplan/radioplan/internal/repository"
	"github.com/radioplan/radioplan/pkg/calendar"
	"github.com/radioplan/radioplan/pkg/export"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/planner"
	"github.com/radioplan/radioplan/pkg/snapshot"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "radioplan",
		Short:         "医生排班引擎",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (yaml/json/toml)")

	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(resolveCmd(&configFile))
	rootCmd.AddCommand(conflictsCmd(&configFile))
	rootCmd.AddCommand(exportCmd(&configFile))
	rootCmd.AddCommand(migrateCmd(&configFile))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// setup 加载配置并初始化日志，output 为日志输出位置
func setup(configFile, output string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Level:      cfg.App.LogLevel,
		Format:     cfg.App.LogFormat,
		Output:     output,
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

func newPlanner(cfg *config.Config) *planner.Planner {
	return planner.New(planner.Options{
		MonthWeeks:     cfg.Planner.MonthWeeks,
		MaxSuggestions: cfg.Planner.MaxSuggestions,
	})
}

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(*configFile, "stdout")
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	log := *logger.Get()

	var store repository.SnapshotStore = repository.NewMemorySnapshotStore()
	var db *database.DB
	if cfg.Database.Enabled {
		var err error
		db, err = database.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("连接数据库失败: %w", err)
		}
		defer db.Close()
		store = repository.NewSnapshotRepository(db)
	} else {
		log.Warn().Msg("未启用数据库，配置仅保存在内存中")
	}

	h := handler.New(newPlanner(cfg), store, Version)
	if db != nil {
		h.WithHealthCheck("database", func(ctx context.Context) error {
			stats := db.Stats()
			metrics.RecordDBStats(stats.OpenConnections, stats.InUse, stats.Idle)
			return db.Health(ctx)
		})
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Server.ReadTimeout = cfg.API.Timeout
	e.Server.WriteTimeout = 2 * cfg.API.Timeout

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(log))
	e.Use(middleware.Recovery(log))
	e.Use(middleware.SecurityHeaders())
	if cfg.API.CORSEnabled {
		e.Use(middleware.CORS(cfg.API.CORSOrigins))
	}
	rateCfg := middleware.DefaultRateLimitConfig()
	rateCfg.RequestsPerSecond = cfg.API.RateLimit
	rateCfg.BurstSize = int(2*cfg.API.RateLimit) + 1
	e.Use(middleware.RateLimit(rateCfg))

	h.Register(e)
	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(metrics.Handler()))
	}

	go func() {
		log.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Bool("database", cfg.Database.Enabled).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := e.Start(fmt.Sprintf(":%d", cfg.App.Port)); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	log.Info().Msg("服务器已关闭")
	return nil
}

// weekFlags resolve 与 conflicts 共用的参数
type weekFlags struct {
	week       string
	snapshot   string
	noAutoFill bool
}

func (f *weekFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.week, "week", "w", "", "目标周内任意日期 YYYY-MM-DD，默认本周")
	cmd.Flags().StringVarP(&f.snapshot, "snapshot", "s", "", "配置包 JSON 文件，- 表示标准输入")
	cmd.Flags().BoolVar(&f.noAutoFill, "no-autofill", false, "不自动分配活动排班位")
	_ = cmd.MarkFlagRequired("snapshot")
}

// run 读取配置包并运行完整流程
func (f *weekFlags) run(cmd *cobra.Command, configFile string) (*planner.WeekResult, error) {
	result, _, err := f.runWithSnapshot(cmd, configFile)
	return result, err
}

func (f *weekFlags) runWithSnapshot(cmd *cobra.Command, configFile string) (*planner.WeekResult, *model.Snapshot, error) {
	cfg, err := setup(configFile, "stderr")
	if err != nil {
		return nil, nil, err
	}

	week := time.Now()
	if f.week != "" {
		week, err = calendar.ParseDate(f.week)
		if err != nil {
			return nil, nil, fmt.Errorf("无效的 --week %q: %w", f.week, err)
		}
	}

	snap, err := readSnapshot(cmd.InOrStdin(), f.snapshot)
	if err != nil {
		return nil, nil, err
	}
	return newPlanner(cfg).Pipeline(week, snap, !f.noAutoFill), snap, nil
}

func readSnapshot(stdin io.Reader, path string) (*model.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置包失败: %w", err)
	}
	return snapshot.Import(&model.Snapshot{}, data)
}

func resolveCmd(configFile *string) *cobra.Command {
	var flags weekFlags
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "解析一周排班并输出 JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := flags.run(cmd, *configFile)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	flags.bind(cmd)
	return cmd
}

func conflictsCmd(configFile *string) *cobra.Command {
	var flags weekFlags
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "列出一周的冲突",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := flags.run(cmd, *configFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(result.Conflicts) == 0 {
				fmt.Fprintf(out, "%s 周无冲突\n", result.WeekStart)
				return nil
			}
			for _, c := range result.Conflicts {
				fmt.Fprintf(out, "%-16s %-8s %-40s %s\n", c.Type, c.Severity, c.SlotID, c.Description)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func exportCmd(configFile *string) *cobra.Command {
	var (
		flags    weekFlags
		format   string
		doctorID string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出一周排班为 Excel 或 iCalendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, snap, err := flags.runWithSnapshot(cmd, *configFile)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "xlsx":
				buf, err := export.Workbook(result.Slots, result.Conflicts, snap.Doctors)
				if err != nil {
					return err
				}
				data = buf.Bytes()
			case "ics":
				out, err := export.Calendar(result.Slots, snap.Doctors, export.CalendarOptions{
					DoctorID: doctorID,
					Now:      time.Now(),
				})
				if err != nil {
					return err
				}
				data = []byte(out)
			default:
				return fmt.Errorf("未知格式 %q，应为 xlsx 或 ics", format)
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", output, err)
			}
			logger.Info().Str("file", output).Int("slots", len(result.Slots)).Msg("排班已导出")
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "导出格式 xlsx 或 ics")
	cmd.Flags().StringVar(&doctorID, "doctor", "", "ics 只导出该医生的排班位")
	cmd.Flags().StringVarP(&output, "out", "o", "", "输出文件，默认标准输出")
	return cmd
}

func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据库表",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(*configFile, "stderr")
			if err != nil {
				return err
			}
			db, err := database.New(&cfg.Database)
			if err != nil {
				return fmt.Errorf("连接数据库失败: %w", err)
			}
			defer db.Close()

			return db.Migrate(cmd.Context())
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
