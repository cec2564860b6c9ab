// cmd/dashboard/command/command.go
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"respond-dashboard/application/bootstrap"
	"respond-dashboard/internal/core/domain/kpi"
	"respond-dashboard/internal/delivery/surface"
	"respond-dashboard/internal/infrastructure/api/respond"
	"respond-dashboard/internal/infrastructure/config"
	"respond-dashboard/internal/infrastructure/persistence/postgres"
	"respond-dashboard/internal/infrastructure/persistence/postgres/repository/refresh_cycle"
	"respond-dashboard/pkg/logger"
	"respond-dashboard/pkg/utils"

	"github.com/spf13/cobra"
)

// GlobalParams общие флаги всех команд
type GlobalParams struct {
	EnvFile  string
	LogLevel string
	Surface  string

	config *config.Config
}

// RootCommand корневая команда dashboard
func RootCommand() *cobra.Command {
	var global GlobalParams

	root := &cobra.Command{
		Use:          "dashboard [command]",
		Short:        "Дашборд прогноза лидов, KPI и аномалий",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return global.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if l := logger.GetLogger(); l != nil {
				l.Close()
			}
		},
	}

	pflags := root.PersistentFlags()
	pflags.StringVarP(&global.EnvFile, "env", "e", ".env", "путь к .env файлу")
	pflags.StringVar(&global.LogLevel, "log-level", "", "уровень логирования (debug, info, warn, error)")
	pflags.StringVar(&global.Surface, "surface", "", "поверхность отображения (memory, redis, console)")

	root.AddCommand(Commands(&global)...)
	return root
}

func (g *GlobalParams) load() error {
	cfg, err := config.LoadConfig(g.EnvFile)
	if err != nil {
		return err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if err := logger.InitGlobal(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.DebugMode); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	g.config = cfg
	return nil
}

func (g *GlobalParams) build(opts ...bootstrap.AppOption) (*bootstrap.Application, error) {
	b := bootstrap.NewAppBuilder().
		WithConfig(g.config).
		WithOption(bootstrap.WithSurfaceBackend(g.Surface))
	for _, opt := range opts {
		b.WithOption(opt)
	}
	return b.Build()
}

// Commands подкоманды dashboard
func Commands(global *GlobalParams) []*cobra.Command {
	var cmds []*cobra.Command

	cmds = append(cmds, &cobra.Command{
		Use:   "run",
		Short: "Запускает дашборд: цикл обновления каждые 30с и HTTP сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			global.config.PrintSummary()
			app, err := global.build()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	})

	{
		var asJSON bool
		cmd := &cobra.Command{
			Use:   "once",
			Short: "Выполняет один цикл обновления и печатает виджеты",
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := global.build(bootstrap.WithoutHTTP())
				if err != nil {
					return err
				}
				report, err := app.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				return printCycle(cmd.OutOrStdout(), app, report.Failed(), asJSON)
			},
		}
		cmd.Flags().BoolVar(&asJSON, "json", false, "вывод в JSON")
		cmds = append(cmds, cmd)
	}

	{
		var months int
		cmd := &cobra.Command{
			Use:   "latest-metrics",
			Short: "Показывает KPI последнего месяца",
			RunE: func(cmd *cobra.Command, args []string) error {
				if months <= 0 {
					months = global.config.Dashboard.MetricsMonths
				}
				client := respond.NewClient(global.config)
				rows, err := client.GetMetrics(cmd.Context(), months)
				if err != nil {
					return err
				}
				latest, ok := kpi.LatestMonthly(rows)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Нет данных")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "Месяц\t%s\n", orPlaceholder(latest.Month))
				fmt.Fprintf(w, "Лиды\t%s\n", utils.FormatOptional(latest.Leads, 0))
				fmt.Fprintf(w, "CPL\t%s\n", utils.FormatOptional(latest.CPL, 2))
				fmt.Fprintf(w, "ROI\t%s\n", utils.FormatOptional(latest.ROI, 2))
				return w.Flush()
			},
		}
		cmd.Flags().IntVar(&months, "months", 0, "сколько месяцев запросить (по умолчанию METRICS_MONTHS)")
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, &cobra.Command{
		Use:   "health",
		Short: "Проверяет доступность сервиса прогнозов",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := respond.NewClient(global.config)
			start := time.Now()
			if err := client.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s ok (%s)\n", global.config.API.BaseURL, utils.FormatDuration(time.Since(start)))
			return nil
		},
	})

	{
		var limit int
		cmd := &cobra.Command{
			Use:   "history",
			Short: "Последние циклы из журнала PostgreSQL",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := postgres.Connect(cmd.Context(), global.config)
				if err != nil {
					return err
				}
				defer db.Close()

				rows, err := refresh_cycle.NewRepository(db).Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ЦИКЛ\tНАЧАЛО\tДЛИТ.\tОК\tОШИБКИ\tКАТЕГОРИИ")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%dms\t%d\t%d\t%s\n",
						r.ID.String()[:8], r.StartedAt.Local().Format("01-02 15:04:05"),
						r.DurationMs, r.Succeeded, r.Failed, orPlaceholder(r.FailedKinds))
				}
				return w.Flush()
			},
		}
		cmd.Flags().IntVarP(&limit, "limit", "n", refresh_cycle.DefaultRecentLimit, "количество циклов")
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, migrateCommand(global))
	return cmds
}

func migrateCommand(global *GlobalParams) *cobra.Command {
	withMigrator := func(ctx context.Context, fn func(*postgres.Migrator) error) error {
		cfg := *global.config
		cfg.Database.EnableAutoMigrate = false
		db, err := postgres.Connect(ctx, &cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		m := postgres.NewMigrator(db)
		if err := m.Init(ctx); err != nil {
			return err
		}
		if err := m.LoadMigrations(postgres.EmbeddedMigrations()); err != nil {
			return err
		}
		return fn(m)
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции журнала циклов",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Применяет новые миграции",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd.Context(), func(m *postgres.Migrator) error {
					return m.Migrate(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Откатывает последнюю миграцию",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd.Context(), func(m *postgres.Migrator) error {
					return m.Rollback(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Состояние миграций",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd.Context(), func(m *postgres.Migrator) error {
					status, err := m.Status(cmd.Context())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					for _, s := range status {
						mark := "⏳"
						if s.Applied {
							mark = "✅"
						}
						fmt.Fprintf(w, "%s\t%03d\t%s\t%s\n", mark, s.ID, s.Name, s.Description)
					}
					return w.Flush()
				})
			},
		},
	)
	return cmd
}

// printCycle виджеты после цикла; ненулевое число ошибок дает ошибку команды
func printCycle(out io.Writer, app *bootstrap.Application, failed int, asJSON bool) error {
	snapshot := app.Widgets().Snapshot()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, id := range surface.DefaultWidgets {
			widget := snapshot[id]
			text := widget.Text
			if widget.HasImage {
				text = "[png]"
			}
			fmt.Fprintf(w, "%s\t%s\n", id, orPlaceholder(text))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d из 3 загрузчиков завершились с ошибкой", failed)
	}
	return nil
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return utils.Placeholder
	}
	return s
}
