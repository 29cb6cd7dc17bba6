// Command conneg serves the resources of a manifest with static responses,
// or shows which operation a single request would be dispatched to.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/danielgtaylor/conneg"
	"github.com/danielgtaylor/conneg/adapters/conchi"
	"github.com/danielgtaylor/conneg/cli"
	_ "github.com/danielgtaylor/conneg/formats/cbor"
	_ "github.com/danielgtaylor/conneg/formats/yaml"
	"github.com/danielgtaylor/conneg/manifest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options are set with flags or `CONNEG_*` environment variables.
type Options struct {
	Manifest    string `doc:"Path to the resource manifest." short:"m" default:"conneg.yaml"`
	Host        string `doc:"Hostname to listen on."`
	Port        int    `doc:"Port to listen on." short:"p" default:"8888"`
	Prefix      string `doc:"Path prefix to serve resources under."`
	MetricsPath string `doc:"Path under which to expose metrics." default:"/metrics"`
	Debug       bool   `doc:"Enable debug logs." short:"d"`

	PartialSubtypeCheck       bool `doc:"Let plain subtypes match one half of a '+' composite subtype."`
	KeepSubresourceCandidates bool `doc:"Keep sub-resource locators competing with matching resource methods."`
	ReportFaultMessage        bool `doc:"Send dispatch diagnostics to clients as text/plain."`
}

func (o *Options) logger() *zap.Logger {
	level := zapcore.InfoLevel
	if o.Debug {
		level = zapcore.DebugLevel
	}
	logger, err := conneg.NewDefaultLogger(level)
	if err != nil {
		panic(err)
	}
	return logger
}

func (o *Options) dispatcher(logger *zap.Logger, metrics *conneg.Metrics) (*conneg.Dispatcher, error) {
	m, err := manifest.Load(o.Manifest)
	if err != nil {
		return nil, err
	}
	reg, err := m.Registry()
	if err != nil {
		return nil, err
	}
	return conneg.NewDispatcher(reg, conneg.Config{
		PartialSubtypeCheck:       o.PartialSubtypeCheck,
		KeepSubresourceCandidates: o.KeepSubresourceCandidates,
		ReportFaultMessage:        o.ReportFaultMessage,
		Logger:                    logger,
		Metrics:                   metrics,
	}), nil
}

func newCLI() cli.CLI {
	app := cli.New(func(hooks cli.Hooks, o *Options) {
		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", o.Host, o.Port),
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			logger := o.logger()
			defer logger.Sync()

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			d, err := o.dispatcher(logger, conneg.NewMetrics(registry))
			if err != nil {
				logger.Fatal("could not load manifest", zap.String("manifest", o.Manifest), zap.Error(err))
			}

			r := chi.NewRouter()
			r.Handle(o.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{
				ErrorLog: zap.NewStdLog(logger),
			}))
			conchi.Mount(r, o.Prefix, d)
			server.Handler = r

			logger.Info("starting server",
				zap.String("addr", server.Addr),
				zap.Int("resources", len(d.Registry().Resources())),
			)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		})
	})

	root := app.Root()
	root.Use = "conneg"
	root.Short = "Serve the resources of a manifest"

	match := &cobra.Command{
		Use:   "match METHOD PATH",
		Short: "Show the operation a request is dispatched to",
		Args:  cobra.ExactArgs(2),
		Run: cli.WithOptions(func(cmd *cobra.Command, args []string, o *Options) {
			contentType, _ := cmd.Flags().GetString("content-type")
			accept, _ := cmd.Flags().GetString("accept")

			logger := zap.NewNop()
			if o.Debug {
				logger = o.logger()
			}
			d, err := o.dispatcher(logger, nil)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				return
			}
			printMatch(cmd.OutOrStdout(), d, strings.ToUpper(args[0]), args[1], contentType, accept)
		}),
	}
	match.Flags().StringP("content-type", "c", "", "Request Content-Type.")
	match.Flags().StringP("accept", "a", "", "Request Accept header.")
	root.AddCommand(match)

	return app
}

func printMatch(w io.Writer, d *conneg.Dispatcher, method, path, contentType, accept string) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ex := conneg.NewExchange(method, path, path)
	sel, err := d.Dispatch(ex, contentType, accept)
	if err != nil {
		fmt.Fprintf(w, "status: %d\n", conneg.Status(err))
		var model *conneg.ErrorModel
		if errors.As(err, &model) && len(model.Allow) > 0 {
			fmt.Fprintf(w, "allow: %s\n", strings.Join(model.Allow, ", "))
		}
		fmt.Fprintf(w, "detail: %s\n", err.Error())
		return
	}

	for _, inv := range ex.Stack() {
		fmt.Fprintf(w, "operation: %s\n", inv.Operation)
	}
	if ex.ContentType != "" {
		fmt.Fprintf(w, "content-type: %s\n", ex.ContentType)
	}

	names := make([]string, 0, len(sel.Vars))
	for name := range sel.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "var: %s=%s\n", name, strings.Join(sel.Vars[name], ","))
	}
}

func main() {
	if err := newCLI().Run(); err != nil {
		os.Exit(1)
	}
}
