// Package cli builds command line interfaces whose options come from a Go
// struct. Each field becomes a persistent flag which may also be set from an
// environment variable, e.g. `--report-fault-message` or
// `CONNEG_REPORT_FAULT_MESSAGE=true`.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/casing"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to option names to get their environment variable.
const EnvPrefix = "CONNEG"

// CLI is a command line interface with typed options.
type CLI interface {
	// Run parses the arguments and environment, then runs the selected
	// command. The root command calls the `OnStart` callback and waits for it
	// to return or for an interrupt.
	Run() error

	// Root returns the root Cobra command. Use it to add subcommands.
	Root() *cobra.Command
}

// Hooks are set from the parsed callback to start and stop a server.
type Hooks interface {
	// OnStart sets a blocking function which runs the server.
	OnStart(func())

	// OnStop sets a function which shuts the server down on interrupt.
	OnStop(func())
}

type contextKey string

var optionsKey contextKey = "conneg/cli/options"

var durationType = reflect.TypeOf(time.Duration(0))

// WithOptions wraps a Cobra run function so it receives the parsed options.
//
//	cmd.Run = cli.WithOptions(func(cmd *cobra.Command, args []string, o *Options) {
//		fmt.Println(o.Port)
//	})
func WithOptions[Options any](f func(cmd *cobra.Command, args []string, options *Options)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		options := cmd.Context().Value(optionsKey).(*Options)
		f(cmd, args, options)
	}
}

type option struct {
	name string
	typ  reflect.Type
	path []int
}

type cli[Options any] struct {
	root     *cobra.Command
	optInfo  []option
	cfg      *viper.Viper
	onParsed func(Hooks, *Options)
	start    func()
	stop     func()
}

func (c *cli[Options]) Run() error {
	var o Options

	existing := c.root.PersistentPreRun
	c.root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Load config from args/env.
		v := reflect.ValueOf(&o).Elem()
		for _, opt := range c.optInfo {
			f := v
			for _, i := range opt.path {
				f = f.Field(i)
			}
			switch {
			case opt.typ == durationType:
				f.Set(reflect.ValueOf(c.cfg.GetDuration(opt.name)))
			case opt.typ.Kind() == reflect.String:
				f.Set(reflect.ValueOf(c.cfg.GetString(opt.name)).Convert(opt.typ))
			case opt.typ.Kind() == reflect.Int || opt.typ.Kind() == reflect.Int64:
				f.Set(reflect.ValueOf(c.cfg.GetInt64(opt.name)).Convert(opt.typ))
			case opt.typ.Kind() == reflect.Bool:
				f.Set(reflect.ValueOf(c.cfg.GetBool(opt.name)))
			}
		}

		if c.onParsed != nil {
			c.onParsed(c, &o)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), optionsKey, &o))

		if existing != nil {
			existing(cmd, args)
		}
	}

	return c.root.Execute()
}

func (c *cli[O]) Root() *cobra.Command {
	return c.root
}

func (c *cli[O]) OnStart(fn func()) {
	c.start = fn
}

func (c *cli[O]) OnStop(fn func()) {
	c.stop = fn
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func (c *cli[O]) setupOptions(flags *pflag.FlagSet, t reflect.Type, path []int) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		currentPath := append([]int{}, path...)
		currentPath = append(currentPath, i)

		if field.Anonymous {
			// Embedded struct. This enables composition from shared defaults.
			c.setupOptions(flags, deref(field.Type), currentPath)
			continue
		}

		name := field.Tag.Get("name")
		if name == "" {
			name = casing.Kebab(field.Name)
		}
		short := field.Tag.Get("short")
		doc := field.Tag.Get("doc")
		def := field.Tag.Get("default")

		c.optInfo = append(c.optInfo, option{name, field.Type, currentPath})
		switch {
		case field.Type == durationType:
			var d time.Duration
			if def != "" {
				d = must(time.ParseDuration(def))
			}
			c.cfg.SetDefault(name, d)
			flags.DurationP(name, short, d, doc)
		case field.Type.Kind() == reflect.String:
			c.cfg.SetDefault(name, def)
			flags.StringP(name, short, def, doc)
		case field.Type.Kind() == reflect.Int || field.Type.Kind() == reflect.Int64:
			var n int64
			if def != "" {
				n = must(strconv.ParseInt(def, 10, 64))
			}
			c.cfg.SetDefault(name, n)
			flags.Int64P(name, short, n, doc)
		case field.Type.Kind() == reflect.Bool:
			var b bool
			if def != "" {
				b = must(strconv.ParseBool(def))
			}
			c.cfg.SetDefault(name, b)
			flags.BoolP(name, short, b, doc)
		default:
			panic("unsupported option type: " + field.Type.Kind().String())
		}
		c.cfg.BindPFlag(name, flags.Lookup(name))
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// New creates a CLI. The `onParsed` callback is called once the options
// struct is populated, before any command runs. Set `OnStart` there to make
// the root command start a server.
func New[O any](onParsed func(Hooks, *O)) CLI {
	c := &cli[O]{
		root: &cobra.Command{
			Use: filepath.Base(os.Args[0]),
		},
		onParsed: onParsed,
		cfg:      viper.New(),
	}

	cfg := c.cfg
	cfg.SetEnvPrefix(EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	cfg.AutomaticEnv()

	var o O
	c.setupOptions(c.root.PersistentFlags(), reflect.TypeOf(o), []int{})

	c.root.Run = func(cmd *cobra.Command, args []string) {
		done := make(chan struct{}, 1)
		if c.start != nil {
			go func() {
				c.start()
				done <- struct{}{}
			}()
		} else {
			done <- struct{}{}
		}

		// Handle graceful shutdown.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case <-done:
			// Server is done, just exit.
		case <-quit:
			if c.stop != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Gracefully shutting down the server...")
				c.stop()
			}
		}
	}
	return c
}
