package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dRec/cmd/util"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/serializer"
	"github.com/ValentinKolb/dRec/rpc/server"
	"github.com/ValentinKolb/dRec/rpc/transport/tcp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig common.ServerConfig
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dRec server",
		Long:    `Start the dRec server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DREC_<flag> (e.g. DREC_WORKERS=20)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The host:port on which the server will listen (port 0 picks a free port)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, defaults.TCPNoDelay, cmdUtil.WrapString("Disable Nagle's algorithm on accepted connections"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Duration(key, defaults.TCPKeepAlive, cmdUtil.WrapString("Keepalive period of accepted connections (0 disables keepalive)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, defaults.Workers, cmdUtil.WrapString("Number of worker goroutines serving sessions"))

	key = "backlog"
	ServeCmd.PersistentFlags().Int(key, defaults.Backlog, cmdUtil.WrapString("Number of accepted connections that may wait for a free worker"))

	key = "saturation-policy"
	ServeCmd.PersistentFlags().String(key, defaults.SaturationPolicy, cmdUtil.WrapString("What happens if all workers are busy and the backlog is full (caller-runs, block)"))

	key = "shutdown-timeout"
	ServeCmd.PersistentFlags().Duration(key, defaults.ShutdownTimeout, cmdUtil.WrapString("How long running sessions may take to finish on shutdown before they are closed"))

	key = "idle-timeout"
	ServeCmd.PersistentFlags().Duration(key, defaults.IdleTimeout, cmdUtil.WrapString("Sessions without a request for this long are closed with TIMEOUT (0 disables the timeout)"))

	key = "write-timeout"
	ServeCmd.PersistentFlags().Duration(key, defaults.WriteTimeout, cmdUtil.WrapString("Deadline for writing a single response"))

	key = "max-line-bytes"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxLineBytes, cmdUtil.WrapString("Maximum size of one request line in bytes"))

	key = "backend"
	ServeCmd.PersistentFlags().String(key, defaults.Backend, cmdUtil.WrapString("Storage backend of the records (memory, badger, pebble)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, defaults.DataDir, cmdUtil.WrapString("Directory of the persistent backends (required for badger and pebble)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, Prometheus metrics are served on http://<metrics-endpoint>/metrics"))

	key = "metrics-log-interval"
	ServeCmd.PersistentFlags().Duration(key, 0, cmdUtil.WrapString("If set, a short metrics summary is logged at this interval"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	settings := make(map[string]any)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		settings[f.Name] = viper.Get(f.Name)
	})

	config, err := common.DecodeServerConfig(settings)
	if err != nil {
		return err
	}
	serveCmdConfig = config

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the dRec server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRPCServer(
		serveCmdConfig,
		tcp.NewTCPServerTransport(),
		serializer.NewJSONSerializer(),
		server.NewRepositoryFactory(serveCmdConfig),
	)

	return serv.Serve(ctx)
}
