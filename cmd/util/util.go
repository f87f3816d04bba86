package util

import (
	"context"
	"strings"

	"github.com/ValentinKolb/dRec/rpc/client"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. DREC_ENDPOINT)
	EnvPrefix = "drec"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads the env files and makes viper read DREC_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupClientFlags adds the connection flags shared by all client commands
func SetupClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "endpoint"
	cmd.PersistentFlags().String(key, defaults.Endpoint, WrapString("The host:port of the dRec server"))

	key = "timeout"
	cmd.PersistentFlags().Duration(key, defaults.Timeout, WrapString("Timeout for connecting and for every single request (e.g. 5s)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel of the client (debug, info, warn, error)"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() (common.ClientConfig, error) {
	return common.DecodeClientConfig(map[string]any{
		"endpoint": viper.GetString("endpoint"),
		"timeout":  viper.GetDuration("timeout"),
	})
}

// Connect initializes the client loggers and dials the configured server
func Connect(ctx context.Context) (*client.RecordClient, error) {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, err
	}

	config, err := GetClientConfig()
	if err != nil {
		return nil, err
	}
	return client.Dial(ctx, config.Endpoint, config.Timeout)
}
