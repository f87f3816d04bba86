package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dRec/cmd/serve"
	"github.com/ValentinKolb/dRec/cmd/student"
	"github.com/ValentinKolb/dRec/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "drec",
		Short: "student record server",
		Long: fmt.Sprintf(`dRec (v%s)

A small record management server written in Go. Clients talk to it
over TCP using one JSON request and one JSON response per line.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dRec",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dRec v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(student.StudentCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
