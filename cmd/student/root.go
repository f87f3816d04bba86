package student

import (
	"context"

	"github.com/ValentinKolb/dRec/cmd/util"
	"github.com/ValentinKolb/dRec/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcClient *client.RecordClient

	// StudentCommands represents the record command group
	StudentCommands = &cobra.Command{
		Use:                "student",
		Short:              "Perform record operations on a dRec server",
		PersistentPreRunE:  setupStudentClient,
		PersistentPostRunE: closeStudentClient,
	}
)

func init() {
	// Add common client flags to the student command
	util.SetupClientFlags(StudentCommands)

	// Add subcommands
	StudentCommands.AddCommand(insertCmd)
	StudentCommands.AddCommand(findCmd)
	StudentCommands.AddCommand(listCmd)
	StudentCommands.AddCommand(updateCmd)
	StudentCommands.AddCommand(deleteCmd)
	StudentCommands.AddCommand(rawCmd)
	StudentCommands.AddCommand(perfTestCmd)
}

// setupStudentClient connects to the configured server
func setupStudentClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcClient, err = util.Connect(cmd.Context())
	return err
}

// closeStudentClient ends the session with QUIT
func closeStudentClient(cmd *cobra.Command, _ []string) error {
	if rpcClient == nil {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return rpcClient.Quit(ctx)
}
