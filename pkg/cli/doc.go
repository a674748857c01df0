/*
Package cli provides helpers shared by the deepreload commands.

Output Formatting:

Commands render results as text, JSON or CSV. Tabular results implement
Tabular (or use Table) so every format can render them:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler(context.Background())
	// ctx is cancelled on the first signal
*/
package cli
