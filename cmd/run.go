package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/sparkify/lake/pipeline"
)

// RunMain is wrapped by NewRunCommand and only exported for testing purposes.
var RunMain *pipeline.Main

// NewRunCommand returns a new cobra command wrapping RunMain.
func NewRunCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	RunMain = pipeline.NewMain()
	runCommand := &cobra.Command{
		Use:   "run",
		Short: "run the full ETL: song transform, then log transform",
		Long: `Reads the song and log corpora under the input root and writes all five
dimensional tables under the output root, overwriting prior contents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := RunMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := runCommand.Flags()
	if err := commandeer.Flags(flags, RunMain); err != nil {
		panic(err)
	}
	return runCommand
}

func init() {
	subcommandFns["run"] = NewRunCommand
}
