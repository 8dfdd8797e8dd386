package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/sparkify/lake/pipeline"
)

// LogsMain is wrapped by NewLogsCommand and only exported for testing
// purposes.
var LogsMain *pipeline.Main

// NewLogsCommand returns a new cobra command wrapping LogsMain. The songplays
// join needs the song corpus, so this still reads it; it just skips writing
// the songs and artists tables.
func NewLogsCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	LogsMain = pipeline.NewMain()
	logsCommand := &cobra.Command{
		Use:   "logs",
		Short: "run only the log transform: users, time and songplays tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			p, err := LogsMain.NewPipeline()
			if err != nil {
				return err
			}
			records, err := p.SongRecords()
			if err != nil {
				return err
			}
			if err := p.ProcessLogs(records); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := logsCommand.Flags()
	if err := commandeer.Flags(flags, LogsMain); err != nil {
		panic(err)
	}
	return logsCommand
}

func init() {
	subcommandFns["logs"] = NewLogsCommand
}
