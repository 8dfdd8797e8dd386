package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/sparkify/lake/pipeline"
)

// SongsMain is wrapped by NewSongsCommand and only exported for testing
// purposes.
var SongsMain *pipeline.Main

// NewSongsCommand returns a new cobra command wrapping SongsMain.
func NewSongsCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	SongsMain = pipeline.NewMain()
	songsCommand := &cobra.Command{
		Use:   "songs",
		Short: "run only the song transform: songs and artists tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			p, err := SongsMain.NewPipeline()
			if err != nil {
				return err
			}
			records, err := p.SongRecords()
			if err != nil {
				return err
			}
			if err := p.ProcessSongs(records); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := songsCommand.Flags()
	if err := commandeer.Flags(flags, SongsMain); err != nil {
		panic(err)
	}
	return songsCommand
}

func init() {
	subcommandFns["songs"] = NewSongsCommand
}
