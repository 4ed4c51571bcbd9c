// Command posemon-report prints the summary of a monitoring session recorded
// in the journal as YAML.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swdee/go-posemon/config"
	"github.com/swdee/go-posemon/journal"
)

// entryRow is a recorded frame as printed with -entries
type entryRow struct {
	Frame int       `yaml:"frame"`
	Angle float64   `yaml:"angle"`
	Label string    `yaml:"label"`
	At    time.Time `yaml:"at"`
}

// report is the document printed for a session
type report struct {
	Summary journal.Summary `yaml:"summary"`
	Entries []entryRow      `yaml:"entries,omitempty"`
}

func main() {

	cfgFile := flag.String("c", "", "YAML config file to take the journal path from")
	path := flag.String("j", "", "Journal database, overrides the config")
	session := flag.String("session", "", "Session ID to report on, defaults to the latest")
	list := flag.Bool("list", false, "List all sessions instead of reporting on one")
	entries := flag.Bool("entries", false, "Include every recorded frame")
	flag.Parse()

	if err := run(context.Background(), os.Stdout, *cfgFile, *path, *session, *list, *entries); err != nil {
		fmt.Fprintf(os.Stderr, "posemon-report: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, cfgFile, path, session string, list, withEntries bool) error {

	if path == "" {
		cfg, err := config.Load(ctx, cfgFile)

		if err != nil {
			return err
		}

		path = cfg.Journal.Path
	}

	if path == "" {
		return errors.New("no journal, set journal.path or use -j")
	}

	store, err := journal.Open(path)

	if err != nil {
		return err
	}

	defer store.Close()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	if list {
		sessions, err := store.Sessions(ctx)

		if err != nil {
			return err
		}

		return enc.Encode(map[string][]journal.Session{"sessions": sessions})
	}

	if session == "" {
		latest, err := store.LatestSession(ctx)

		if err != nil {
			return err
		}

		session = latest.ID
	}

	sum, err := store.Summarize(ctx, session)

	if err != nil {
		return err
	}

	doc := report{Summary: sum}

	if withEntries {
		all, err := store.Entries(ctx, session)

		if err != nil {
			return err
		}

		for _, e := range all {
			doc.Entries = append(doc.Entries, entryRow{
				Frame: e.Frame,
				Angle: e.Assessment.Angle,
				Label: e.Assessment.Label.Key(),
				At:    e.CreatedAt,
			})
		}
	}

	return enc.Encode(doc)
}
