package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/tapdict/pkg/termbank"
)

var importCommand = &cli.Command{
	Name:      "import",
	Usage:     "import a Yomitan archive or term bank file",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "id",
			Usage: "dictionary `ID` (defaults to the archive title)",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "download the archive from `URL` to PATH first, unless PATH exists",
		},
	},
	Action: func(c *cli.Context) error {
		path, err := argOrError(c, "PATH")
		if err != nil {
			return err
		}
		e, _, err := openEngine(c, false)
		if err != nil {
			return err
		}
		defer e.Close()

		if u := c.String("url"); u != "" {
			if err := termbank.Fetch(c.Context, u, path); err != nil {
				return fmt.Errorf("download: %w", err)
			}
		}

		report, err := e.Import(c.Context, path, c.String("id"))
		if err != nil {
			return err
		}
		tbl := newTable(c.App.Writer, "Dictionary", "Records", "Imported", "Skipped", "Duration")
		tbl.AddRow(report.DictionaryID, report.Records, report.Imported, report.Skipped, report.Duration.Round(time.Millisecond))
		tbl.Print()
		for _, s := range report.SkippedSamples {
			fmt.Fprintf(c.App.Writer, "skipped record %d: %s\n", s.Index, s.Error)
		}
		return nil
	},
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "delete an imported dictionary",
	ArgsUsage: "ID",
	Action: func(c *cli.Context) error {
		id, err := argOrError(c, "ID")
		if err != nil {
			return err
		}
		e, _, err := openEngine(c, false)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := e.Delete(c.Context, id); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
		return nil
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "list imported dictionaries",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "top",
			Usage: "also show the `N` most looked-up words",
		},
	},
	Action: func(c *cli.Context) error {
		e, _, err := openEngine(c, false)
		if err != nil {
			return err
		}
		defer e.Close()
		infos, err := e.Dictionaries(c.Context)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(c.App.Writer, "no dictionaries imported")
			return nil
		}
		enabled := make(map[string]int)
		for i, id := range e.Enabled() {
			enabled[id] = i + 1
		}
		tbl := newTable(c.App.Writer, "ID", "Title", "Revision", "Entries", "Skipped", "Priority", "Imported")
		for _, info := range infos {
			priority := "-"
			if p, ok := enabled[info.ID]; ok {
				priority = fmt.Sprint(p)
			}
			tbl.AddRow(info.ID, truncate(info.Title, 30), info.Revision, info.EntryCount, info.SkippedCount, priority, info.ImportedAt.Local().Format("2006-01-02 15:04"))
		}
		tbl.Print()

		if n := c.Int("top"); n > 0 {
			stats, err := e.TopLookups(c.Context, n)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer)
			top := newTable(c.App.Writer, "Word", "Reading", "Dictionary", "Lookups", "Last")
			for _, st := range stats {
				word := st.Expression
				if word == "" {
					word = st.Reading
				}
				top.AddRow(word, st.Reading, st.DictionaryID, st.Count, st.LastLookedUp.Local().Format("2006-01-02 15:04"))
			}
			top.Print()
		}
		return nil
	},
}
