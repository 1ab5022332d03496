package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/tapdict/pkg/engine"
)

var lookupCommand = &cli.Command{
	Name:      "lookup",
	Usage:     "look up the word at the start of TEXT",
	ArgsUsage: "TEXT",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "record",
			Usage: "count this lookup",
		},
	},
	Action: func(c *cli.Context) error {
		text, err := argOrError(c, "TEXT")
		if err != nil {
			return err
		}
		e, _, err := openEngine(c, false)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.Lookup(c.Context, text, nil)
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Fprintf(c.App.Writer, "no match for %q\n", text)
			return nil
		}
		entry := res.Entry
		fmt.Fprintf(c.App.Writer, "%s 【%s】 matched %d of %q\n", entry.Headword(), entry.Reading, res.MatchedLength, text)
		if len(res.RuleChain) > 0 {
			fmt.Fprintf(c.App.Writer, "via %s\n", strings.Join(res.RuleChain, " → "))
		}
		tbl := newTable(c.App.Writer, "#", "Part of speech", "Glosses")
		for i, s := range entry.Senses {
			pos := make([]string, 0, len(s.PartsOfSpeech))
			for _, p := range s.PartsOfSpeech {
				pos = append(pos, string(p))
			}
			tbl.AddRow(i+1, strings.Join(pos, ","), joinGlosses(s.Glosses))
		}
		tbl.Print()
		if c.Bool("record") {
			n, err := e.RecordLookup(c.Context, res)
			if err != nil && !errors.Is(err, engine.ErrNoLookupCounts) {
				return err
			}
			fmt.Fprintf(c.App.Writer, "looked up %d times\n", n)
		}
		return nil
	},
}
