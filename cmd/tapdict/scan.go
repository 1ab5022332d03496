package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/tapdict/pkg/reader"
)

var scanCommand = &cli.Command{
	Name:      "scan",
	Usage:     "count and resolve the words of a text, file or web page",
	ArgsUsage: "[TEXT]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "scan the text or HTML in `FILE`",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "scan the article at `URL`",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "show only the `N` most frequent words",
		},
	},
	Action: func(c *cli.Context) error {
		e, _, err := openEngine(c, true)
		if err != nil {
			return err
		}
		defer e.Close()

		text := strings.Join(c.Args().Slice(), " ")
		switch {
		case c.String("url") != "":
			art, err := reader.FetchArticle(c.Context, nil, c.String("url"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Title: %s\n", art.Title)
			text = art.Text
		case c.String("file") != "":
			text, err = readTextFile(c.String("file"))
			if err != nil {
				return err
			}
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("nothing to scan: give TEXT, --file or --url")
		}

		res, err := e.Scan(c.Context, text, nil)
		if err != nil {
			return err
		}
		tbl := newTable(c.App.Writer, "Word", "Count", "Reading", "Glosses", "Context")
		for _, w := range res.TopWords(c.Int("top")) {
			reading, glosses := "", "-"
			if w.Entry != nil {
				reading = w.Entry.Reading
				glosses = truncate(joinGlosses(w.Entry.Glosses()), 40)
			}
			tbl.AddRow(w.Term, w.Count, reading, glosses, truncate(w.Context, 30))
		}
		tbl.Print()
		fmt.Fprintf(c.App.Writer, "%d sentences, %d words, %d found, %d unknown\n", res.Sentences, len(res.Words), res.Found, res.Unknown)
		return nil
	},
}

// readTextFile returns the article text of HTML files and the raw
// contents of anything else.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		art, err := reader.ExtractArticle(bytes.NewReader(data), "")
		if err != nil {
			return "", err
		}
		return art.Text, nil
	}
	return string(data), nil
}
