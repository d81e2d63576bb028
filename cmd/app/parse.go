package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/parser"
	pkgconfig "github.com/starford/ansuz/pkg/config"
	"github.com/starford/ansuz/pkg/org"
)

type documentView struct {
	Title     string         `yaml:"title"`
	Tags      []string       `yaml:"tags,omitempty,flow"`
	Todo      todoView       `yaml:"todo"`
	Headlines []headlineView `yaml:"headlines"`
	Links     []string       `yaml:"links,omitempty"`
	Targets   []string       `yaml:"targets,omitempty"`
}

type todoView struct {
	Open   []string `yaml:"open,flow"`
	Closed []string `yaml:"closed,flow"`
}

type headlineView struct {
	Level      int                                    `yaml:"level"`
	Keyword    string                                 `yaml:"keyword,omitempty"`
	Priority   string                                 `yaml:"priority,omitempty"`
	Title      string                                 `yaml:"title"`
	Tags       []string                               `yaml:"tags,omitempty,flow"`
	Scheduled  string                                 `yaml:"scheduled,omitempty"`
	Deadline   string                                 `yaml:"deadline,omitempty"`
	Closed     string                                 `yaml:"closed,omitempty"`
	Properties *orderedmap.OrderedMap[string, string] `yaml:"properties,omitempty"`
	Archived   bool                                   `yaml:"archived,omitempty"`
	Commented  bool                                   `yaml:"commented,omitempty"`
}

func parseFile(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("parse: exactly one FILE argument is required")
	}
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	data, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	res, err := parser.Parse(data, cfg.Org.ParseConfig())
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return writeYAML(os.Stdout, newDocumentView(res))
}

func newDocumentView(res *parser.Result) documentView {
	v := documentView{
		Title:     res.Title,
		Tags:      res.Tags,
		Todo:      todoView{Open: res.Settings.Config.TodoKeywords, Closed: res.Settings.Config.DoneKeywords},
		Headlines: make([]headlineView, 0, len(res.Headlines)),
		Links:     res.Links,
		Targets:   res.Targets,
	}
	for _, h := range res.Headlines {
		hv := headlineView{
			Level:     h.Level,
			Keyword:   h.Keyword,
			Title:     h.Raw,
			Tags:      h.Tags,
			Archived:  h.IsArchived(),
			Commented: h.IsCommented(),
		}
		if h.Priority != 0 {
			hv.Priority = string(h.Priority)
		}
		hv.Scheduled = timestamp(h.Scheduled())
		hv.Deadline = timestamp(h.Deadline())
		hv.Closed = timestamp(h.Closed())
		if !h.Properties.IsEmpty() {
			hv.Properties = h.Properties.ToOrderedMap()
		}
		v.Headlines = append(v.Headlines, hv)
	}
	return v
}

func timestamp(ts *org.Timestamp) string {
	if ts == nil {
		return ""
	}
	return ts.String()
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("parse: encode yaml: %w", err)
	}
	return enc.Close()
}
