// Command papergen parses a question bank file and assembles a paper from a
// YAML layout without touching the database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"questgen/internal/bank"
	"questgen/internal/document"
	"questgen/internal/paper"
	"questgen/internal/question"

	"gopkg.in/yaml.v3"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("papergen", flag.ContinueOnError)
	flags.SetOutput(stderr)
	bankPath := flags.String("bank", "", "question bank file (.pdf or .txt)")
	layoutPath := flags.String("layout", "", "paper layout YAML file")
	module := flags.Int("module", 0, "default module for untagged questions (1-5)")
	seed := flags.Uint64("seed", 0, "random seed; 0 picks a fresh one")
	parseOnly := flags.Bool("parse-only", false, "print parsed questions and exit")
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
		return exitUsage
	}
	if *bankPath == "" || (*layoutPath == "" && !*parseOnly) {
		fmt.Fprintln(stderr, "usage: papergen -bank FILE -layout FILE [-module N] [-seed N] [-parse-only]")
		return exitUsage
	}

	var defaultModule *int
	if *module != 0 {
		if !bank.ValidModule(*module) {
			fmt.Fprintf(stderr, "module must be between %d and %d\n", bank.MinModule, bank.MaxModule)
			return exitUsage
		}
		defaultModule = module
	}

	text, err := document.ExtractText(*bankPath)
	if err != nil {
		fmt.Fprintf(stderr, "read bank: %v\n", err)
		return exitError
	}
	parsed := bank.Parse(text, defaultModule)

	if *parseOnly {
		return writeJSON(stdout, stderr, parsed)
	}

	cfg, err := loadLayout(*layoutPath)
	if err != nil {
		fmt.Fprintf(stderr, "load layout: %v\n", err)
		return exitError
	}

	var opts paper.Options
	if *seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(*seed, *seed))
	}
	p := paper.Generate(cfg, toRecords(parsed), nil, opts)
	if strings.TrimSpace(p.Title) == "" {
		p.Title = paper.DefaultTitle
	}
	return writeJSON(stdout, stderr, p)
}

func loadLayout(path string) (paper.GenerationConfig, error) {
	var cfg paper.GenerationConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if len(cfg.Questions) == 0 {
		return cfg, fmt.Errorf("questions is required")
	}
	for module := range cfg.ModulePercentages {
		if !bank.ValidModule(module) {
			return cfg, fmt.Errorf("module_percentages: module %d out of range", module)
		}
	}
	return cfg, nil
}

// toRecords numbers parsed questions in file order so they can be selected
// like stored ones.
func toRecords(parsed []bank.ParsedQuestion) []question.Record {
	out := make([]question.Record, 0, len(parsed))
	for i, q := range parsed {
		out = append(out, question.Record{
			ID:              int64(i + 1),
			QuestionType:    q.QuestionType,
			Text:            q.Text,
			Marks:           q.Marks,
			COTags:          q.COTags,
			RBTLevel:        q.RBTLevel,
			Subparts:        q.Subparts,
			Module:          q.Module,
			Status:          question.StatusDraft,
			ParseConfidence: q.Confidence(),
		})
	}
	return out
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}
