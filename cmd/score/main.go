// Package main scores a file of feed batches offline and writes the ranking
// as CSV and Markdown.
//
// Input holds one batch payload per line, in the same shape the feed endpoint
// accepts. Later snapshots of an id replace earlier ones.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/analysis"
	"token-risk-monitor/internal/ingestion"
	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/ranking"
	"token-risk-monitor/internal/registry"
	"token-risk-monitor/internal/reporting"
	"token-risk-monitor/internal/risk"
)

// maxLineSize bounds a single batch line.
const maxLineSize = 16 << 20

type options struct {
	input     string
	outputDir string
	scheme    string
	tiers     string
	socials   string
	criteria  bool
	limit     int
	logLevel  string
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "-", "Batch file, one JSON payload per line (- for stdin)")
	flag.StringVar(&opts.outputDir, "output-dir", "", "Directory for ranking.csv and ranking.md (empty prints Markdown to stdout)")
	flag.StringVar(&opts.scheme, "scheme", "fixed", "Risk scheme: fixed or proportional")
	flag.StringVar(&opts.tiers, "tier", "", "Comma-separated tiers to keep (empty keeps all)")
	flag.StringVar(&opts.socials, "social", "", "Comma-separated social platforms that must be present")
	flag.BoolVar(&opts.criteria, "criteria", false, "Keep only tokens meeting the quality criteria")
	flag.IntVar(&opts.limit, "limit", 0, "Maximum number of tokens (0 = all)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	flag.Parse()

	logger, err := logging.NewWithOutput(os.Stderr, opts.logLevel, "text")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			logger.Fatalf("Failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	if err := run(context.Background(), opts, in, os.Stdout, logger); err != nil {
		logger.Fatalf("Scoring failed: %v", err)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer, logger *logrus.Logger) error {
	scheme, err := risk.ParseScheme(opts.scheme)
	if err != nil {
		return err
	}
	tiers, err := ranking.ParseTiers([]string{opts.tiers})
	if err != nil {
		return err
	}

	reg := registry.New(registry.Options{})
	ingester := ingestion.NewIngester(ingestion.IngesterOptions{Registry: reg, Logger: logger})

	if err := ingestLines(ctx, in, ingester, logging.Component(logger, "score")); err != nil {
		return err
	}

	filter := ranking.Filter{
		Tiers:   tiers,
		Socials: splitList(opts.socials),
		Limit:   opts.limit,
	}
	if opts.criteria {
		criteria := analysis.DefaultTokenFilter()
		filter.Criteria = &criteria
	}

	now := time.Now().UTC()
	ranker := ranking.NewRanker(ranking.RankerOptions{
		Registry: reg,
		Scorer:   risk.NewScorer(risk.ScorerOptions{Scheme: scheme}),
		Clock:    func() time.Time { return now },
	})
	tokens := ranker.Rank(filter)

	generator := reporting.NewGenerator().WithClock(func() time.Time { return now })
	report := generator.Generate(scheme.String(), tokens)

	if opts.outputDir == "" {
		_, err := io.WriteString(out, reporting.RenderMarkdown(report))
		return err
	}
	if err := reporting.NewFileWriter(opts.outputDir, generator).Write(report); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"tokens": len(tokens),
		"dir":    opts.outputDir,
	}).Info("ranking written")
	return nil
}

// ingestLines feeds every non-empty line to the ingester. Bad lines are
// logged and skipped.
func ingestLines(ctx context.Context, in io.Reader, ingester *ingestion.Ingester, logger *logrus.Entry) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		payload := strings.TrimSpace(scanner.Text())
		if payload == "" {
			continue
		}
		res, err := ingester.Ingest(ctx, []byte(payload))
		if err != nil {
			logger.WithError(err).WithField("line", line).Warn("skipping line")
			continue
		}
		for _, skipped := range res.Skipped {
			logger.WithField("line", line).Debug(skipped.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
