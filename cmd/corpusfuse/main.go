// File path: cmd/corpusfuse/main.go

// corpusfuse answers natural-language questions over a private document
// corpus by fusing dense passage retrieval with a knowledge graph of
// extracted entities and relations.
//
// Subcommands:
//
//	ingest -dir <corpus> [-job <id>]   walk, chunk, index, and extract a corpus
//	query  -q <question>               print the merged answer context
//	reset  [-job <id>]                 clear the graph, vector index, and job state
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/corpusfuse/internal/common"
)

func main() {
	if err := godotenv.Load(); err == nil {
		common.Logger().Debug("main: loaded .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, os.Args[2:])
	case "query":
		err = runQuery(ctx, os.Args[2:])
	case "reset":
		err = runReset(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		common.Logger().Error("main: command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: corpusfuse <ingest|query|reset> [flags]")
}

func runIngest(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	dir := flags.String("dir", "", "corpus directory of .txt/.md documents")
	job := flags.String("job", "default", "ingestion job id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("ingest: -dir is required")
	}

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	done := make(chan bool, 1)
	go func() {
		done <- svc.runner.Run(ctx, *job, *dir)
	}()

	for state := range svc.manager.Watch(ctx, *job) {
		fmt.Printf("[%s] %5.1f%% %-12s %s\n", state.Status, state.ProgressPercent, state.Phase, state.Message)
	}
	if started := <-done; !started {
		return fmt.Errorf("ingest: job %q is already running", *job)
	}
	final := svc.manager.GetState(*job)
	if final.ErrorMessage != "" {
		return fmt.Errorf("ingest: %s", final.ErrorMessage)
	}
	fmt.Printf("ingested: %d files, %d chunks, %d relations (%d edges skipped)\n",
		final.Counters["files"], final.Counters["chunks"],
		final.Counters["relations"], final.Counters["edges_skipped"])
	return nil
}

func runQuery(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("query", flag.ExitOnError)
	question := flags.String("q", "", "question to answer")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *question == "" {
		return fmt.Errorf("query: -q is required")
	}

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	merged := svc.orchestrator.AnswerContext(ctx, *question)
	fmt.Printf("context: %d passages, %d triples, %d/%d tokens\n",
		merged.PassagesIncluded, merged.TriplesIncluded, merged.TotalTokens, merged.TokenBudget)
	for i, text := range merged.OrderedTexts {
		fmt.Printf("--- %d ---\n%s\n", i+1, text)
	}
	return nil
}

func runReset(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("reset", flag.ExitOnError)
	job := flags.String("job", "default", "ingestion job id to clear")
	if err := flags.Parse(args); err != nil {
		return err
	}

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	if err := svc.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset graph: %w", err)
	}
	if err := svc.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset vector index: %w", err)
	}
	svc.manager.Reset(*job)
	fmt.Println("corpus reset complete")
	return nil
}
