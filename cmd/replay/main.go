package main

import (
	"flag"
	"fmt"
	"os"

	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/eventparser"
	"jup-indexer-sol/internal/logic/replay"
	"jup-indexer-sol/pkg/logger"
)

var (
	dir     = flag.String("dir", "blocks", "directory of proto encoded SubscribeUpdateBlock files (*.pb)")
	workers = flag.Int("workers", consts.CpuCount, "blocks processed concurrently")
	out     = flag.String("o", "", "output file, stdout when empty")
	level   = flag.String("log-level", "warn", "log level")
)

func main() {
	flag.Parse()
	logger.InitLogger(logger.LogOption{Format: "console", Level: *level})
	defer logger.Sync()
	eventparser.Init()

	files, err := replay.ListBlockFiles(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list %s: %v\n", *dir, err)
		os.Exit(1)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	sum, err := replay.Run(files, *workers, w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "files=%d failed=%d rows=%d swaps=%d jupiterTxs=%d malformedIxs=%d unrecognizedIxs=%d\n",
		sum.Files, sum.Failed, sum.Rows, sum.Stats.Swaps, sum.Stats.JupiterTxs, sum.Stats.MalformedIxs, sum.Stats.UnrecognizedIxs)
}
