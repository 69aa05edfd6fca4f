package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "pnl":
		code = cmdPnL(os.Args[2:])
	case "trades":
		code = cmdTrades(os.Args[2:])
	case "prices":
		code = cmdPrices(os.Args[2:])
	case "serve":
		code = cmdServe(os.Args[2:])
	default:
		usage()
		code = 2
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  keeperstats pnl    --config config.yml --past 3d [--text|--chart|--parquet] [-o FILE] [--upload]")
	fmt.Fprintln(os.Stderr, "  keeperstats trades --config config.yml --past 3d [--text|--json] [-o FILE] [--upload]")
	fmt.Fprintln(os.Stderr, "  keeperstats prices --config config.yml --past 3d [-o FILE] [--upload]")
	fmt.Fprintln(os.Stderr, "  keeperstats serve  --config config.yml")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "notes:")
	fmt.Fprintln(os.Stderr, "  - reports go to stdout unless -o is given; logs always go to the configured log output")
	fmt.Fprintln(os.Stderr, "  - --upload stores the output in the storage.s3 bucket as well")
}
