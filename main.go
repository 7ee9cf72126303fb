package main

import (
	"flag"
	"fmt"
	"os"

	"pricewatch/internal/di"
	"pricewatch/internal/structures"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	debug := flag.Bool("debug", false, "mirror logs to the console")
	flag.Parse()

	flags := &structures.CliFlags{
		ConfigPath: *configPath,
		DebugMode:  *debug,
	}

	_, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricewatch: %s\n", err)
		os.Exit(1)
	}
}
