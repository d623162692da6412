package main

import (
	"flag"
	"os"

	"github.com/danmuck/rconctl/internal/config"
	"github.com/danmuck/rconctl/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	output := flag.String("output", "", "output path for the config template (defaults to the resolved config path)")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to the resolved config path)")
	printCfg := flag.Bool("print", false, "with -validate, print the effective config including defaults")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()

	if *validate {
		path, err := config.Path(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("resolve config path")
		}
		cfg, err := config.Load(path)
		if err != nil {
			log.Fatal().Err(err).Msg("config invalid")
		}
		log.Info().Str("path", path).Msg("config valid")
		if *printCfg {
			if err := cfg.Encode(os.Stdout); err != nil {
				log.Fatal().Err(err).Msg("print config")
			}
		}
		return
	}

	target, err := config.Path(*output)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve config path")
	}
	if err := config.WriteTemplate(target, *force); err != nil {
		log.Fatal().Err(err).Msg("write config template")
	}
	log.Info().Str("path", target).Msg("wrote config template")
}
