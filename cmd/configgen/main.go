package main

import (
	"flag"
	"log"

	"github.com/hexliner/gobpio/internal/config"
)

func main() {
	kind := flag.String("kind", "ctl", "config kind: ctl|bridge")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			switch *kind {
			case "ctl":
				path = "bpioctl.toml"
			case "bridge":
				path = "bpiobridge.toml"
			default:
				log.Fatalf("unknown kind: %s", *kind)
			}
		}

		switch *kind {
		case "ctl":
			if _, err := config.LoadCtlConfig(path); err != nil {
				log.Fatal(err)
			}
		case "bridge":
			if _, err := config.LoadBridgeConfig(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "ctl":
			target = "bpioctl.toml"
		case "bridge":
			target = "bpiobridge.toml"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
