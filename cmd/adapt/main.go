package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/OFFIS-RIT/lodstats/internal/app"
	"github.com/OFFIS-RIT/lodstats/internal/batch"
	"github.com/OFFIS-RIT/lodstats/internal/config"
	"github.com/OFFIS-RIT/lodstats/internal/util"
	"github.com/OFFIS-RIT/lodstats/pkg/adapter"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
)

type options struct {
	Generate        bool `long:"generate" description:"Write metadata-cc.json next to every metadata.json"`
	RemoveGenerated bool `long:"remove-generated" description:"Delete previously generated metadata-cc.json files"`
	Schema          bool `long:"schema" description:"Print the JSON schema of metadata-cc.json and exit"`

	Args struct {
		Root string `positional-arg-name:"root" description:"Folder containing one sub-folder per dataset"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(app.ExitCode(run()))
}

func run() error {
	var opts options
	if err := app.ParseFlags(&opts); err != nil {
		return err
	}

	if opts.Schema {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(adapter.Schema())
	}

	if opts.Generate == opts.RemoveGenerated {
		return app.Usagef("exactly one of --generate or --remove-generated is required")
	}
	if opts.Args.Root == "" {
		return app.Usagef("the root folder is required")
	}

	util.LoadEnv(nil)
	cfg := config.FromEnv()
	cfg.Root = opts.Args.Root
	cfg.LogFile = ""
	if err := cfg.Validate(); err != nil {
		return app.Usagef("%v", err)
	}

	log, err := app.NewLogger(cfg, "adapt")
	if err != nil {
		return err
	}
	defer log.Close()

	dirs, err := batch.ListDatasets(cfg.Root)
	if err != nil {
		log.Error("Cannot adapt metadata", "err", err)
		return err
	}

	if opts.Generate {
		generate(dirs, log)
	} else {
		remove(dirs, log)
	}
	return nil
}

// generate adapts every dataset on its own; one bad sidecar does not stop
// the others.
func generate(dirs []string, log *logger.Logger) {
	var errs *multierror.Error
	written := 0
	for _, dir := range dirs {
		name := filepath.Base(dir)
		err := adapter.Generate(dir)
		if errors.Is(err, adapter.ErrAlreadyExists) {
			log.Warn("Adapted metadata already exists", "dataset", name)
			continue
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
			log.Error("Failed to adapt metadata", "dataset", name, "err", err)
			continue
		}
		written++
		log.Debug("Adapted metadata", "dataset", name)
	}

	log.Info("Generated adapted metadata", "datasets", len(dirs), "written", written, "failed", failed(errs))
}

func remove(dirs []string, log *logger.Logger) {
	var errs *multierror.Error
	removed := 0
	for _, dir := range dirs {
		name := filepath.Base(dir)
		ok, err := adapter.Remove(dir)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
			log.Error("Failed to remove adapted metadata", "dataset", name, "err", err)
			continue
		}
		if ok {
			removed++
		}
	}

	log.Info("Removed adapted metadata", "datasets", len(dirs), "removed", removed, "failed", failed(errs))
}

func failed(errs *multierror.Error) int {
	if errs == nil {
		return 0
	}
	return len(errs.Errors)
}
