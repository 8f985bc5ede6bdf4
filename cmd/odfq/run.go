package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/config"
	"github.com/dflrisk/odfengine/model"
	"github.com/dflrisk/odfengine/obslog"
	"github.com/dflrisk/odfengine/query"
)

// exitError carries the spec.md §6.3 exit code a failure should produce,
// so main can translate a RunE error into os.Exit without cobra's
// default usage-printing behavior muddying the CLI's documented codes.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeOf(err error) (int, bool) {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code, true
	}
	return 0, false
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return &exitError{code: 3, err: err}
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger := obslog.New(cfg.Logging, os.Stdout)

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("odfq: failed to read %q: %w", path, err)}
	}

	pf, err := astdfl.ParseFile(string(data))
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("odfq: parse error: %w", err)}
	}

	m, err := model.Build(pf)
	if err != nil {
		return &exitError{code: query.ClassifyError(err), err: fmt.Errorf("odfq: model error: %w", err)}
	}

	outcomes := query.Run(m, pf)
	for _, o := range outcomes {
		log := logger.WithField("query_index", o.Index)
		for _, w := range o.Warnings {
			log.Warn(w, map[string]any{"formula": o.Text})
		}
		if o.Err != nil {
			log.Error(o.Err.Error(), map[string]any{"formula": o.Text})
			fmt.Printf("[%d] %s\n    error: %v\n", o.Index, o.Text, o.Err)
			continue
		}
		fmt.Printf("[%d] %s\n    %s\n", o.Index, o.Text, o.Result)
	}

	if code := query.ExitCode(outcomes); code != 0 {
		return &exitError{code: code, err: fmt.Errorf("odfq: one or more queries failed")}
	}
	return nil
}
