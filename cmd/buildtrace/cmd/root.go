/*
	Copyright 2025 Google Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

			http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/google/buildtrace/convert"
	"github.com/google/buildtrace/eventlog"
)

var (
	tracePath string
	logPath   string
	recent    int

	logger *zap.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "buildtrace",
	Short: "Convert a recorded build event log into a Chrome trace",
	Long: `buildtrace reads the event log recorded during a build invocation and
converts it into a Chrome-Trace-format JSON timeline.  Load the result in any
standard trace viewer to diagnose slow loads, analyses, and action
executions, follow the build's critical path, and inspect resource-usage
trends over the build.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&tracePath, "trace-path", "",
		"where to write the trace JSON; if a directory is passed, the event log's file name is used as a base name")
	flags.StringVar(&logPath, "path", "",
		"a path to an event log to read from; if absent, the most recent log is used")
	flags.IntVar(&recent, "recent", 0,
		"use the event log from the Nth most recent command (0 is the most recent)")
	flags.String("log-dir", "", "directory holding recorded event logs")
	cobra.CheckErr(rootCmd.MarkFlagRequired("trace-path"))
	rootCmd.MarkFlagsMutuallyExclusive("path", "recent")

	viper.SetEnvPrefix("buildtrace")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlag("log-dir", flags.Lookup("log-dir")))
}

// Execute runs the root command.  This is called by main.main().
func Execute() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("conversion failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	log := logPath
	if log == "" {
		dir := viper.GetString("log-dir")
		if dir == "" {
			return fmt.Errorf("either --path or --log-dir (or BUILDTRACE_LOG_DIR) must be provided")
		}
		var err error
		log, err = eventlog.NthRecentLog(dir, recent)
		if err != nil {
			return err
		}
	}

	dest, err := resolveTracePath(tracePath, log)
	if err != nil {
		return err
	}

	parsed, err := eventlog.NewReader(logger).Open(log)
	if err != nil {
		return err
	}
	logger.Info("read event log",
		zap.String("path", log),
		zap.Int("events", len(parsed.Events)),
		zap.String("trace_id", parsed.Invocation.TraceID.String()))

	if err := writeTrace(dest, parsed); err != nil {
		return err
	}
	logger.Info("wrote trace", zap.String("path", dest))
	return nil
}

// resolveTracePath derives the destination file.  When tracePath is a
// directory, the output name is the log's base name with a ".trace"
// extension.
func resolveTracePath(tracePath, logPath string) (string, error) {
	info, err := os.Stat(tracePath)
	if err != nil || !info.IsDir() {
		return tracePath, nil
	}
	base := filepath.Base(logPath)
	base = strings.TrimSuffix(base, eventlog.CompressedLogSuffix)
	base = strings.TrimSuffix(base, eventlog.LogSuffix)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("could not determine a trace file name from event log path %q", logPath)
	}
	return filepath.Join(tracePath, base+".trace"), nil
}

// writeTrace converts into a temporary file and renames it into place only
// on success, so a failed conversion never leaves a partial file at the
// destination.
func writeTrace(dest string, log *eventlog.Log) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp")
	if err != nil {
		return fmt.Errorf("creating trace output file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buffered := bufio.NewWriter(tmp)
	if err := convert.Convert(log.Invocation, log.Events, buffered); err != nil {
		return err
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing trace output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("finalizing trace output file: %w", err)
	}
	return nil
}
