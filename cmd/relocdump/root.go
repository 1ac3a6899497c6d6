package main

import (
	"debug/pe"
	"fmt"
	"github.com/davejbax/go-pereloc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"io"
	"os"
)

var (
	lenient bool
	summary bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relocdump <pe-file>",
	Short: "Dump the base relocation directory of a PE image",
	Long: `relocdump decodes the base relocation directory of a Portable Executable image
and prints every block with its entries.

By default decoding is strict: an entry with an unknown relocation type is an error.
With --lenient such entries are printed with their raw type code instead.

Example:
  relocdump kernel32.dll
  relocdump --summary --lenient driver.sys`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.Flags().BoolVar(&lenient, "lenient", false, "Keep entries with unknown relocation types instead of failing")
	rootCmd.Flags().BoolVar(&summary, "summary", false, "Only print the number of entries of each relocation type")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log each decoded block to stderr")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	return log
}

func runDump(out io.Writer, path string) error {
	log := newLogger()

	mode := pereloc.ModeStrict
	if lenient {
		mode = pereloc.ModeLenient
	}

	decoder, err := pereloc.NewDecoder(mode, pereloc.WithLogger(log.WithField("file", path)))
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	f, err := pe.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PE file: %w", err)
	}
	defer f.Close()

	directory, err := decoder.ReadDirectory(f)
	if err != nil {
		return err
	}

	if summary {
		return writeSummary(out, directory)
	}

	return writeDirectory(out, directory)
}
