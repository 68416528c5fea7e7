package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/itemdesk/itemdesk/pkg/records"
)

// isInteractive reports whether prompts can be shown. Tests replace it.
var isInteractive = func(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// prompt writes question to stderr and reads one line. EOF before any input
// is reported as records.ErrCancelled.
func prompt(cmd *cobra.Command, question string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), question)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(cmd.ErrOrStderr())
		return "", records.ErrCancelled
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	answer, err := prompt(cmd, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// resolveDestination picks where an export is written. The returned path is
// empty for stdout.
func resolveDestination(cmd *cobra.Command, out string, outSet bool, defaultName string) (string, error) {
	if outSet {
		if out == "-" {
			return "", nil
		}
		if out == "" {
			return "", records.NewValidationError("--out needs a path or -")
		}
		return out, nil
	}

	if !isInteractive(cmd) {
		return defaultName, nil
	}

	answer, err := prompt(cmd, fmt.Sprintf("Save to [%s]: ", defaultName))
	if err != nil {
		return "", err
	}
	if answer == "" {
		return defaultName, nil
	}
	return answer, nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, records.NewValidationError(fmt.Sprintf("invalid id %q: must be an integer", arg)).WithOp("parse")
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
