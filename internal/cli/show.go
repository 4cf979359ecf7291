package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/recovery-go/recovery"
	"github.com/dshills/recovery-go/recovery/store"
)

func (a *app) newShowCmd() *cobra.Command {
	var output string
	var steps bool

	cmd := &cobra.Command{
		Use:   "show [location]",
		Short: "Show a snapshot",
		Long:  `Decode the snapshot at the location and print its dependencies, the number of recorded steps per computation and the last failure.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, location, err := a.load(cmd, args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			switch output {
			case "json":
				return writeJSON(w, snap)
			case "yaml":
				return writeYAML(w, snap)
			case "text":
				writeSummary(w, location, snap, steps)
				return nil
			default:
				return fmt.Errorf("unknown output format %q (text, json, yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json, yaml")
	cmd.Flags().BoolVar(&steps, "steps", false, "print every recorded step value (text output)")
	return cmd
}

// load reads the snapshot addressed by the flags and optional location
// argument.
func (a *app) load(cmd *cobra.Command, args []string) (*recovery.Snapshot, string, error) {
	location := ""
	if len(args) > 0 {
		location = args[0]
	}

	t, err := openTarget(cmd.Context(), a.v, location)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = t.Close() }()

	snap, err := t.recovery().Load(cmd.Context())
	if err != nil {
		return nil, t.location, err
	}
	if snap == nil {
		return nil, t.location, fmt.Errorf("no snapshot at %s: %w", t.location, store.ErrNotFound)
	}
	return snap, t.location, nil
}

func writeSummary(w io.Writer, location string, snap *recovery.Snapshot, withSteps bool) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgGreen)

	title.Fprintf(w, "Snapshot %s\n", location)
	fmt.Fprintln(w)

	label.Fprintln(w, "Dependencies:")
	if len(snap.Dependencies) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, k := range sortedKeys(snap.Dependencies) {
		fmt.Fprintf(w, "  %s: %v\n", k, snap.Dependencies[k])
	}
	fmt.Fprintln(w)

	label.Fprintln(w, "Computations:")
	if len(snap.Computations) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	names := make([]string, 0, len(snap.Computations))
	for name := range snap.Computations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		recorded := snap.Computations[name]
		fmt.Fprintf(w, "  %s: %d steps\n", name, len(recorded))
		if withSteps {
			for i, v := range recorded {
				fmt.Fprintf(w, "    [%d] %v\n", i, v)
			}
		}
	}

	if snap.Error != nil {
		fmt.Fprintln(w)
		color.New(color.FgRed).Fprintf(w, "Last failure: %s\n", snap.Error.Computation)
		fmt.Fprintf(w, "  %s\n", snap.Error.Message)
		if !snap.Error.Time.IsZero() {
			fmt.Fprintf(w, "  at %s\n", snap.Error.Time.Format(time.RFC3339))
		}
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
