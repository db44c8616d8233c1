// recurcal previews and converts recurrence rules from the command
// line: upcoming occurrences as a table or JSON, the next single
// occurrence, or an RFC 5545 RRULE export.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evielle/librecur/ical"
	"github.com/evielle/librecur/internal/rulefile"
	"github.com/evielle/librecur/recurrence"
)

var rootCmd = &cobra.Command{
	Use:   "recurcal",
	Short: "Recurrence rule calculator",
	Long: `recurcal evaluates recurrence rules for tasks and habits.
Rules are YAML documents (see the rulefile package docs); dates are RFC 3339.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RECURCAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("rule", "r", "", "path to a YAML rule file")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("rule", rootCmd.PersistentFlags().Lookup("rule"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(validateCmd())
}

func loadRule() (recurrence.Rule, error) {
	path := viper.GetString("rule")
	if path == "" {
		return recurrence.Rule{}, fmt.Errorf("--rule required")
	}
	return rulefile.Load(path)
}

func parseWhen(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: want RFC 3339, e.g. 2026-01-31T09:00:00Z: %w", s, err)
	}
	return t, nil
}

func previewCmd() *cobra.Command {
	var from string
	var limit int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List upcoming occurrences",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := loadRule()
			if err != nil {
				return err
			}
			start, err := parseWhen(from)
			if err != nil {
				return err
			}

			engine := recurrence.NewEngineWithConfig(recurrence.UncachedConfig)
			occ, err := engine.Occurrences(rule, start, limit)
			if err != nil {
				return err
			}

			if viper.GetBool("json") {
				return printJSON(occ)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"#", "Occurrence", "Weekday"})
			for i, t := range occ {
				tw.AppendRow(table.Row{i + 1, t.Format(time.RFC3339), t.Weekday()})
			}
			tw.Render()
			if len(occ) < limit {
				fmt.Printf("(%d of %d: rule ends)\n", len(occ), limit)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (RFC 3339, default now)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum occurrences to list")
	return cmd
}

func nextCmd() *cobra.Command {
	var after string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the next occurrence",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := loadRule()
			if err != nil {
				return err
			}
			ref, err := parseWhen(after)
			if err != nil {
				return err
			}

			engine := recurrence.NewEngineWithConfig(recurrence.UncachedConfig)
			next, ok, err := engine.NextOccurrence(rule, ref)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no further occurrences after %s", ref.Format(time.RFC3339))
			}
			if viper.GetBool("json") {
				return printJSON(next)
			}
			fmt.Println(next.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&after, "after", "", "reference date (RFC 3339, default now)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the rule as an RFC 5545 RRULE value",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := loadRule()
			if err != nil {
				return err
			}
			value, err := ical.EncodeRRule(rule)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"rrule": value})
			}
			fmt.Println(value)
			return nil
		},
	}
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a rule file for configuration errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := loadRule()
			if err != nil {
				return err
			}
			// Load already validates; re-resolve to surface the custom
			// frequency mapping in the output.
			resolved, err := rule.Resolve()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(resolved)
			}
			fmt.Printf("ok: %s every %d\n", resolved.Frequency, resolved.Interval)
			return nil
		},
	}
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
