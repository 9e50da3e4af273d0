package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/llm-translator-go/internal/app"
	"github.com/llm-translator-go/internal/cli"
	"github.com/llm-translator-go/internal/hotkeys"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	s := &cli.Session{}

	root := &cobra.Command{
		Use:   "translator",
		Short: "Translate text and inspect the translator from the command line",
		Long: "translator runs one-off translations and reads hotkey tables, history and presets. " +
			"The hotkey daemon is the separate translatord binary.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	s.BindFlags(root)

	root.AddCommand(newTranslateCommand(s))
	root.AddCommand(newHotkeyCommand(s))
	root.AddCommand(newHistoryCommand(s))
	root.AddCommand(newStatsCommand(s))
	root.AddCommand(newPresetsCommand(s))
	return root
}

func newTranslateCommand(s *cli.Session) *cobra.Command {
	var (
		preset  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text from the arguments or standard input",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Load(true); err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if len(args) == 0 || text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read standard input: %w", err)
				}
				text = string(data)
			}

			a, err := app.New(nil, s.Config, s.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel func()
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			a.Start(ctx)

			res, err := a.Translate(ctx, text, strings.ToLower(preset))
			if err != nil {
				return errors.New(a.Describe(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Prompt preset (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")
	return cmd
}

func newHotkeyCommand(s *cli.Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotkey",
		Short: "Inspect hotkey combinations",
	}

	var platformName string
	check := &cobra.Command{
		Use:   "check [combo]",
		Short: "Check whether a combination can be used as the translate hotkey",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Load(true); err != nil {
				return err
			}

			raw := s.Config.Hotkey.Translate
			if len(args) == 1 {
				raw = args[0]
			}
			combo, err := hotkeys.ParseKeyCombo(raw)
			if err != nil {
				return err
			}

			plat := hotkeys.CurrentPlatform()
			switch {
			case platformName != "":
				plat = hotkeys.PlatformFor(platformName)
			case s.Config.Hotkey.Platform != "":
				plat = hotkeys.PlatformFor(s.Config.Hotkey.Platform)
			}

			validator := hotkeys.NewValidator(plat, hotkeys.ParseFallbacks(s.Config.Hotkey.Alternatives, s.Logger), s.Logger)
			verdict := validator.Validate(combo)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s on %s: %s\n", combo.Display(plat), plat, verdict)
			if verdict != hotkeys.Valid {
				if alt, ok := validator.SuggestAlternative(combo); ok {
					fmt.Fprintf(out, "suggested alternative: %s\n", alt.Display(plat))
				}
				return fmt.Errorf("hotkey %s is not usable", combo)
			}
			return nil
		},
	}
	check.Flags().StringVar(&platformName, "platform", "", "Platform table to check against (windows, macos, linux)")

	reserved := &cobra.Command{
		Use:   "reserved",
		Short: "List the shortcuts reserved on a platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plat := hotkeys.CurrentPlatform()
			if platformName != "" {
				plat = hotkeys.PlatformFor(platformName)
			}
			for _, combo := range hotkeys.ReservedCombos(plat) {
				fmt.Fprintln(cmd.OutOrStdout(), combo)
			}
			return nil
		},
	}
	reserved.Flags().StringVar(&platformName, "platform", "", "Platform (windows, macos, linux)")

	cmd.AddCommand(check, reserved)
	return cmd
}

func newHistoryCommand(s *cli.Session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent translations",
		Long:  "Show recent translations recorded by translatord and translate. Needs a persistent storage type (sqlite or redis).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Load(true); err != nil {
				return err
			}
			a, err := app.New(nil, s.Config, s.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.History().Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No translations recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSOURCE\tSTATUS\tPRESET\tCHARS\tDURATION\tCACHED")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d→%d\t%s\t%v\n",
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					rec.Source,
					rec.Status,
					rec.Preset,
					rec.SourceChars,
					rec.ResultChars,
					time.Duration(rec.DurationMS)*time.Millisecond,
					rec.Cached,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show (0 for all)")
	return cmd
}

func newStatsCommand(s *cli.Session) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show translation totals for a UTC day",
		Long:  "Show translation totals for a UTC day. Needs a persistent storage type (sqlite or redis).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Load(true); err != nil {
				return err
			}
			a, err := app.New(nil, s.Config, s.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.History().DailyStats(cmd.Context(), day)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Day:           %s\n", stats.Day)
			fmt.Fprintf(out, "Translations:  %d\n", stats.Translations)
			fmt.Fprintf(out, "Failures:      %d\n", stats.Failures)
			fmt.Fprintf(out, "Source chars:  %d\n", stats.SourceChars)
			fmt.Fprintf(out, "Result chars:  %d\n", stats.ResultChars)
			fmt.Fprintf(out, "Daily limit:   %d\n", s.Config.Limits.RequestsPerDay)
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day as YYYY-MM-DD (default today)")
	return cmd
}

func newPresetsCommand(s *cli.Session) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List prompt presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Load(true); err != nil {
				return err
			}

			ids := make([]string, 0, len(s.Config.Prompt.Presets))
			for id := range s.Config.Prompt.Presets {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			out := cmd.OutOrStdout()
			for _, id := range ids {
				marker := " "
				if id == s.Config.Prompt.ActivePreset {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-10s %s\n", marker, id, s.Config.Prompt.Presets[id].Name)
			}
			return nil
		},
	}
}
