package main

import (
	"github.com/llm-translator-go/internal/app"
	"github.com/llm-translator-go/internal/cli"
	"github.com/llm-translator-go/internal/platform/desktop"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	s := &cli.Session{}

	root := &cobra.Command{
		Use:   "translatord",
		Short: "Translate the selected text with an LLM from a global hotkey",
		Long: "translatord listens for a global hotkey, copies the current selection, " +
			"translates it with an OpenAI-compatible chat completion API and pastes the result back.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, s)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	s.BindFlags(root)
	return root
}

func runDaemon(cmd *cobra.Command, s *cli.Session) error {
	if err := s.Load(false); err != nil {
		return err
	}
	log := s.Logger
	if s.Config.API.APIKey == "" {
		log.Warn("No API key configured, translations will fail until TRANSLATOR_API_KEY is set")
	}

	a, err := app.New(s.Loader, s.Config, log)
	if err != nil {
		return err
	}
	defer a.Close()

	dev, err := openDevices(log)
	if err != nil {
		a.Alert(err)
		return err
	}

	log.WithFields(logrus.Fields{
		"config": s.Loader.Path(),
		"model":  s.Config.API.Model,
		"preset": s.Config.Prompt.ActivePreset,
	}).Info("Starting translator")
	return a.Run(cmd.Context(), dev)
}

func openDevices(log *logrus.Logger) (app.Devices, error) {
	clipboard, err := desktop.NewClipboard()
	if err != nil {
		return app.Devices{}, err
	}
	keys, err := desktop.NewKeySender()
	if err != nil {
		return app.Devices{}, err
	}
	return app.Devices{
		Clipboard: clipboard,
		Keys:      keys,
		Binder:    desktop.NewHotkeyBinder(log),
	}, nil
}
