package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/router-for-me/aigateway/internal/config"
	"github.com/router-for-me/aigateway/internal/gateway"
	"github.com/router-for-me/aigateway/internal/httpserver"
	"github.com/router-for-me/aigateway/internal/promptlog"
	"github.com/router-for-me/aigateway/internal/systemprompt"
)

// runServe is the boot sequence grounded on the teacher's main.rs: load
// config, build the provider registry, wire the optional system-prompt and
// prompt-log sidecars, then listen.
func runServe(argv []string, log *logrus.Logger) {
	configPath := config.ExtractConfigPath(argv)
	cfg, err := config.Load(configPath, argv)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	entry := log.WithField("component", "aigateway")
	entry.Info("configuration loaded")
	entry.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"port":     cfg.Port,
		"provider": cfg.ModelProvider,
	}).Info("starting gateway")

	registry, err := gateway.Build(cfg, entry)
	if err != nil {
		entry.WithError(err).Error("failed to build provider registry")
		os.Exit(1)
	}

	var promptMgr *systemprompt.Manager
	if cfg.SystemPromptFilePath != "" {
		promptMgr, err = systemprompt.New(cfg.SystemPromptFilePath, systemprompt.Mode(cfg.SystemPromptMode), entry)
		if err != nil {
			entry.WithError(err).Warn("system prompt file unavailable, continuing without injection")
			promptMgr = nil
		} else {
			defer promptMgr.Close()
		}
	}

	promptLg := promptlog.New(cfg.PromptLogMode, cfg.PromptLogBaseName, entry)
	defer promptLg.Close()

	router := httpserver.New(cfg, registry, promptMgr, promptLg, entry)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	entry.Infof("gateway listening on http://%s", addr)
	entry.Info("supports OpenAI (/v1/chat/completions, /v1/models), Claude (/v1/messages), Gemini (/v1beta/models)")

	if err := http.ListenAndServe(addr, router); err != nil {
		entry.WithError(err).Error("server error")
		os.Exit(1)
	}
}
