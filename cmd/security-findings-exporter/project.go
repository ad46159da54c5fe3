package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/config"
	"github.com/lex00/security-findings-exporter-go/internal/log"
	"github.com/lex00/security-findings-exporter-go/securityfindings"
	"github.com/lex00/security-findings-exporter-go/stack"
)

const (
	configFlag    = "config"
	idFlag        = "id"
	stackNameFlag = "stack-name"
)

func registerProjectFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(configFlag, "c", "exporter.yaml", "Exporter configuration file (YAML or JSON)")
	cmd.PersistentFlags().String(idFlag, "", "Instance id, overrides instanceId from the configuration")
	cmd.PersistentFlags().String(stackNameFlag, "", "Stack name, overrides stackName from the configuration")
}

// project is a loaded configuration together with the logger of the command
// that loaded it.
type project struct {
	path   string
	cfg    *config.Config
	logger *slog.Logger
}

// synthesis is a composed and synthesized stack.
type synthesis struct {
	stack    *stack.Stack
	exporter *securityfindings.Exporter
	template *exporter.Template
}

func loadProject(cmd *cobra.Command) (*project, error) {
	logger, err := log.Logger(cmd)
	if err != nil {
		return nil, err
	}

	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.MigratedFrom != 0 {
		logger.Warn("configuration uses an old schema version and was migrated",
			"path", path, "schemaVersion", cfg.MigratedFrom, "current", config.CurrentSchemaVersion)
	}

	if id, _ := cmd.Flags().GetString(idFlag); id != "" {
		cfg.InstanceID = id
	}
	if name, _ := cmd.Flags().GetString(stackNameFlag); name != "" {
		cfg.StackName = name
	}

	logger.Debug("loaded configuration", "path", path, "stack", cfg.StackName, "instance", cfg.InstanceID)
	return &project{path: path, cfg: cfg, logger: logger}, nil
}

// compose declares the exporter into a new stack without synthesizing it.
func (p *project) compose() (*stack.Stack, *securityfindings.Exporter, error) {
	var opts []stack.Option
	if p.cfg.Description != "" {
		opts = append(opts, stack.WithDescription(p.cfg.Description))
	}
	st := stack.New(p.cfg.StackName, opts...)

	exp, err := securityfindings.New(st, p.cfg.InstanceID, p.cfg.Request)
	if err != nil {
		return nil, nil, fmt.Errorf("composing exporter: %w", err)
	}
	return st, exp, nil
}

func (p *project) synth() (*synthesis, error) {
	st, exp, err := p.compose()
	if err != nil {
		return nil, err
	}
	tmpl, err := st.Synth()
	if err != nil {
		return nil, err
	}

	p.logger.Info("synthesized stack",
		"stack", st.Name(),
		"resources", len(tmpl.Resources),
		"functionArn", exp.FunctionArn(),
		"asset", exp.Unit().AssetPath)
	return &synthesis{stack: st, exporter: exp, template: tmpl}, nil
}
