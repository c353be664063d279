// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/reflector/pkg/config"
	"github.com/kadirpekel/reflector/pkg/logger"
	"github.com/kadirpekel/reflector/pkg/reflector"
)

// CLI is the top-level command structure.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run the refinement loop for a topic."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("reflector version %s\n", version)
	return nil
}

// RunCmd runs one refinement loop and prints the final draft to stdout.
type RunCmd struct {
	Topic string `arg:"" help:"Topic to write about."`

	// Zero-config options, used when no config file is given
	Provider             string  `help:"LLM provider (anthropic, openai, gemini, ollama)."`
	Model                string  `help:"Model name."`
	APIKey               string  `name:"api-key" help:"API key (defaults to environment variable)."`
	BaseURL              string  `name:"base-url" help:"Custom API base URL."`
	Temperature          float64 `help:"Temperature for generation." default:"0.7"`
	MaxTokens            int     `name:"max-tokens" help:"Max tokens for generation." default:"4096"`
	GeneratorInstruction string  `name:"generator-instruction" help:"System instruction for the generator role."`
	ReflectorInstruction string  `name:"reflector-instruction" help:"System instruction for the reflector role."`

	TurnLimit int `name:"turn-limit" help:"Transcript length at which the loop stops." default:"0"`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := c.loadConfig(cli.Config)
	if err != nil {
		return err
	}

	runner, err := reflector.New(cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := runner.Run(ctx, c.Topic)
	if err != nil {
		return err
	}

	fmt.Println(result.Artifact)
	return nil
}

func (c *RunCmd) loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		// The turn limit flag wins over the file when given explicitly.
		if c.TurnLimit > 0 {
			cfg.Loop.TurnLimit = c.TurnLimit
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
		}
		return cfg, nil
	}

	cfg := config.CreateZeroConfig(config.ZeroConfig{
		Provider:             c.Provider,
		Model:                c.Model,
		APIKey:               c.APIKey,
		BaseURL:              c.BaseURL,
		Temperature:          c.Temperature,
		MaxTokens:            c.MaxTokens,
		GeneratorInstruction: c.GeneratorInstruction,
		ReflectorInstruction: c.ReflectorInstruction,
		TurnLimit:            c.TurnLimit,
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateCmd validates a configuration file without running anything.
type ValidateCmd struct {
	Path string `arg:"" optional:"" help:"Path to config file (defaults to --config)." type:"path"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	path := c.Path
	if path == "" {
		path = cli.Config
	}
	if path == "" {
		return fmt.Errorf("no config file given")
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("Configuration is valid: %s\n", path)
	for name, llm := range cfg.LLMs {
		fmt.Printf("  llm %s: %s/%s\n", name, llm.Provider, llm.Model)
	}
	fmt.Printf("  turn limit: %d\n", cfg.Loop.TurnLimit)
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("reflector"),
		kong.Description("Reflector - a bounded generate/critique refinement loop for short-form writing"),
		kong.UsageOnError(),
	)

	level, _ := logger.ParseLevel(cli.LogLevel)
	logger.Init(level, os.Stderr, cli.LogFormat)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
