// Package main provides the entry point for the agent runtime core daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentcore-ai/runtime/internal/actor"
	"github.com/agentcore-ai/runtime/internal/agent"
	"github.com/agentcore-ai/runtime/internal/checkpoint"
	"github.com/agentcore-ai/runtime/internal/config"
	"github.com/agentcore-ai/runtime/internal/eventstore"
	"github.com/agentcore-ai/runtime/internal/logging"
	"github.com/agentcore-ai/runtime/internal/mcptools"
	"github.com/agentcore-ai/runtime/internal/permission"
	"github.com/agentcore-ai/runtime/internal/provider"
	"github.com/agentcore-ai/runtime/internal/server"
	"github.com/agentcore-ai/runtime/internal/storage"
	"github.com/agentcore-ai/runtime/internal/tool"
	"github.com/agentcore-ai/runtime/internal/toolrunner"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"

	// PermissionTimeout bounds how long a turn blocks on an unanswered
	// permission prompt (§4.C) before failing the tool call.
	PermissionTimeout = 5 * time.Minute
	// EventStoreCapacity is the per-session retention window and
	// per-subscriber buffer size (§4.B).
	EventStoreCapacity = eventstore.DefaultCapacity
)

var (
	port      int
	directory string
)

var rootCmd = &cobra.Command{
	Use:     "agentcored",
	Short:   "Run the agent runtime core as a headless HTTP daemon",
	Version: fmt.Sprintf("%s (%s)", Version, BuildTime),
	RunE:    runDaemon,
}

func init() {
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&directory, "directory", "d", "", "Working directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal().Err(err).Msg("agentcored exited with error")
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	workDir := directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}

	logging.Info().Str("version", Version).Msg("Starting agentcored")
	logging.Info().Str("directory", workDir).Msg("Working directory")

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return fmt.Errorf("create data directories: %w", err)
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	store := storage.New(paths.StoragePath())

	ctx := context.Background()
	providerReg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to initialize some providers")
	}

	agentReg := agent.NewRegistry()

	events := eventstore.New(EventStoreCapacity)
	permissions := permission.NewChecker(events, PermissionTimeout)

	toolReg := tool.DefaultRegistry(workDir, store)
	tools := toolrunner.New(toolReg, permissions, events)

	mcpClient := mcptools.NewClient()
	for name, mcpCfg := range appConfig.MCP {
		if err := mcpClient.AddServer(ctx, name, mcpCfg); err != nil {
			logging.Warn().Err(err).Str("server", name).Msg("Failed to connect MCP server")
		}
	}
	mcptools.Register(toolReg, mcpClient)

	deps := actor.Deps{
		Storage:      store,
		Events:       events,
		Providers:    providerReg,
		Agents:       agentReg,
		ToolRegistry: toolReg,
		Tools:        tools,
		Compaction:   actor.DefaultCompactionConfig,
		Permissions:  permissions,
	}

	// tool.Registry's task tool needs a TaskExecutor, which is the
	// SubagentRunner built from deps (which itself embeds ToolRegistry) —
	// resolved with the teacher's own two-phase wiring (construct both,
	// then bind) rather than a new injection indirection.
	subagents := actor.NewSubagentRunner(deps)
	toolReg.SetTaskExecutor(subagents)

	checkpoints := checkpoint.New(store)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port
	serverConfig.Directory = workDir

	srv := server.New(serverConfig, appConfig, deps, checkpoints)

	go func() {
		logging.Info().Int("port", port).Str("url", fmt.Sprintf("http://localhost:%d", port)).Msg("Server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Server shutdown error")
	}
	if err := events.Close(); err != nil {
		logging.Error().Err(err).Msg("Event store shutdown error")
	}
	if err := mcpClient.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing MCP servers")
	}

	logging.Info().Msg("Server stopped")
	return nil
}
