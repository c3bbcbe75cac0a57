package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/agent"
	"github.com/agentmesh/agentmesh/pkg/orchestrator"
	"github.com/agentmesh/agentmesh/pkg/service"
	"github.com/agentmesh/agentmesh/pkg/stores"
	"github.com/agentmesh/agentmesh/pkg/tasks"
)

var (
	portFlag      int
	hostFlag      string
	agentNameFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run agentmesh services",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	agentCmd = &cobra.Command{
		Use:   "agent",
		Short: "Serve an A2A agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			card := a2a.NewAgentCardFromConfig(agentNameFlag)

			if card.URL == "" {
				card.URL = fmt.Sprintf("http://%s:%d", hostFlag, portFlag)
			}

			if err := card.Validate(); err != nil {
				return err
			}

			log.Info("serving agent", "name", card.Name, "addr", addr())

			srv := service.NewAgentServer(agent.New(
				card,
				agent.NewEchoHandler(),
				tasks.NewTracker(stores.NewInMemoryTaskStore()),
			))

			return srv.Listen(addr())
		},
	}

	orchestratorCmd = &cobra.Command{
		Use:   "orchestrator",
		Short: "Serve the orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			card := a2a.NewAgentCardFromConfig("orchestrator")

			if card.URL == "" {
				card.URL = fmt.Sprintf("http://%s:%d", hostFlag, portFlag)
			}

			if err := card.Validate(); err != nil {
				return err
			}

			orch := orchestrator.New(card, orchestrator.PlannerConfig{
				MaxResults: viper.GetInt("orchestrator.max_results"),
				Fallback:   viper.GetString("orchestrator.fallback"),
			})

			orch.RegisterAgents(
				context.Background(),
				viper.GetStringSlice("orchestrator.agents"),
			)

			log.Info("serving orchestrator", "name", card.Name, "addr", addr())

			return service.NewOrchestratorServer(orch).Listen(addr())
		},
	}
)

func addr() string {
	return fmt.Sprintf("%s:%d", hostFlag, portFlag)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(agentCmd)
	serveCmd.AddCommand(orchestratorCmd)

	serveCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.PersistentFlags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")

	agentCmd.Flags().StringVarP(&agentNameFlag, "name", "n", "echo", "Agent config key to serve")
}

var longServe = `
Serve an A2A agent or the orchestrator.

Examples:
  # Serve the echo agent on port 8080
  agentmesh serve agent --name echo --port 8080

  # Serve the orchestrator on port 3210
  agentmesh serve orchestrator
`
