package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/armatrix/mcp-gateway/pool"
)

// probeOptions lets tests swap the pool dialer used by `servers test`.
var probeOptions []pool.Option

func serversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage the configured MCP server fleet",
	}
	cmd.AddCommand(serversListCmd())
	cmd.AddCommand(serversAddCmd())
	cmd.AddCommand(serversRemoveCmd())
	cmd.AddCommand(serversEnableCmd())
	cmd.AddCommand(serversDisableCmd())
	cmd.AddCommand(serversTestCmd())
	return cmd
}

func serversListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(st.Servers(), "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func serversAddCmd() *cobra.Command {
	var (
		id          string
		name        string
		transport   string
		command     string
		cmdArgs     []string
		url         string
		description string
		enabled     bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an MCP server to the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			cfg := pool.ServerConfig{
				ID:          id,
				Name:        name,
				Transport:   pool.TransportKind(transport),
				Command:     command,
				Args:        cmdArgs,
				URL:         url,
				Description: description,
				Enabled:     enabled,
			}
			if err := st.Add(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: server %s added\n", cfg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "server id (unique)")
	cmd.Flags().StringVar(&name, "name", "", "server display name")
	cmd.Flags().StringVar(&transport, "transport", "", "transport: stdio|sse|streamable-http (inferred when empty)")
	cmd.Flags().StringVar(&command, "command", "", "executable to spawn (stdio transport)")
	cmd.Flags().StringSliceVar(&cmdArgs, "args", nil, "command arguments, comma separated")
	cmd.Flags().StringVar(&url, "url", "", "server endpoint URL (sse and streamable-http transports)")
	cmd.Flags().StringVar(&description, "description", "", "server description")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "enable this server")
	return cmd
}

func serversRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an MCP server from the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			if err := st.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: server %s removed\n", args[0])
			return nil
		},
	}
}

func serversEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setServerEnabled(cmd, args[0], true)
		},
	}
}

func serversDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setServerEnabled(cmd, args[0], false)
		},
	}
}

func setServerEnabled(cmd *cobra.Command, id string, enabled bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if _, err := st.SetEnabled(id, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: server %s %s\n", id, state)
	return nil
}

func serversTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Connect to an MCP server and list its tools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			cfg, ok := st.Server(args[0])
			if !ok {
				return fmt.Errorf("server %s not found", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			tools, err := pool.New(probeOptions...).Probe(ctx, cfg)
			if err != nil {
				return fmt.Errorf("server %s: %w", cfg.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: server %s reachable, %d tools\n", cfg.ID, len(tools))
			for _, t := range tools {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", t.Name, t.Description)
			}
			return nil
		},
	}
}
