// Package gateway connects AI agents to MCP servers and streams agent
// runs as wire-ready event frames.
//
// A [Gateway] owns a pool of MCP server connections, a persisted server
// configuration, and a session store. Each call to [Gateway.Run] executes
// one agent run: the configured model streams a reply, calls MCP tools
// through the pool, and every step is projected into the run-event
// protocol (RunStarted, RunContent, ToolCallStarted, ToolCallCompleted,
// RunCompleted, RunError).
//
// # Quick Start
//
//	store := config.NewStore("")
//	store.Load()
//	gw := gateway.New(store)
//	gw.Reconcile(ctx)
//
//	stream, err := gw.Run(ctx, gateway.RunRequest{Message: "list the tables"})
//	for stream.Next() {
//	    frame := stream.Current()
//	    // write frame as an SSE data line
//	}
//
// # Sub-packages
//
//   - [pool] manages MCP server connections and the aggregated tool catalog.
//   - [config] persists server definitions and the model configuration.
//   - [session] provides conversation stores (memory, file, redis).
package gateway
