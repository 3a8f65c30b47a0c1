package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/efebarandurmaz/atlas/internal/analyze"
	"github.com/efebarandurmaz/atlas/internal/cache"
	"github.com/efebarandurmaz/atlas/internal/config"
	"github.com/efebarandurmaz/atlas/internal/engine"
	"github.com/efebarandurmaz/atlas/internal/graph"
	"github.com/efebarandurmaz/atlas/internal/graph/neo4j"
	"github.com/efebarandurmaz/atlas/internal/observability"
	"github.com/efebarandurmaz/atlas/internal/search"
	"github.com/efebarandurmaz/atlas/internal/server"
	"github.com/efebarandurmaz/atlas/internal/traverse"
	"github.com/efebarandurmaz/atlas/internal/vector"
	qdrantstore "github.com/efebarandurmaz/atlas/internal/vector/qdrant"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	var (
		configPath string
		graphID    string
		jsonOutput bool
	)

	rootCmd := &cobra.Command{
		Use:   "atlas",
		Short: "Code knowledge graph indexing, traversal and search engine",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (optional, env vars also apply)")
	rootCmd.PersistentFlags().StringVar(&graphID, "graph", "", "Graph ID to query")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	// search
	var (
		searchTypes string
		searchLimit int
		searchMode  string
		searchFiles string
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search nodes by name, file or fuzzy match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				if searchFiles != "" {
					results, err := e.Search(ctx, graphID, args[0], search.Filters{
						NodeTypes:    parseNodeTypes(searchTypes),
						FilePatterns: splitList(searchFiles),
					}, searchLimit)
					if err != nil {
						return err
					}
					return printResults(results, jsonOutput)
				}

				results, err := e.SearchNodes(ctx, graphID, engine.SearchParams{
					Query:     args[0],
					NodeTypes: parseNodeTypes(searchTypes),
					Limit:     searchLimit,
					Mode:      search.Mode(searchMode),
				})
				if err != nil {
					return err
				}
				return printResults(results, jsonOutput)
			})
		},
	}
	searchCmd.Flags().StringVar(&searchTypes, "types", "", "Comma-separated node types to include")
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.DefaultLimit, "Maximum results")
	searchCmd.Flags().StringVar(&searchMode, "mode", "fuzzy", "Search mode: fuzzy, exact or semantic")
	searchCmd.Flags().StringVar(&searchFiles, "files", "", "Comma-separated file patterns to filter by")

	// explore
	var (
		exploreDepth     int
		exploreMaxNodes  int
		exploreDirection string
		exploreRelations string
		exploreExclude   string
	)
	exploreCmd := &cobra.Command{
		Use:   "explore <node-id>",
		Short: "Walk a node's neighborhood breadth-first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				result, err := e.ExploreGraph(ctx, graphID, args[0], traverse.Options{
					Depth:         exploreDepth,
					MaxNodes:      exploreMaxNodes,
					Direction:     traverse.Direction(exploreDirection),
					RelationTypes: parseEdgeTypes(exploreRelations),
					ExcludeTypes:  parseNodeTypes(exploreExclude),
					IncludeEdges:  true,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(result)
				}
				fmt.Printf("Explored %d nodes, %d edges from %s (depth %d)\n",
					len(result.Nodes), len(result.Edges), result.RootID, result.Depth)
				if result.Truncated {
					fmt.Printf("Truncated at %d nodes\n", exploreMaxNodes)
				}
				for _, n := range result.Nodes {
					fmt.Printf("  %-12s %-40s %s\n", n.Type, n.Name, n.CanonicalID)
				}
				return nil
			})
		},
	}
	exploreCmd.Flags().IntVar(&exploreDepth, "depth", traverse.DefaultDepth, "Traversal depth")
	exploreCmd.Flags().IntVar(&exploreMaxNodes, "max-nodes", traverse.DefaultMaxNodes, "Maximum nodes to visit")
	exploreCmd.Flags().StringVar(&exploreDirection, "direction", "both", "Edge direction: outgoing, incoming or both")
	exploreCmd.Flags().StringVar(&exploreRelations, "relations", "", "Comma-separated edge types to follow")
	exploreCmd.Flags().StringVar(&exploreExclude, "exclude-types", "", "Comma-separated node types to skip")

	// node
	nodeCmd := &cobra.Command{
		Use:   "node <node-id>",
		Short: "Show one node with its edges and same-file siblings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				details, err := e.GetNodeDetails(ctx, graphID, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(details)
				}
				fmt.Printf("%s (%s)\n", details.Node.Name, details.Node.Type)
				fmt.Printf("  ID:   %s\n", details.Node.CanonicalID)
				fmt.Printf("  File: %s\n", details.Node.FilePath)
				fmt.Printf("  Incoming edges: %d   Outgoing edges: %d   Siblings: %d\n",
					len(details.Incoming), len(details.Outgoing), len(details.Siblings))
				return nil
			})
		},
	}

	// deps
	var depsDirection string
	depsCmd := &cobra.Command{
		Use:   "deps <node-id>",
		Short: "List a node's direct dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				deps, err := e.FindDependencies(ctx, graphID, args[0], traverse.Direction(depsDirection))
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(deps)
				}
				fmt.Printf("Direct dependencies: %d\n", deps.DirectCount)
				for _, d := range deps.Outgoing {
					fmt.Printf("  -> %-40s %-12s %s\n", d.Name, d.Type, d.Relation)
				}
				for _, d := range deps.Incoming {
					fmt.Printf("  <- %-40s %-12s %s\n", d.Name, d.Type, d.Relation)
				}
				return nil
			})
		},
	}
	depsCmd.Flags().StringVar(&depsDirection, "direction", "both", "Edge direction: outgoing, incoming or both")

	// cycles
	var (
		cyclesMax         int
		cyclesMinSeverity string
	)
	cyclesCmd := &cobra.Command{
		Use:   "cycles",
		Short: "Detect circular dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				cycles, err := e.FindCircularDependencies(ctx, graphID, cyclesMax, analyze.Severity(cyclesMinSeverity))
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cycles)
				}
				if len(cycles) == 0 {
					fmt.Println("No circular dependencies found")
					return nil
				}
				for i, c := range cycles {
					fmt.Printf("%d. [%s] %s\n", i+1, c.Severity, strings.Join(c.Path, " -> "))
				}
				return nil
			})
		},
	}
	cyclesCmd.Flags().IntVar(&cyclesMax, "max-cycles", analyze.DefaultMaxCycles, "Maximum cycles to report")
	cyclesCmd.Flags().StringVar(&cyclesMinSeverity, "min-severity", "low", "Minimum severity: low, medium or high")

	// path
	var pathMaxDepth int
	pathCmd := &cobra.Command{
		Use:   "path <from-id> <to-id>",
		Short: "Find the shortest path between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				p, err := e.ShortestPath(ctx, graphID, args[0], args[1], pathMaxDepth)
				if err != nil {
					return err
				}
				if p == nil {
					fmt.Printf("No path from %s to %s within depth %d\n", args[0], args[1], pathMaxDepth)
					return nil
				}
				if jsonOutput {
					return printJSON(p)
				}
				fmt.Printf("Path length %d:\n", p.Length)
				for _, n := range p.Nodes {
					fmt.Printf("  %-12s %s\n", n.Type, n.CanonicalID)
				}
				return nil
			})
		},
	}
	pathCmd.Flags().IntVar(&pathMaxDepth, "max-depth", traverse.DefaultPathDepth, "Maximum path depth")

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				report, err := e.GetGraphStatistics(ctx, graphID)
				if err != nil {
					return err
				}
				if jsonOutput {
					data, err := report.JSON()
					if err != nil {
						return err
					}
					fmt.Println(string(data))
					return nil
				}
				report.PrintSummary(os.Stdout)
				return nil
			})
		},
	}

	// index
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Embed a graph's nodes into the vector backend for semantic search",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(configPath, func(ctx context.Context, e *engine.Engine) error {
				if !e.SemanticEnabled() {
					return fmt.Errorf("no semantic backend configured, set vector.enabled and vector.embed_url")
				}
				if err := e.IndexForSemantic(ctx, graphID); err != nil {
					return err
				}
				fmt.Printf("Indexed graph %s for semantic search\n", graphID)
				return nil
			})
		},
	}

	// serve
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the health and metrics sidecar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	for _, c := range []*cobra.Command{searchCmd, exploreCmd, nodeCmd, depsCmd, cyclesCmd, pathCmd, statsCmd, indexCmd} {
		c.PreRunE = func(cmd *cobra.Command, args []string) error {
			if graphID == "" {
				return fmt.Errorf("--graph is required")
			}
			return nil
		}
	}

	rootCmd.AddCommand(searchCmd, exploreCmd, nodeCmd, depsCmd, cyclesCmd, pathCmd, statsCmd, indexCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// components holds everything withEngine wires up, so it can be torn down.
type components struct {
	cfg    *config.Config
	store  *neo4j.Store
	vector *qdrantstore.Repository
	engine *engine.Engine
	tracer *observability.TracerProvider
}

func setup(ctx context.Context, configPath string) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)

	tracer, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "atlas",
		ServiceVersion: version,
		Environment:    cfg.Observability.Environment,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		SampleRate:     cfg.Observability.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	store, err := neo4j.New(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
	if err != nil {
		return nil, fmt.Errorf("connect graph store: %w", err)
	}

	idxCache := cache.New(store, cache.Options{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
	})

	c := &components{cfg: cfg, store: store, tracer: tracer}

	var engineOpts []engine.Option
	if cfg.Vector.Enabled {
		repo, err := qdrantstore.New(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
		switch {
		case err != nil:
			slog.Warn("semantic backend unavailable, semantic mode degrades to fuzzy", "error", err)
		case cfg.Vector.EmbedURL == "":
			c.vector = repo
			slog.Warn("vector.embed_url is not set, semantic mode degrades to fuzzy")
		default:
			c.vector = repo
			embedder := vector.NewHTTPEmbedder(cfg.Vector.EmbedURL, cfg.Vector.EmbedAPIKey, cfg.Vector.EmbedModel)
			engineOpts = append(engineOpts, engine.WithSemanticBackend(repo, embedder))
		}
	}

	c.engine = engine.New(idxCache, engineOpts...)
	return c, nil
}

func (c *components) close(ctx context.Context) {
	if c.vector != nil {
		if err := c.vector.Close(); err != nil {
			slog.Error("closing vector store", "error", err)
		}
	}
	if err := c.store.Close(ctx); err != nil {
		slog.Error("closing graph store", "error", err)
	}
	if err := c.tracer.Shutdown(ctx); err != nil {
		slog.Error("shutting down tracing", "error", err)
	}
}

func withEngine(configPath string, fn func(ctx context.Context, e *engine.Engine) error) error {
	ctx := context.Background()
	c, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer c.close(ctx)
	return fn(ctx, c.engine)
}

func runServe(configPath string) error {
	ctx := context.Background()
	c, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	graceful := server.NewGracefulServer(
		&server.HealthConfig{Version: version},
		server.DefaultShutdownConfig(),
	)

	graceful.Health.RegisterCheck("graph-store", server.GraphStoreHealthChecker(c.store.Ping))
	graceful.Health.RegisterCheck("vector-store", server.VectorHealthChecker(c.cfg.Vector.Enabled, nil))
	graceful.Health.RegisterCheck("index-cache", server.CacheHealthChecker(func() (int64, int64, int64, int64) {
		s := c.engine.CacheStats()
		return s.Hits, s.Misses, s.Builds, s.Errors
	}))
	graceful.Health.Mount("/metrics", observability.Metrics().Handler())

	graceful.Shutdown.Register(server.GraphStoreShutdownHook(c.store.Close))
	if c.vector != nil {
		graceful.Shutdown.Register(server.VectorShutdownHook(c.vector.Close))
	}
	graceful.Shutdown.Register(server.TracingShutdownHook(c.tracer.Shutdown))

	if err := graceful.Start(c.cfg.Server.Addr); err != nil {
		return err
	}
	slog.Info("atlas serving", "addr", c.cfg.Server.Addr)
	graceful.Wait()
	return nil
}

func setupLogging(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func parseNodeTypes(s string) []graph.NodeType {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil
	}
	types := make([]graph.NodeType, 0, len(parts))
	for _, p := range parts {
		types = append(types, graph.NodeType(p))
	}
	return types
}

func parseEdgeTypes(s string) []graph.EdgeType {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil
	}
	types := make([]graph.EdgeType, 0, len(parts))
	for _, p := range parts {
		types = append(types, graph.EdgeType(strings.ToUpper(p)))
	}
	return types
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printResults(results []search.Result, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No results")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%.2f  %-12s %-40s %s\n", r.Score, r.Node.Type, r.Node.Name, r.Node.CanonicalID)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
