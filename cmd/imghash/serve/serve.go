// Package servecmder provides the serve command, running the HTTP API and,
// optionally, the MCP server against one shared index.
package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/api"
	"github.com/s-bear/image-hash/api/mcp"
	"github.com/s-bear/image-hash/cmd/imghash/indexctx"
	"github.com/s-bear/image-hash/pkg/config"
	"github.com/s-bear/image-hash/pkg/logger"
)

const serveLongDesc string = `Run the image-hash HTTP API and, optionally, the MCP server.

Both surfaces share one open index; the API server always runs, and --mcp
additionally starts the find_similar MCP tool on its own listen address.

Examples:
  imghash serve
  imghash serve --api-listen :9090 --mcp --mcp-listen :9091`

const serveShortDesc string = "Run the HTTP API and MCP server"

type serveCommander struct {
	apiListen string
	mcpListen string
	mcp       bool
	debug     bool
	configDir string
	logger    *zap.Logger
}

// NewServeCmd builds the serve command.
func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.apiListen, "api-listen", "a", "", "Address for the API server to listen on (default: api.listen from config, or :8081)")
	cmd.Flags().BoolVar(&cmder.mcp, "mcp", false, "Also start the MCP server")
	cmd.Flags().StringVar(&cmder.mcpListen, "mcp-listen", ":8082", "Address for the MCP server to listen on, when --mcp is set")

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	listen := c.apiListen
	if listen == "" {
		listen = cfg.API.Listen
	}
	if listen == "" {
		listen = ":8081"
	}

	ctx := context.Background()

	ictx, err := indexctx.Open(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer ictx.Close()

	apiServer := api.NewServer(api.Config{ListenAddr: listen}, ictx.Index, ictx.Items, ictx.Hasher, c.logger)

	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if c.mcp {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Index:  ictx.Index,
			Items:  ictx.Items,
			Hasher: ictx.Hasher,
			Logger: c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}

		c.logger.Info("starting MCP server", zap.String("listen", c.mcpListen), zap.String("path", "/mcp"))
		mux := http.NewServeMux()
		mux.Handle("/mcp", mcpServer.Handler())

		go func() {
			if err := http.ListenAndServe(c.mcpListen, mux); err != nil {
				errChan <- fmt.Errorf("MCP server error: %w", err)
			}
		}()
	}

	c.logger.Info("serving", zap.String("api_listen", listen), zap.Bool("mcp", c.mcp))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

