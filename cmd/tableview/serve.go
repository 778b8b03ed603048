package main

import (
	"fmt"

	table_view "github.com/bingLAN/table_view"
	"github.com/bingLAN/table_view/auth"
	"github.com/bingLAN/table_view/config"
	"github.com/bingLAN/table_view/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the table api and the static pages",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

// openDriver registers the configured database and its resources in an
// in-memory table driver.
func openDriver(cfg config.Config) (*table_view.TableDriver, string, error) {
	driver, err := table_view.CreateTableDriver(nil)
	if err != nil {
		return nil, "", err
	}

	dt := cfg.Datasource()
	if err = driver.AddDatasource(&dt); err != nil {
		driver.Close()
		return nil, "", fmt.Errorf("connect %s datasource: %w", dt.Type, err)
	}

	for _, rt := range cfg.ResourceTables(dt.DatasourceId) {
		rt := rt
		if err = driver.AddResource(&rt); err != nil {
			driver.Close()
			return nil, "", fmt.Errorf("register resource %s: %w", rt.ResourceName, err)
		}
	}
	return driver, dt.DatasourceId, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	driver, datasourceId, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer driver.Close()

	source, err := driver.GetDatasource(datasourceId)
	if err != nil {
		return err
	}

	srv := server.New(driver,
		auth.NewUserStore(source.DBDriver.Conn()),
		auth.NewSessions(),
		server.WithLogger(logger),
		server.WithSessionCookie(cfg.Server.SessionCookie))

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	logger.Info("serving tables",
		zap.String("datasource", source.Type()),
		zap.Int("resources", len(driver.ScanResources())))
	return srv.ListenAndServe(cmd.Context(), addr)
}
