package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bingLAN/table_view/common"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Resources []ResourceConfig
	View      ViewConfig
	Log       LogConfig
}

// ServerConfig is the listen side of serve.
type ServerConfig struct {
	Addr          string
	SessionCookie string `mapstructure:"session_cookie"`
}

// DatabaseConfig describes the application database: it serves the tables
// and holds the login table.
type DatabaseConfig struct {
	Type                 string
	common.Configuration `mapstructure:",squash"`
}

// ResourceConfig exposes one table under a name. Table defaults to Name.
type ResourceConfig struct {
	Name   string
	Table  string
	Public bool
}

// ViewConfig drives the render command.
type ViewConfig struct {
	APIBase         string        `mapstructure:"api_base"`
	DefaultResource string        `mapstructure:"default_resource"`
	LoginPage       string        `mapstructure:"login_page"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LogConfig sets the zap level.
type LogConfig struct {
	Level string
}

func defaultResources() []map[string]interface{} {
	public := []string{"blockinfo", "roominfo", "messinfo", "feesinfo"}
	private := []string{"studentinfo", "login", "hostelmanagerinfo", "roomapplication"}

	var out []map[string]interface{}
	for _, name := range public {
		out = append(out, map[string]interface{}{"name": name, "public": true})
	}
	for _, name := range private {
		out = append(out, map[string]interface{}{"name": name, "public": false})
	}
	return out
}

// Load reads configuration from file and env. Env var overrides use prefix TABLEVIEW_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.session_cookie", "session")
	v.SetDefault("database.type", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.name", "hostel_db")
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.extra_params", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_pool_size", 50)
	v.SetDefault("database.max_idle_time", 300)
	v.SetDefault("database.connect_timeout", 5)
	v.SetDefault("database.query_timeout", 30)
	v.SetDefault("resources", defaultResources())
	v.SetDefault("view.api_base", "http://localhost:3000/api")
	v.SetDefault("view.default_resource", "blockinfo")
	v.SetDefault("view.login_page", "login.html")
	v.SetDefault("view.timeout", "0s")
	v.SetDefault("log.level", "info")

	v.SetConfigType("yaml")

	cfgPath := os.Getenv("TABLEVIEW_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "tableview"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TABLEVIEW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit path must exist, the default location may not
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Datasource turns the database section into a datasource definition.
func (c Config) Datasource() common.DatasourceTable {
	return common.DatasourceTable{
		Name:   c.Database.DataBase,
		Type:   c.Database.Type,
		Config: c.Database.Configuration,
	}
}

// ResourceTables binds every configured resource to datasourceId.
func (c Config) ResourceTables(datasourceId string) []common.ResourceTable {
	out := make([]common.ResourceTable, 0, len(c.Resources))
	for _, r := range c.Resources {
		table := r.Table
		if table == "" {
			table = r.Name
		}
		out = append(out, common.ResourceTable{
			ResourceName: r.Name,
			DatasourceId: datasourceId,
			Info:         table,
			Public:       r.Public,
		})
	}
	return out
}
