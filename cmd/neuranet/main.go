package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nishant-bin/neuranet/analytics"
	"github.com/nishant-bin/neuranet/command"
	"github.com/nishant-bin/neuranet/config"
	"github.com/nishant-bin/neuranet/engine"
	"github.com/nishant-bin/neuranet/flow"
	"github.com/nishant-bin/neuranet/lang"
	"github.com/nishant-bin/neuranet/llm"
	"github.com/nishant-bin/neuranet/logger"
	"github.com/nishant-bin/neuranet/metadata"
	"github.com/nishant-bin/neuranet/quota"
	"github.com/nishant-bin/neuranet/rest"
	"github.com/nishant-bin/neuranet/retrieval"
	"github.com/nishant-bin/neuranet/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cli struct {
	cfg config.Config
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "neuranet", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("models-file", "models.yaml", "model endpoint definitions")
	cmd.Flags().String("default-model", "", "model used when a flow step names none")
	cmd.Flags().String("credential-key", "", "key for decrypting model credentials")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("analytics-file", "", "usage analytics output file")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.ModelsFile = viper.GetString("models-file")
	c.cfg.DefaultModel = viper.GetString("default-model")
	c.cfg.CredentialKey = viper.GetString("credential-key")
	c.cfg.LogConfig.Level = viper.GetString("log-level")
	if analyticsFile := viper.GetString("analytics-file"); len(analyticsFile) > 0 {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{
			FileName:      analyticsFile,
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
		}
	}
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	if err := logger.InitLogger(c.cfg.LogConfig); err != nil {
		return err
	}
	if err := analytics.InitDataCollector(c.cfg.AnalyticsConfig); err != nil {
		return err
	}

	var flowStorage metadata.Storage
	var kvStore session.KVStore
	switch c.cfg.StorageType {
	case config.STORAGE_TYPE_REDIS:
		flowStorage = metadata.NewRedisStorage(metadata.RedisConfig{
			Addr:      c.cfg.RedisConfig.Addrs[0],
			Namespace: c.cfg.RedisConfig.Namespace,
			Password:  c.cfg.RedisConfig.Password,
		})
		kvStore = session.NewRedisKVStore(session.RedisConfig{
			Addrs:     c.cfg.RedisConfig.Addrs,
			Namespace: c.cfg.RedisConfig.Namespace,
			Password:  c.cfg.RedisConfig.Password,
		})
	default:
		flowStorage = metadata.NewMemoryStorage()
		kvStore = session.NewMemoryKVStore()
	}

	models := llm.NewRegistry()
	if err := loadModels(c.cfg.ModelsFile, models); err != nil {
		return err
	}

	knowledge := retrieval.NewMemoryStore()
	flows := metadata.NewService(flowStorage)
	registry := engine.NewRegistry()
	command.RegisterBuiltins(registry, command.Deps{
		Retrieval:     retrieval.NewEngine(knowledge, knowledge, lang.NewDetector()),
		Models:        models,
		Client:        llm.NewClient(),
		DefaultModel:  c.cfg.DefaultModel,
		CredentialKey: c.cfg.CredentialKey,
	})
	eng := engine.NewEngine(flows, registry, flow.NewEvaluator(), quota.NewAllowAllChecker(),
		session.NewManager(kvStore))

	server, err := rest.NewServer(c.cfg.HttpPort, eng, flows, knowledge)
	if err != nil {
		return err
	}
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return server.Stop()
}

// loadModels reads model endpoint definitions from a viper-readable file
// under a top-level "models" list. A missing file leaves the registry
// empty, which fails each llm step with BAD_MODEL instead of at boot.
func loadModels(fileName string, registry *llm.Registry) error {
	if len(fileName) == 0 {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(fileName)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	var definitions struct {
		Models []llm.ModelConfig `mapstructure:"models"`
	}
	if err := v.Unmarshal(&definitions); err != nil {
		return err
	}
	registry.ReplaceAll(definitions.Models)
	return nil
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "neuranet",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
