package config

import (
	"github.com/nishant-bin/neuranet/analytics"
	"github.com/nishant-bin/neuranet/logger"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig     RedisStorageConfig
	HttpPort        int
	StorageType     StorageType
	ModelsFile      string
	DefaultModel    string
	CredentialKey   string
	LogConfig       logger.LogConfig
	AnalyticsConfig analytics.DataCollectorConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	Password  string
}
