package config

const (
	delimiter = "."

	ConfigPrefix = "mixin"

	ConfigCachePrefix = ConfigPrefix + delimiter + "cache"
	ConfigCacheShards = ConfigCachePrefix + delimiter + "shards"

	ConfigLogPrefix = ConfigPrefix + delimiter + "log"
	ConfigLogLevel  = ConfigLogPrefix + delimiter + "level"
)

// EnvPrefix is the prefix of the environment variables Load reads,
// e.g. MIXIN_CACHE_SHARDS for mixin.cache.shards.
const EnvPrefix = "MIXIN_"
