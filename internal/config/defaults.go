package config

const (
	defaultRootDir               = "~/.local/share/flightstrip"
	defaultMeridian              = "M31"
	defaultCacheBackend          = "json"
	defaultJSONCacheName         = "name_flugstreifen.json"
	defaultSQLiteCacheName       = "naming_cache.db"
	defaultSampleLimit           = 500
	defaultSampleStride          = 20
	defaultHullMargin            = 50.0
	defaultVerifyRetries         = 1
	defaultTimeoutSeconds        = 300
	defaultGeometryEngine        = "planar"
	defaultRasterResolution      = 5.0
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	envRootDir                   = "FLIGHTSTRIP_ROOT"
	envLogLevel                  = "FLIGHTSTRIP_LOG_LEVEL"
	envCacheBackend              = "FLIGHTSTRIP_CACHE_BACKEND"
	supportedMeridiansForMessage = "M28, M31, M34"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RootDir: defaultRootDir,
			// LogDir defaults to <root_dir>/logs during normalization.
		},
		Survey: Survey{
			Meridian: defaultMeridian,
		},
		NamingCache: NamingCache{
			Backend: defaultCacheBackend,
		},
		Inference: Inference{
			SampleLimit:    defaultSampleLimit,
			SampleStride:   defaultSampleStride,
			HullMargin:     defaultHullMargin,
			VerifyRetries:  defaultVerifyRetries,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Geometry: Geometry{
			Engine:           defaultGeometryEngine,
			RasterResolution: defaultRasterResolution,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
