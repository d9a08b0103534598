package config

const (
	defaultCacheRoot             = "~/.cache/shelf/resources"
	defaultLibraryDir            = "~/library"
	defaultLogDir                = "~/.local/share/shelf/logs"
	defaultAPIBind               = "127.0.0.1:8096"
	defaultProbeBinary           = "ffprobe"
	defaultThumbnailBinary       = "ffmpeg"
	defaultMinProbeDepth         = int64(3_000_000_000)
	defaultProbeSlots            = 4
	defaultProbeTimeout          = 120
	defaultAudioThumbnailSlots   = 2
	defaultAudioThumbnailTimeout = 300
	defaultVideoThumbnailSlots   = 1
	defaultVideoThumbnailTimeout = 600
	defaultHTTPMaxAge            = 2592000
	defaultJournalPath           = "~/.local/share/shelf/journal.db"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

var defaultDeepScanExtensions = []string{".iso", ".img"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheRoot:  defaultCacheRoot,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Tools: Tools{
			ProbeBinary:        defaultProbeBinary,
			ThumbnailBinary:    defaultThumbnailBinary,
			MinProbeDepth:      defaultMinProbeDepth,
			DeepScanExtensions: append([]string(nil), defaultDeepScanExtensions...),
		},
		Pools: Pools{
			ProbeSlots:            defaultProbeSlots,
			ProbeTimeout:          defaultProbeTimeout,
			AudioThumbnailSlots:   defaultAudioThumbnailSlots,
			AudioThumbnailTimeout: defaultAudioThumbnailTimeout,
			VideoThumbnailSlots:   defaultVideoThumbnailSlots,
			VideoThumbnailTimeout: defaultVideoThumbnailTimeout,
		},
		HTTP: HTTP{
			DefaultMaxAge: defaultHTTPMaxAge,
		},
		Journal: Journal{
			Enabled: true,
			Path:    defaultJournalPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
