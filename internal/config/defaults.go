package config

const (
	defaultConfigPath              = "./config.json"
	defaultImportDirName           = "import"
	defaultLedgerFileName          = ".track.txt"
	defaultLogFileName             = "log.txt"
	defaultLockFileName            = ".uploader.lock"
	defaultSocketFileName          = ".uploader.sock"
	defaultHistoryFileName         = "history.db"
	defaultCameraBinary            = "gphoto2"
	defaultAcquireAttempts         = 5
	defaultAcquireBackoffSeconds   = 1
	defaultEventTimeoutMillis      = 1000
	defaultCameraCommandTimeout    = 120
	defaultProbeAddress            = "8.8.8.8:53"
	defaultProbeIntervalSeconds    = 2
	defaultProbeTimeoutSeconds     = 2
	defaultWirelessPath            = "/proc/net/wireless"
	defaultSignalIntervalSeconds   = 2
	defaultTransferTimeoutSeconds  = 60
	defaultLoopIntervalMillis      = 250
	defaultEventIntervalSeconds    = 2
	defaultRescanIntervalSeconds   = 0
	defaultUploadRetrySeconds      = 5
	defaultScreenRefreshMillis     = 500
	defaultHistoryRetentionEntries = 5000
)

var defaultEvictProcesses = []string{
	"gvfs-gphoto2-volume-monitor",
	"gvfsd-gphoto2",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Camera: Camera{
			Binary:                defaultCameraBinary,
			AcquireAttempts:       defaultAcquireAttempts,
			AcquireBackoffSeconds: defaultAcquireBackoffSeconds,
			EventTimeoutMillis:    defaultEventTimeoutMillis,
			CommandTimeoutSeconds: defaultCameraCommandTimeout,
			EvictProcesses:        append([]string(nil), defaultEvictProcesses...),
		},
		Network: Network{
			ProbeAddress:           defaultProbeAddress,
			ProbeIntervalSeconds:   defaultProbeIntervalSeconds,
			ProbeTimeoutSeconds:    defaultProbeTimeoutSeconds,
			WirelessPath:           defaultWirelessPath,
			SignalIntervalSeconds:  defaultSignalIntervalSeconds,
			TransferTimeoutSeconds: defaultTransferTimeoutSeconds,
		},
		Workflow: Workflow{
			LoopIntervalMillis:    defaultLoopIntervalMillis,
			EventIntervalSeconds:  defaultEventIntervalSeconds,
			RescanIntervalSeconds: defaultRescanIntervalSeconds,
			UploadRetrySeconds:    defaultUploadRetrySeconds,
			ScreenRefreshMillis:   defaultScreenRefreshMillis,
			HotplugEnabled:        true,
			HistoryEnabled:        true,
			HistoryRetention:      defaultHistoryRetentionEntries,
		},
	}
}
