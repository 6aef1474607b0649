package config

const (
	defaultIndexDir         = "~/.local/share/shutter"
	defaultLogDir           = "~/.local/share/shutter/logs"
	defaultTrashDir         = "~/.local/share/shutter/trash"
	defaultPlacementBaseDir = "~/Pictures"
	defaultMaxProbe         = 100000
	defaultMaxGroups        = 1000
	defaultKeepPolicy       = "canonical"
	defaultExiftoolBinary   = "exiftool"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
	indexFileName           = "index.db"
)

var defaultExtensions = []string{"jpg", "jpeg"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IndexDir: defaultIndexDir,
			LogDir:   defaultLogDir,
			TrashDir: defaultTrashDir,
		},
		Scan: Scan{
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Placement: Placement{
			BaseDir:  defaultPlacementBaseDir,
			MaxProbe: defaultMaxProbe,
		},
		Duplicates: Duplicates{
			MaxGroups: defaultMaxGroups,
			Keep:      defaultKeepPolicy,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
