package config

import "runtime"

const (
	defaultConfigPath          = "~/.config/bracketeer/config.toml"
	projectConfigName          = "bracketeer.toml"
	databaseFileName           = "bracketeer.db"
	defaultStateDir            = "~/.local/share/bracketeer"
	defaultLogDir              = "~/.local/share/bracketeer/logs"
	defaultMatchMode           = "ordered"
	defaultEVMode              = "absolute"
	defaultToleranceEV         = 1.0 / 6
	defaultMaxIntraGapSeconds  = 2.0
	defaultAcceptanceThreshold = 0.9
	defaultAuxWeight           = 0.5
	defaultMinGroupSize        = 2
	defaultAction              = ActionMove
	defaultFolderNaming        = NamingFirstFile
	defaultAmbiguous           = AmbiguousReview
	defaultReviewDir           = "_review"
	defaultSequencesFile       = "sequences.txt"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	// PatternEnvVar supplies detection.pattern when the file leaves it empty.
	PatternEnvVar = "BRACKETEER_PATTERN"
	// SavedPatternKeyword selects the last saved discovery candidate.
	SavedPatternKeyword = "last"
)

// Organize actions.
const (
	ActionMove     = "move"
	ActionTextfile = "textfile"
)

// Folder naming schemes.
const (
	NamingFirstFile = "first-file"
	NamingSequence  = "sequence"
	NamingTimestamp = "timestamp"
)

// Ambiguous group routing.
const (
	AmbiguousReview = "review"
	AmbiguousGroup  = "group"
	AmbiguousSkip   = "skip"
)

// DefaultExtensions lists the RAW formats cameras bracket into, plus the
// JPEG and TIFF containers EXIF lives in natively.
var DefaultExtensions = []string{
	"ari", "cr3", "cr2", "crw", "erf", "raf", "3fr", "kdc", "dcs", "dcr",
	"iiq", "mos", "mef", "mrw", "nef", "nrw", "orf", "rw2", "pef", "srw",
	"arw", "srf", "sr2", "dng", "jpg", "jpeg", "tif", "tiff",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Detection: Detection{
			MatchMode:           defaultMatchMode,
			EVMode:              defaultEVMode,
			ToleranceEV:         defaultToleranceEV,
			MaxIntraGapSeconds:  defaultMaxIntraGapSeconds,
			AcceptanceThreshold: defaultAcceptanceThreshold,
			AuxWeight:           defaultAuxWeight,
			MinGroupSize:        defaultMinGroupSize,
		},
		Scan: Scan{
			Extensions: append([]string(nil), DefaultExtensions...),
			Workers:    runtime.NumCPU(),
			Cache:      true,
		},
		Organize: Organize{
			Action:         defaultAction,
			FolderNaming:   defaultFolderNaming,
			IncludePartial: true,
			Ambiguous:      defaultAmbiguous,
			ReviewDir:      defaultReviewDir,
			SequencesFile:  defaultSequencesFile,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
