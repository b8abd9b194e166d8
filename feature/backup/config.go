package backup

// Config holds capture and replay defaults.
type Config struct {
	// ChatlogDepth is the number of messages captured per text channel.
	ChatlogDepth int `mapstructure:"chatlog_depth" default:"100"`
	// ReplayDepth is the number of stored messages replayed per channel on load.
	ReplayDepth int `mapstructure:"replay_depth" default:"20"`
	// CopyDepth is the number of live messages relayed per channel on copy.
	CopyDepth int `mapstructure:"copy_depth" default:"20"`
	// CacheSize bounds the number of decoded snapshots kept in memory.
	CacheSize int `mapstructure:"cache_size" default:"64"`
	// ObjectPrefix is prepended to every object key.
	ObjectPrefix string `mapstructure:"object_prefix" default:"backups"`
}
