// Package config loads the ambient operating parameters (per-protocol
// default ports/timeouts, byte-budget caps) from a layered YAML/ENV
// configuration, live-reloadable the way the teacher's control plane
// watches its settings file.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ProtocolDefaults holds the default port and timeout for one protocol
// module, overridable per-call by the ingress parameter record (spec
// §6: "timeout_ms (optional, default 10000-20000 per protocol)").
type ProtocolDefaults struct {
	Port      uint16 `mapstructure:"port"`
	TimeoutMS uint32 `mapstructure:"timeout_ms"`
}

// Caps holds the byte-budget ceilings spec §6/§4.2 calls for.
type Caps struct {
	SFTPMaxStringLen    int `mapstructure:"sftp_max_string_len"`
	SFTPDownloadBudget  int `mapstructure:"sftp_download_budget"`
	SFTPReadChunk       int `mapstructure:"sftp_read_chunk"`
	NFSWriteMax         int `mapstructure:"nfs_write_max"`
	NFSHandleMax        int `mapstructure:"nfs_handle_max"`
	SSHChannelBuffer    int `mapstructure:"ssh_channel_buffer"`
	AbsoluteBufferCap   int `mapstructure:"absolute_buffer_cap"`
}

// Config is the full set of tunables, keyed by protocol name for
// ProtocolDefaults.
type Config struct {
	LogLevel  string                      `mapstructure:"log_level"`
	LogFormat string                      `mapstructure:"log_format"`
	Protocols map[string]ProtocolDefaults `mapstructure:"protocols"`
	Caps      Caps                        `mapstructure:"caps"`
}

// Default returns the built-in defaults, used when no config file is
// present: every protocol module must work with zero external
// configuration.
func Default() Config {
	return Config{
		LogLevel:  "INFO",
		LogFormat: "text",
		Protocols: map[string]ProtocolDefaults{
			"nfs3":        {Port: 2049, TimeoutMS: 10000},
			"mount":       {Port: 635, TimeoutMS: 10000},
			"sftp":        {Port: 22, TimeoutMS: 15000},
			"tds":         {Port: 5000, TimeoutMS: 10000},
			"clickhouse":  {Port: 9000, TimeoutMS: 10000},
			"xmpp":        {Port: 5222, TimeoutMS: 15000},
			"xmpp-s2s":    {Port: 5269, TimeoutMS: 15000},
			"sips":        {Port: 5061, TimeoutMS: 20000},
			"sane":        {Port: 6566, TimeoutMS: 10000},
			"zookeeper":   {Port: 2181, TimeoutMS: 5000},
			"multistream": {Port: 4001, TimeoutMS: 10000},
			"ipfs":        {Port: 5001, TimeoutMS: 10000},
		},
		Caps: Caps{
			SFTPMaxStringLen:   64 * 1024,
			SFTPDownloadBudget: 4 * 1024 * 1024,
			SFTPReadChunk:      32 * 1024,
			NFSWriteMax:        64 * 1024,
			NFSHandleMax:       64,
			SSHChannelBuffer:   512 * 1024,
			AbsoluteBufferCap:  10 * 1024 * 1024,
		},
	}
}

// Store holds the live configuration and is safe for concurrent reads
// while Watch reloads it in the background.
type Store struct {
	mu  sync.RWMutex
	cur Config
	v   *viper.Viper
}

// Load reads path (if non-empty) over top of Default(), using viper for
// YAML parsing and environment-variable overrides (PORTOFCALL_*).
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTOFCALL")
	v.AutomaticEnv()

	s := &Store{cur: Default(), v: v}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		cfg := Default()
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
		s.cur = cfg
	}
	return s, nil
}

// Watch begins watching the config file (if one was loaded via Load)
// for changes and hot-reloads Get()'s result, mirroring the teacher's
// controlplane settings watcher. Safe to call at most once.
func (s *Store) Watch() {
	if s.v.ConfigFileUsed() == "" {
		return
	}
	s.v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := Default()
		if err := s.v.Unmarshal(&cfg); err != nil {
			return // keep serving the last good config
		}
		s.mu.Lock()
		s.cur = cfg
		s.mu.Unlock()
	})
	s.v.WatchConfig()
}

// Get returns the current configuration snapshot.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Defaults returns the effective (port, timeout) for protocol, falling
// back to a generic default if the protocol isn't in the config.
func (c Config) Defaults(protocol string) (port uint16, timeout time.Duration) {
	d, ok := c.Protocols[protocol]
	if !ok {
		return 0, 10 * time.Second
	}
	return d.Port, time.Duration(d.TimeoutMS) * time.Millisecond
}
