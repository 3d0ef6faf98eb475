// Package config loads daemon configuration via viper: defaults, a config
// file search path, and a WARCTIKA_ environment prefix, the same precedence
// chain the teacher project's config package establishes.
package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config is the top-level daemon configuration.
type Config struct {
	Debug   bool   `mapstructure:"debug"`
	LogFile string `mapstructure:"log_file"`
	PIDFile string `mapstructure:"pid_file"`

	Tika  TikaConfig  `mapstructure:"tika"`
	Watch WatchConfig `mapstructure:"watch"`
}

// TikaConfig configures the extraction client.
type TikaConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	MinOutputBytes int           `mapstructure:"min_output_bytes"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// WatchConfig configures the directory driver.
type WatchConfig struct {
	Dir             string        `mapstructure:"dir"`
	InSuffix        string        `mapstructure:"in_suffix"`
	OutSuffix       string        `mapstructure:"out_suffix"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Workers         int           `mapstructure:"workers"`
	DeleteOnSuccess bool          `mapstructure:"delete_on_success"`
	GzipMode        string        `mapstructure:"gzip_mode"` // "auto" | "per-record" | "plain"
	MinFreeDiskPct  float64       `mapstructure:"min_free_disk_pct"`
	UseNotify       bool          `mapstructure:"use_notify"`
}

// Init returns a viper instance with defaults set, a config file read if
// present, and WARCTIKA_-prefixed environment variables bound.
func Init() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("warctika")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/warctika")
	v.AddConfigPath("/etc/warctika")

	v.SetEnvPrefix("WARCTIKA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v (using defaults)\n", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("pid_file", path.Join(xdg.StateHome, "warctika", "warctika.pid"))

	v.SetDefault("tika.endpoint", "http://localhost:9998/tika")
	v.SetDefault("tika.min_output_bytes", 256)
	v.SetDefault("tika.timeout", "30s")
	v.SetDefault("tika.max_retries", 3)

	v.SetDefault("watch.dir", path.Join(xdg.DataHome, "warctika", "spool"))
	v.SetDefault("watch.in_suffix", ".warc.gz")
	v.SetDefault("watch.out_suffix", "-ViaTika.warc.gz")
	v.SetDefault("watch.poll_interval", "15s")
	v.SetDefault("watch.workers", 4)
	v.SetDefault("watch.delete_on_success", false)
	v.SetDefault("watch.gzip_mode", "auto")
	v.SetDefault("watch.min_free_disk_pct", 0)
	v.SetDefault("watch.use_notify", true)
}
