package device

import (
	"fmt"

	"github.com/spf13/viper"
)

// CarveConfig holds the engine tunables.
type CarveConfig struct {
	// ScanChunkSize is the read size of the principal scan loop and of the
	// generic/MP3 extractors, in bytes.
	ScanChunkSize int `mapstructure:"scan_chunk_size"`

	// MP4ChunkSize is the read size of the MP4 box reassembler, in bytes.
	MP4ChunkSize int `mapstructure:"mp4_chunk_size"`

	// MP3MaxGap is the maximum number of non-frame bytes tolerated between
	// consecutive MP3 frames and between a start frame and each of its
	// confirmation probes.
	MP3MaxGap int `mapstructure:"mp3_max_gap"`

	// MP3ExtractCeiling is the hard byte ceiling of a single MP3
	// extraction, applied before size filtering.
	MP3ExtractCeiling int64 `mapstructure:"mp3_extract_ceiling"`
}

// LoadCarveConfig loads engine configuration using Viper. A missing config
// file is not an error; defaults apply.
func LoadCarveConfig() (*CarveConfig, error) {
	viper.SetConfigName("carve-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.carve")
	viper.AddConfigPath("/etc/carve")

	// Set defaults
	viper.SetDefault("scan_chunk_size", 4096)
	viper.SetDefault("mp4_chunk_size", 1024*1024)
	viper.SetDefault("mp3_max_gap", 768)
	viper.SetDefault("mp3_extract_ceiling", 50*1024*1024)

	// Allow environment variables
	viper.SetEnvPrefix("CARVE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config CarveConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.ScanChunkSize <= 0 {
		return nil, fmt.Errorf("invalid scan chunk size: %d", config.ScanChunkSize)
	}
	if config.MP4ChunkSize <= 0 {
		return nil, fmt.Errorf("invalid mp4 chunk size: %d", config.MP4ChunkSize)
	}
	if config.MP3MaxGap <= 0 {
		return nil, fmt.Errorf("invalid mp3 max gap: %d", config.MP3MaxGap)
	}

	return &config, nil
}

// DefaultCarveConfig returns the built-in tunables without consulting any
// config file or environment.
func DefaultCarveConfig() *CarveConfig {
	return &CarveConfig{
		ScanChunkSize:     4096,
		MP4ChunkSize:      1024 * 1024,
		MP3MaxGap:         768,
		MP3ExtractCeiling: 50 * 1024 * 1024,
	}
}
