package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ringplayer",
	Short: "Real-time audio streaming engine",
	Long: `ringplayer - a real-time audio streaming engine bridging disk-resident
sound files to a hardware output callback.

Built around a lock-free, bounded producer/consumer ring buffer and a
play/pause/stop/seek/destroy state machine with a glitch-free seek
handshake.

Commands:
  - play: stream an audio file (MP3, FLAC, Ogg/Vorbis, WAV) to an output device
  - devices: list available output devices`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to an engine defaults YAML file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
