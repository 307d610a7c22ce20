package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drgolem/ringplayer/internal/engine"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio output devices",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("initialize host audio: %w", err)
	}
	defer engine.Terminate()

	devices, err := engine.ListDevices()
	if err != nil {
		return err
	}

	for _, d := range devices {
		marker := ""
		if d.Default {
			marker = " (default)"
		}
		fmt.Printf("%3d  %-40s %6.0f Hz  %d ch%s\n", d.Index, d.Name, d.SampleRate, d.Channels, marker)
	}
	return nil
}
