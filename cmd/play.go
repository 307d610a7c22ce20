package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drgolem/ringplayer/internal/config"
	"github.com/drgolem/ringplayer/internal/engine"
	"github.com/drgolem/ringplayer/pkg/decoders"
)

var (
	playDeviceIdx        int
	playFramesPerBlock   int
	playMaxBlocks        int
	playWakeTimeout      time.Duration
	playDestroyTimeout   time.Duration
	playVerbose          bool
)

var playCmd = &cobra.Command{
	Use:   "play <audio_file>",
	Short: "Play an audio file (MP3, FLAC, Ogg/Vorbis, WAV)",
	Long: `Stream an audio file to an output device through the engine's
lock-free producer/consumer pipeline.

Examples:
  ringplayer play music.mp3
  ringplayer play --device 0 music.flac
  ringplayer play --frames-per-block 2048 --max-blocks 6 song.ogg

While playing, send SIGINT (Ctrl-C) to stop cleanly.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", -1, "output device index (-1 for system default)")
	playCmd.Flags().IntVar(&playFramesPerBlock, "frames-per-block", 0, "frames per ring block (0: use default/config)")
	playCmd.Flags().IntVar(&playMaxBlocks, "max-blocks", 0, "ring capacity in blocks (0: use default/config)")
	playCmd.Flags().DurationVar(&playWakeTimeout, "wake-timeout", 0, "producer idle poll interval (0: use default/config)")
	playCmd.Flags().DurationVar(&playDestroyTimeout, "destroy-timeout", 0, "shutdown join timeout (0: use default/config)")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "verbose output (debug logging)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	logLevel := slog.LevelInfo
	if playVerbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	fileName := args[0]
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", fileName)
	}

	cfg := engine.DefaultConfig()
	if configPath != "" {
		file, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = config.Apply(cfg, file)
	}
	if cmd.Flags().Changed("device") {
		cfg.DeviceIndex = playDeviceIdx
	}
	if playFramesPerBlock > 0 {
		cfg.FramesPerBlock = playFramesPerBlock
	}
	if playMaxBlocks > 0 {
		cfg.MaxBlocks = playMaxBlocks
	}
	if playWakeTimeout > 0 {
		cfg.WakeTimeout = playWakeTimeout
	}
	if playDestroyTimeout > 0 {
		cfg.DestroyTimeout = playDestroyTimeout
	}

	slog.Info("initializing host audio")
	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("initialize host audio: %w", err)
	}
	defer engine.Terminate()

	decoder, err := decoders.New(fileName)
	if err != nil {
		return err
	}

	slog.Info("opening file", "path", fileName)
	ctrl, err := engine.Create(fileName, decoder, cfg)
	if err != nil {
		return err
	}
	defer ctrl.Destroy()

	if err := ctrl.Play(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	statusDone := make(chan struct{})
	go monitorPlayback(ctrl, statusDone)
	defer close(statusDone)

	done := make(chan struct{})
	go func() {
		waitForCompletion(ctrl)
		close(done)
	}()

	select {
	case <-done:
		slog.Info("playback completed")
	case sig := <-sigChan:
		slog.Info("signal received, stopping", "signal", sig)
		if err := ctrl.Stop(); err != nil {
			slog.Error("failed to stop", "error", err)
		}
	}

	return nil
}

// waitForCompletion polls Completed until the callback has drained the
// final block, then stops the controller so its stream and producer
// are torn down cleanly.
func waitForCompletion(ctrl *engine.Controller) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if ctrl.Completed() {
			ctrl.Stop()
			return
		}
	}
}

func monitorPlayback(ctrl *engine.Controller, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := ctrl.GetPlaybackStatus()
			slog.Info("playback status",
				"file", status.FileName,
				"state", status.State,
				"played_frames", status.PlayedFrames,
				"underruns", status.Underruns,
				"elapsed", status.ElapsedTime.Round(time.Millisecond))
		case <-done:
			return
		}
	}
}
