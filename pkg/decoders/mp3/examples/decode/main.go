// Command decode prints format info for an MP3 file and reports how
// many frames it decodes, exercising the mp3 package directly.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/drgolem/ringplayer/pkg/decoders/mp3"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: decode <input.mp3>")
		os.Exit(1)
	}

	decoder := mp3.NewDecoder()
	if err := decoder.Open(os.Args[1]); err != nil {
		log.Fatalf("failed to open mp3 file: %v", err)
	}
	defer decoder.Close()

	info := decoder.Info()
	fmt.Printf("Sample Rate: %d Hz\nChannels: %d\nTotal Frames: %d\n\n", info.SampleRate, info.Channels, info.TotalFrames)

	buf := make([]float32, 4096*info.Channels)
	var totalFrames int64
	for {
		n, err := decoder.ReadFrames(buf)
		if err != nil {
			log.Fatalf("decode error: %v", err)
		}
		if n == 0 {
			break
		}
		totalFrames += int64(n)
	}

	fmt.Printf("Decoded %d frames (%.2f seconds)\n", totalFrames, float64(totalFrames)/float64(info.SampleRate))
}
