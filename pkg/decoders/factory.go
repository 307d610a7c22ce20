package decoders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/drgolem/ringplayer/pkg/decoders/flac"
	"github.com/drgolem/ringplayer/pkg/decoders/mp3"
	"github.com/drgolem/ringplayer/pkg/decoders/vorbis"
	"github.com/drgolem/ringplayer/pkg/decoders/wav"
	"github.com/drgolem/ringplayer/pkg/types"
)

// New creates (but does not open) the decoder for fileName's extension.
// Supports .mp3, .flac, .fla, .ogg, .oga and .wav. Open is left to the caller
// (engine.Create) so construction failures and open failures are
// distinguishable.
func New(fileName string) (types.AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch ext {
	case ".mp3":
		return mp3.NewDecoder(), nil
	case ".flac", ".fla":
		return flac.NewDecoder(), nil
	case ".ogg", ".oga":
		return vorbis.NewDecoder(), nil
	case ".wav":
		return wav.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .mp3, .flac, .fla, .ogg, .oga, .wav)", ext)
	}
}
