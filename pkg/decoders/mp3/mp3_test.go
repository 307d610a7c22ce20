package mp3

import "testing"

func TestNewDecoder(t *testing.T) {
	decoder := NewDecoder()
	if decoder == nil {
		t.Fatal("NewDecoder returned nil")
	}
}

func TestDecoderInfoBeforeOpen(t *testing.T) {
	decoder := NewDecoder()

	info := decoder.Info()
	if info.Channels != 0 || info.SampleRate != 0 || info.TotalFrames != 0 {
		t.Errorf("expected zero DecoderInfo before Open, got %+v", info)
	}
}

func TestDecoderCloseWithoutOpen(t *testing.T) {
	decoder := NewDecoder()

	if err := decoder.Close(); err != nil {
		t.Errorf("Close on unopened decoder failed: %v", err)
	}
	if err := decoder.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestReadFramesWithoutOpen(t *testing.T) {
	decoder := NewDecoder()

	buf := make([]float32, 1024)
	if _, err := decoder.ReadFrames(buf); err == nil {
		t.Error("expected error reading frames before Open")
	}
}

func TestSeekWithoutOpen(t *testing.T) {
	decoder := NewDecoder()

	if _, err := decoder.Seek(0, 0); err == nil {
		t.Error("expected error seeking before Open")
	}
}

func TestOpenMissingFile(t *testing.T) {
	decoder := NewDecoder()

	if err := decoder.Open("does-not-exist.mp3"); err == nil {
		t.Error("expected error opening a missing file")
	}
}
