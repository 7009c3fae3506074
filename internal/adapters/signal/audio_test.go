package signal

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestDecodeAudioBareBase64(t *testing.T) {
	want := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00}
	got, ok := decodeAudio(base64.StdEncoding.EncodeToString(want))
	if !ok {
		t.Fatal("bare base64 must decode")
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestDecodeAudioDataURL(t *testing.T) {
	want := []byte("webm-bytes")
	payload := "data:audio/webm;base64," + base64.StdEncoding.EncodeToString(want)
	got, ok := decodeAudio(payload)
	if !ok {
		t.Fatal("data URL must decode")
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeAudioMalformed(t *testing.T) {
	for _, payload := range []string{"", "%%%not-base64%%%", "data:audio/webm;base64,***"} {
		if _, ok := decodeAudio(payload); ok {
			t.Errorf("payload %q decoded, want drop", payload)
		}
	}
}
