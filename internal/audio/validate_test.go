package audio

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		size     int64
		mimeType string
		wantErr  string
	}{
		{name: "mp3 ok", size: 1024, mimeType: "audio/mp3"},
		{name: "wav ok", size: 50 << 20, mimeType: "audio/wav"},
		{name: "m4a ok", size: 1, mimeType: "audio/m4a"},
		{name: "ogg ok", size: 1, mimeType: "audio/ogg"},
		{name: "exactly at cap", size: MaxBytes, mimeType: "audio/mp3"},
		{name: "case insensitive", size: 1, mimeType: "AUDIO/MP3"},
		{name: "over cap", size: MaxBytes + 1, mimeType: "audio/mp3", wantErr: "File size exceeds 100MB limit"},
		{name: "video rejected", size: 1, mimeType: "video/mp4", wantErr: "Unsupported audio format"},
		{name: "mpeg rejected", size: 1, mimeType: "audio/mpeg", wantErr: "Unsupported audio format"},
		{name: "empty mime", size: 1, mimeType: "", wantErr: "Unsupported audio format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.size, tc.mimeType)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Reason != tc.wantErr {
				t.Fatalf("reason = %q, want %q", verr.Reason, tc.wantErr)
			}
		})
	}
}

func TestExtensionForMIME(t *testing.T) {
	ext, err := ExtensionForMIME("audio/wav")
	if err != nil {
		t.Fatalf("ExtensionForMIME: %v", err)
	}
	if ext != ".wav" {
		t.Fatalf("ext = %q, want .wav", ext)
	}
	if _, err := ExtensionForMIME("text/plain"); err == nil {
		t.Fatal("expected error for unsupported mime type")
	}
}

func TestMIMEForFilename(t *testing.T) {
	mt, found := MIMEForFilename("user/1724-abc.mp3")
	if !found || mt != "audio/mp3" {
		t.Fatalf("got %q %v, want audio/mp3 true", mt, found)
	}
	mt, found = MIMEForFilename("lecture.OGG")
	if !found || mt != "audio/ogg" {
		t.Fatalf("got %q %v, want audio/ogg true", mt, found)
	}
	if _, found := MIMEForFilename("notes.pdf"); found {
		t.Fatal("pdf should not map to an audio mime type")
	}
}
