package audio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStream struct {
	mu     sync.Mutex
	chunks [][]byte
	idx    int
	closed bool
}

func (s *fakeStream) Read(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.idx < len(s.chunks) {
		chunk := s.chunks[s.idx]
		s.idx++
		s.mu.Unlock()
		return chunk, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, context.Canceled
}

func (s *fakeStream) MIMEType() string { return "audio/ogg" }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDevice struct {
	stream  *fakeStream
	openErr error
	gotCfg  CaptureConfig
}

func (d *fakeDevice) Open(_ context.Context, cfg CaptureConfig) (Stream, error) {
	d.gotCfg = cfg
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.stream, nil
}

func repeatChunks(n int) [][]byte {
	chunks := make([][]byte, n)
	for i := range chunks {
		chunks[i] = []byte{byte(i)}
	}
	return chunks
}

func TestRecorderStartStop(t *testing.T) {
	stream := &fakeStream{chunks: [][]byte{[]byte("ab"), []byte("cd"), []byte("ef")}}
	device := &fakeDevice{stream: stream}
	rec := NewRecorder(device)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !rec.Active() {
		t.Fatal("recorder should be active after Start")
	}

	// Let the loop drain the available chunks before stopping.
	deadline := time.After(2 * time.Second)
	for {
		stream.mu.Lock()
		drained := stream.idx == len(stream.chunks)
		stream.mu.Unlock()
		if drained {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stream never drained")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	clip, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !bytes.Equal(clip.Data, []byte("abcdef")) {
		t.Fatalf("clip data = %q", clip.Data)
	}
	if clip.MIMEType != "audio/ogg" {
		t.Fatalf("mime = %q", clip.MIMEType)
	}
	if clip.Duration != 3*ChunkInterval {
		t.Fatalf("duration = %v, want %v", clip.Duration, 3*ChunkInterval)
	}
	if !stream.isClosed() {
		t.Fatal("device stream was not released")
	}
	if rec.Active() {
		t.Fatal("recorder still active after Stop")
	}

	if !device.gotCfg.EchoCancellation || !device.gotCfg.NoiseSuppression {
		t.Fatal("capture filters not requested")
	}
	if device.gotCfg.SampleRate != DefaultSampleRate {
		t.Fatalf("sample rate = %d", device.gotCfg.SampleRate)
	}
}

func TestRecorderBusy(t *testing.T) {
	stream := &fakeStream{}
	rec := NewRecorder(&fakeDevice{stream: stream})
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start = %v, want ErrBusy", err)
	}
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRecorderPermissionDenied(t *testing.T) {
	rec := NewRecorder(&fakeDevice{openErr: errors.New("NotAllowedError")})
	err := rec.Start(context.Background())
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("Start = %v, want ErrPermission", err)
	}
	if rec.Active() {
		t.Fatal("recorder active after failed Start")
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	rec := NewRecorder(&fakeDevice{stream: &fakeStream{}})
	if _, err := rec.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop = %v, want ErrNotRecording", err)
	}
}

func TestRecorderAutoStopAtCeiling(t *testing.T) {
	// One chunk more than the ceiling; the loop must stop at maxChunks.
	stream := &fakeStream{chunks: repeatChunks(maxChunks + 1)}
	rec := NewRecorder(&fakeDevice{stream: stream})
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for rec.Active() {
		select {
		case <-deadline:
			t.Fatal("recorder never auto-stopped")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	clip, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if clip.Duration != MaxRecordDuration {
		t.Fatalf("duration = %v, want %v", clip.Duration, MaxRecordDuration)
	}
	if len(clip.Data) != maxChunks {
		t.Fatalf("buffered %d bytes, want %d", len(clip.Data), maxChunks)
	}
	if !stream.isClosed() {
		t.Fatal("device stream was not released")
	}
}

func TestRecorderReadError(t *testing.T) {
	errRec := NewRecorder(&errorDevice{})
	if err := errRec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for errRec.Active() {
		select {
		case <-deadline:
			t.Fatal("recorder never observed the read error")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if _, err := errRec.Stop(); err == nil {
		t.Fatal("expected read error from Stop")
	}
}

type errorStream struct{ closed bool }

func (s *errorStream) Read(context.Context) ([]byte, error) {
	return nil, errors.New("device unplugged")
}
func (s *errorStream) MIMEType() string { return "audio/wav" }
func (s *errorStream) Close() error     { s.closed = true; return nil }

type errorDevice struct{}

func (d *errorDevice) Open(context.Context, CaptureConfig) (Stream, error) {
	return &errorStream{}, nil
}
