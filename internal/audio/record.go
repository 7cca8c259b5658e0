package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Recording limits. The ceiling is a safety stop so an abandoned session
// cannot buffer unbounded audio.
const (
	ChunkInterval     = time.Second
	MaxRecordDuration = 10 * time.Minute
	DefaultSampleRate = 44100

	maxChunks = int(MaxRecordDuration / ChunkInterval)
)

var (
	// ErrPermission is returned when the capture device denies access.
	ErrPermission = errors.New("failed to access microphone")
	// ErrBusy is returned when Start is called while a recording is active.
	ErrBusy = errors.New("recording already in progress")
	// ErrNotRecording is returned when Stop is called with nothing active.
	ErrNotRecording = errors.New("no recording in progress")
)

// CaptureConfig is passed to the device when a recording starts.
type CaptureConfig struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// Stream delivers captured audio in chunks at the recording cadence.
// Read blocks until the next chunk is available or the context ends;
// it returns io.EOF when the device stops producing.
type Stream interface {
	Read(ctx context.Context) ([]byte, error)
	MIMEType() string
	Close() error
}

// Device abstracts the host's audio-capture mechanism.
type Device interface {
	Open(ctx context.Context, cfg CaptureConfig) (Stream, error)
}

// Clip is one assembled recording.
type Clip struct {
	Data     []byte
	MIMEType string
	Duration time.Duration
}

// Recorder buffers microphone audio until stopped, enforcing the hard
// duration ceiling. One recording may be active at a time.
type Recorder struct {
	device Device

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
	clip   *Clip
	err    error
}

// NewRecorder constructs a recorder over the given capture device.
func NewRecorder(device Device) *Recorder {
	return &Recorder{device: device}
}

// Start requests microphone access and begins buffering chunks. It fails
// with ErrBusy while a recording is active and with ErrPermission when the
// device denies access.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return ErrBusy
	}
	stream, err := r.device.Open(ctx, CaptureConfig{
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       DefaultSampleRate,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	r.active = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.clip = nil
	r.err = nil
	go r.loop(loopCtx, stream)
	return nil
}

// Stop ends the recording (if the ceiling has not already ended it) and
// returns the assembled clip. The capture device is always released.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	return r.clip, r.err
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return false
	}
	select {
	case <-r.done:
		// Auto-stopped at the ceiling; Stop still has to collect the clip.
		return false
	default:
		return true
	}
}

func (r *Recorder) loop(ctx context.Context, stream Stream) {
	defer close(r.done)
	defer stream.Close()

	var buf bytes.Buffer
	chunks := 0
	for chunks < maxChunks {
		chunk, err := stream.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				break
			}
			r.setResult(nil, fmt.Errorf("read audio chunk: %w", err))
			return
		}
		buf.Write(chunk)
		chunks++
	}
	r.setResult(&Clip{
		Data:     buf.Bytes(),
		MIMEType: stream.MIMEType(),
		Duration: time.Duration(chunks) * ChunkInterval,
	}, nil)
}

func (r *Recorder) setResult(clip *Clip, err error) {
	r.mu.Lock()
	r.clip = clip
	r.err = err
	r.mu.Unlock()
}
