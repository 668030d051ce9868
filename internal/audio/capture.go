package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	SampleRate = 16000
	// chunkSizeBytes is 100ms of 16kHz mono s16.
	chunkSizeBytes = SampleRate / 10 * 2
)

// Capture streams fixed-size PCM chunks from one Pulse source.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

func newCapture(device Device) *Capture {
	return &Capture{
		device: device,
		chunks: make(chan []byte, 64),
		stopCh: make(chan struct{}),
	}
}

// StartCapture opens a 16kHz mono s16 record stream. It stops when ctx ends.
func StartCapture(ctx context.Context, device Device) (*Capture, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	capture := newCapture(device)
	capture.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("parley interview"),
	)
	if err != nil {
		_ = capture.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()
	return capture, nil
}

func (c *Capture) Device() Device {
	return c.device
}

// Chunks is closed after Stop flushes the final partial chunk.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Stop halts the stream, flushes residual PCM, and closes Chunks exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	c.inflight.Wait()

	c.mu.Lock()
	tail := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(tail) > 0 {
		select {
		case c.chunks <- tail:
		default:
		}
	}
	close(c.chunks)
	return nil
}

// onPCM receives raw Pulse frames and emits chunkSizeBytes slices.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped so Stop's Wait cannot race it.
	c.inflight.Add(1)
	defer c.inflight.Done()

	c.pending = append(c.pending, buffer...)
	var ready [][]byte
	for len(c.pending) >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		copy(chunk, c.pending)
		c.pending = c.pending[chunkSizeBytes:]
		ready = append(ready, chunk)
	}
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))
	for _, chunk := range ready {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
