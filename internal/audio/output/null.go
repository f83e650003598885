package output

import (
	"sync"
	"time"

	"github.com/faiface/beep"
)

// DefaultTick is how often NullOutput pulls audio.
const DefaultTick = 10 * time.Millisecond

// NullOutput consumes streams at real-time pace without a device. It backs
// headless runs and tests.
type NullOutput struct {
	BaseOutput
	tick time.Duration

	mu     sync.Mutex
	opened bool
	reader *streamReader
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewNullOutput creates a headless output pulling every tick.
func NewNullOutput(tick time.Duration) *NullOutput {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &NullOutput{
		BaseOutput: BaseOutput{
			device: &Device{
				ID:          "null",
				Name:        "Null Output",
				Type:        "Null",
				MaxChannels: 2,
			},
			volume: 1.0,
		},
		tick: tick,
	}
}

func (o *NullOutput) Open(format Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.opened {
		return ErrAlreadyOpen
	}
	if err := format.Validate(); err != nil {
		return err
	}
	o.format = format
	o.opened = true
	return nil
}

func (o *NullOutput) Play(s beep.Streamer, done func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.opened {
		return ErrNotOpen
	}
	o.stopLocked()

	var reader *streamReader
	reader = newStreamReader(s, o.GetVolume, func() {
		o.mu.Lock()
		current := o.reader == reader
		o.mu.Unlock()
		if !current {
			return
		}
		o.setPlaying(false)
		if done != nil {
			done()
		}
	})
	stop := make(chan struct{})
	o.reader = reader
	o.stop = stop
	o.setPlaying(true)

	chunk := make([]byte, o.framesPerTick()*bytesPerFrame)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ticker := time.NewTicker(o.tick)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := reader.Read(chunk); err != nil {
					return
				}
			}
		}
	}()

	return nil
}

func (o *NullOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *NullOutput) stopLocked() {
	if o.reader != nil {
		o.reader.cancel()
		o.reader = nil
	}
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
	o.wg.Wait()
	o.setPlaying(false)
}

// FramesPlayed returns how many frames the current stream has delivered.
func (o *NullOutput) FramesPlayed() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reader == nil {
		return 0
	}
	return o.reader.framesRead()
}

func (o *NullOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	o.opened = false
	return nil
}

func (o *NullOutput) framesPerTick() int {
	n := int(float64(o.format.SampleRate) * o.tick.Seconds())
	if n < 1 {
		n = 1
	}
	return n
}
