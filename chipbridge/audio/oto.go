//go:build !headless

package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer plays a Provider through the default sound device.
type OtoPlayer struct {
	mu sync.Mutex

	ctx     *oto.Context
	player  *oto.Player
	stream  Stream
	started bool
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	return &OtoPlayer{ctx: ctx}, nil
}

func (o *OtoPlayer) SetProvider(p Provider) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stream.SetProvider(p)
	if o.player == nil {
		o.player = o.ctx.NewPlayer(&o.stream)
	}
}

func (o *OtoPlayer) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started && o.player != nil {
		o.player.Play()
		o.started = true
	}
}

func (o *OtoPlayer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started && o.player != nil {
		o.player.Pause()
		o.started = false
	}
}

func (o *OtoPlayer) Close() error {
	o.Stop()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

func (o *OtoPlayer) IsStarted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}
