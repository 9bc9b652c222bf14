//go:build headless

package audio

import "errors"

var ErrNoAudioDevice = errors.New("audio: built without sound device support")

// OtoPlayer is unavailable in headless builds.
type OtoPlayer struct{}

func NewOtoPlayer(int) (*OtoPlayer, error) { return nil, ErrNoAudioDevice }

func (o *OtoPlayer) SetProvider(Provider) {}
func (o *OtoPlayer) Start()               {}
func (o *OtoPlayer) Stop()                {}
func (o *OtoPlayer) Close() error         { return nil }
func (o *OtoPlayer) IsStarted() bool      { return false }
