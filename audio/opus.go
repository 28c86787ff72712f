package audio

import (
	"errors"
	"fmt"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// Opus decode errors.
var (
	// ErrEmptyPacket indicates a zero-length packet.
	ErrEmptyPacket = errors.New("empty opus packet")

	// ErrDecode indicates the Opus decoder rejected a packet.
	ErrDecode = errors.New("opus decode failed")
)

// PacketDecoder decodes one Opus packet into little-endian 16-bit PCM.
// *opus.Decoder satisfies it.
type PacketDecoder interface {
	Decode(in, out []byte) (opus.Bandwidth, bool, error)
}

// OpusConfig configures an OpusDenoiser.
type OpusConfig struct {
	SampleRate   float64 // decoder output rate in Hz, default 48000
	FrameSamples int     // samples per channel per packet, default 20 ms
	MakeupGain   float64
}

// OpusDenoiser decodes Opus packets and removes background noise from the
// decoded voice.
//
// The noise reducer's bandwidth follows the coded audio bandwidth reported
// by the decoder. A change of coded bandwidth restarts the noise estimate.
type OpusDenoiser struct {
	decoder      PacketDecoder
	effect       *NoiseReductionEffect
	frameSamples int
	buf          []byte
	pcm          []int16

	bandwidth opus.Bandwidth
	known     bool
}

// NewOpusDenoiser creates a denoiser backed by the pure-Go pion/opus decoder.
func NewOpusDenoiser(cfg OpusConfig) (*OpusDenoiser, error) {
	decoder := opus.NewDecoder()
	return newOpusDenoiser(&decoder, cfg)
}

func newOpusDenoiser(dec PacketDecoder, cfg OpusConfig) (*OpusDenoiser, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.FrameSamples == 0 {
		cfg.FrameSamples = int(cfg.SampleRate / 50)
	}

	effect, err := NewNoiseReductionEffect(EffectConfig{
		SampleRate: cfg.SampleRate,
		MakeupGain: cfg.MakeupGain,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewOpusDenoiser",
		"sample_rate":   cfg.SampleRate,
		"frame_samples": cfg.FrameSamples,
	}).Info("Opus denoiser created")

	return &OpusDenoiser{
		decoder:      dec,
		effect:       effect,
		frameSamples: cfg.FrameSamples,
		// room for stereo
		buf: make([]byte, 2*2*cfg.FrameSamples),
	}, nil
}

// Decode decodes one packet and returns denoised mono PCM. Output starts
// once the noise reducer has bootstrapped; before that an empty slice is
// returned. The returned slice is reused by the next call.
func (d *OpusDenoiser) Decode(packet []byte) ([]int16, error) {
	if len(packet) == 0 {
		return nil, ErrEmptyPacket
	}

	bandwidth, isStereo, err := d.decoder.Decode(packet, d.buf)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OpusDenoiser.Decode",
			"size":     len(packet),
			"error":    err.Error(),
		}).Error("Opus decode failed")
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := d.trackBandwidth(bandwidth); err != nil {
		return nil, err
	}

	n := d.frameSamples * 2
	if isStereo {
		n *= 2
	}
	d.pcm = BytesToPCM(d.pcm, d.buf[:n])
	if isStereo {
		d.pcm = Downmix(d.pcm)
	}

	return d.effect.Process(d.pcm)
}

// trackBandwidth retunes the noise reducer when the coded bandwidth changes.
func (d *OpusDenoiser) trackBandwidth(bw opus.Bandwidth) error {
	if d.known && bw == d.bandwidth {
		return nil
	}

	hint := float64(bw.SampleRate()) / 2
	if err := d.effect.SetBandwidth(hint); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "OpusDenoiser.trackBandwidth",
			"bandwidth": bw.String(),
			"error":     err.Error(),
		}).Warn("Coded bandwidth not usable as noise reduction bandwidth")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "OpusDenoiser.trackBandwidth",
		"bandwidth": bw.String(),
		"hint_hz":   hint,
	}).Info("Coded bandwidth changed")

	d.bandwidth = bw
	d.known = true
	return nil
}

// Effect returns the underlying noise reduction effect.
func (d *OpusDenoiser) Effect() *NoiseReductionEffect {
	return d.effect
}

// Close releases the noise reducer.
func (d *OpusDenoiser) Close() error {
	return d.effect.Close()
}
