// Command logmmse-wav removes stationary background noise from a WAV file.
//
// The first --noise-frames analysis frames of every channel must contain
// noise only; they seed the noise floor.
package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/alecthomas/kong"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/logmmse"
)

var version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Input           string           `arg:"" type:"existingfile" help:"Input WAV file"`
	Output          string           `arg:"" type:"path" help:"Output WAV file"`
	Bandwidth       float64          `short:"b" help:"Voice bandwidth in Hz (default: half the sample rate)"`
	NoiseFrames     int              `short:"n" default:"6" help:"Leading noise-only frames used to seed the noise floor"`
	OverSubtraction float64          `default:"1" help:"Noise over-subtraction factor"`
	Smoothing       float64          `default:"0.98" help:"Decision-directed smoothing factor"`
	GainCeiling     float64          `default:"1" help:"Maximum spectral gain"`
	NoZeroRepair    bool             `help:"Do not repair zero-magnitude bins"`
	Hold            bool             `help:"Freeze the noise floor after seeding"`
	LogLevel        string           `default:"info" enum:"debug,info,warn,error" help:"Log level"`
	Version         kong.VersionFlag `short:"v" help:"Show version information"`
}

func main() {
	cli := &CLI{}
	kong.Parse(cli,
		kong.Name("logmmse-wav"),
		kong.Description("LogMMSE noise reduction for WAV files"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	level, err := logrus.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logrus.SetLevel(level)

	if err := run(cli); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"input":    cli.Input,
			"error":    err.Error(),
		}).Error("Noise reduction failed")
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	start := time.Now()

	buf, err := readWav(cli.Input)
	if err != nil {
		return err
	}

	channels := buf.Format.NumChannels
	sr := float64(buf.Format.SampleRate)
	scale := math.Ldexp(1, buf.SourceBitDepth-1)

	opts := cli.options(sr)
	for ch := 0; ch < channels; ch++ {
		x := deinterleave(buf.Data, channels, ch, scale)
		y, stats, err := denoise(opts, cli.Hold, x)
		if err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		interleave(buf.Data, y, channels, ch, scale)

		logrus.WithFields(logrus.Fields{
			"function":    "run",
			"channel":     ch,
			"generation":  stats.Generation,
			"stable":      stats.Stable,
			"nfft":        stats.NFFT,
			"history_len": stats.HistoryLen,
		}).Info("Channel processed")
	}

	if err := writeWav(cli.Output, buf); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "run",
		"input":    cli.Input,
		"output":   cli.Output,
		"channels": channels,
		"samples":  len(buf.Data) / channels,
		"elapsed":  time.Since(start).String(),
	}).Info("Noise reduction complete")
	return nil
}

func (c *CLI) options(sr float64) *logmmse.Options {
	bw := c.Bandwidth
	if bw == 0 {
		bw = sr / 2
	}
	opts := logmmse.NewOptions(sr, bw)
	opts.NoiseFrames = c.NoiseFrames
	opts.OverSubtraction = c.OverSubtraction
	opts.Smoothing = c.Smoothing
	opts.GainCeiling = c.GainCeiling
	opts.ZeroRepair = !c.NoZeroRepair
	return opts
}

// denoise runs one channel through a fresh session and returns output
// aligned with x.
func denoise(opts *logmmse.Options, hold bool, x []complex128) ([]complex128, logmmse.Stats, error) {
	s, err := logmmse.New(opts)
	if err != nil {
		return nil, logmmse.Stats{}, err
	}
	defer s.Close()

	if err := s.Sample(x, opts.NoiseFrames); err != nil {
		return nil, logmmse.Stats{}, err
	}
	s.SetHold(hold)

	g := s.Geometry()
	// zero tail flushes the frame lag and the partial last hop
	padded := make([]complex128, len(x)+g.Slen+g.Len2)
	copy(padded, x)

	out, err := s.Process(padded)
	if err != nil {
		return nil, logmmse.Stats{}, err
	}

	y := make([]complex128, len(x))
	if len(out) > g.Slen {
		copy(y, out[g.Slen:])
	}
	return y, s.Stats(), nil
}

func readWav(path string) (*goaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, errors.New("WAV file has no channels")
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}
	return buf, nil
}

func writeWav(path string, buf *goaudio.IntBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, buf.Format.SampleRate, buf.SourceBitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write PCM: %w", err)
	}
	return enc.Close()
}

func deinterleave(data []int, channels, ch int, scale float64) []complex128 {
	x := make([]complex128, len(data)/channels)
	for i := range x {
		x[i] = complex(float64(data[i*channels+ch])/scale, 0)
	}
	return x
}

func interleave(data []int, y []complex128, channels, ch int, scale float64) {
	for i, v := range y {
		s := math.Round(real(v) * scale)
		data[i*channels+ch] = int(math.Max(-scale, math.Min(scale-1, s)))
	}
}
