// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattermost/rtcstats/service/random"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"golang.org/x/time/rate"
)

var (
	ErrNoDevice               = errors.New("no capture device available")
	ErrUnsupportedConstraints = errors.New("unsupported media constraints")
)

const (
	keyFrameInterval = 30
	ivfFourCCVP8     = "VP80"
)

// MediaConstraints describes what kind of local media is requested.
type MediaConstraints struct {
	Video bool
	Audio bool
}

// frameSource produces encoded video frames.
type frameSource interface {
	nextFrame() ([]byte, error)
	frameDuration() time.Duration
	Close() error
}

// LocalStream is a captured local media stream. Frames are written to its
// tracks as soon as it is acquired, whether or not the tracks are bound to an
// endpoint.
type LocalStream struct {
	id     string
	tracks []*webrtc.TrackLocalStaticSample
	source frameSource
	log    mlog.LoggerIFace

	cancel    context.CancelFunc
	doneCh    chan struct{}
	closeOnce sync.Once
}

// getUserMedia acquires a local stream from the configured source.
func getUserMedia(cfg MediaConfig, constraints MediaConstraints, log mlog.LoggerIFace) (*LocalStream, error) {
	if !constraints.Video || constraints.Audio {
		return nil, fmt.Errorf("%w: only video capture is supported", ErrUnsupportedConstraints)
	}

	var src frameSource
	var err error
	switch cfg.Source {
	case MediaSourceSynthetic:
		src = newSyntheticSource(cfg.FrameRate, cfg.FrameSize)
	case MediaSourceIVF:
		src, err = newIVFSource(cfg.File)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoDevice
	}

	streamID := random.NewPrefixedID("stream")
	track, err := webrtc.NewTrackLocalStaticSample(rtpVideoCodec, random.NewPrefixedID("video"), streamID)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create video track: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &LocalStream{
		id:     streamID,
		tracks: []*webrtc.TrackLocalStaticSample{track},
		source: src,
		log:    log,
		cancel: cancel,
		doneCh: make(chan struct{}),
	}

	go s.capture(ctx)

	return s, nil
}

func (s *LocalStream) ID() string {
	return s.id
}

// Tracks returns all the tracks in the stream.
func (s *LocalStream) Tracks() []webrtc.TrackLocal {
	tracks := make([]webrtc.TrackLocal, 0, len(s.tracks))
	for _, t := range s.tracks {
		tracks = append(tracks, t)
	}
	return tracks
}

func (s *LocalStream) capture(ctx context.Context) {
	defer close(s.doneCh)

	interval := s.source.frameDuration()
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		frame, err := s.source.nextFrame()
		if err != nil {
			s.log.Error("failed to read frame", mlog.String("streamID", s.id), mlog.Err(err))
			return
		}

		for _, track := range s.tracks {
			if err := track.WriteSample(media.Sample{Data: frame, Duration: interval}); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				s.log.Error("failed to write sample", mlog.String("trackID", track.ID()), mlog.Err(err))
			}
		}
	}
}

// Close stops capturing and releases the source.
func (s *LocalStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.doneCh
		err = s.source.Close()
	})
	return err
}

type syntheticSource struct {
	frameRate int
	frameSize int
	count     int
}

func newSyntheticSource(frameRate, frameSize int) *syntheticSource {
	return &syntheticSource{
		frameRate: frameRate,
		frameSize: frameSize,
	}
}

// nextFrame returns a frame filled with a moving pattern. Every
// keyFrameInterval frames a frame four times as large is produced.
func (s *syntheticSource) nextFrame() ([]byte, error) {
	size := s.frameSize
	if s.count%keyFrameInterval == 0 {
		size *= 4
	}
	frame := make([]byte, size)
	for i := range frame {
		frame[i] = byte(i + s.count)
	}
	s.count++
	return frame, nil
}

func (s *syntheticSource) frameDuration() time.Duration {
	return time.Second / time.Duration(s.frameRate)
}

func (s *syntheticSource) Close() error {
	return nil
}

type ivfSource struct {
	file     *os.File
	reader   *ivfreader.IVFReader
	duration time.Duration
}

func newIVFSource(path string) (*ivfSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	reader, header, err := ivfreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read ivf header: %w", err)
	}

	if header.FourCC != ivfFourCCVP8 {
		file.Close()
		return nil, fmt.Errorf("%w: unsupported codec %q", ErrUnsupportedConstraints, header.FourCC)
	}

	duration := time.Second / 30
	if header.TimebaseDenominator != 0 && header.TimebaseNumerator != 0 {
		duration = time.Duration(header.TimebaseNumerator) * time.Second / time.Duration(header.TimebaseDenominator)
	}

	return &ivfSource{
		file:     file,
		reader:   reader,
		duration: duration,
	}, nil
}

// nextFrame loops back to the start of the file once it's fully read.
func (s *ivfSource) nextFrame() ([]byte, error) {
	frame, _, err := s.reader.ParseNextFrame()
	if errors.Is(err, io.EOF) {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind capture file: %w", err)
		}
		s.reader, _, err = ivfreader.NewWith(s.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read ivf header: %w", err)
		}
		frame, _, err = s.reader.ParseNextFrame()
	}
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func (s *ivfSource) frameDuration() time.Duration {
	return s.duration
}

func (s *ivfSource) Close() error {
	return s.file.Close()
}
