// Package speech provides dictation for the answer draft using Google Cloud
// Speech-to-Text streaming recognition.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// Config describes the audio captured for dictation.
type Config struct {
	LanguageCode string `toml:"language_code"`
	SampleRate   int32  `toml:"sample_rate" validate:"min=8000,max=48000"`
	// ChunkBytes is the size of each audio frame sent upstream.
	ChunkBytes int `toml:"chunk_bytes" validate:"min=512"`
}

// DefaultConfig returns 16kHz mono LINEAR16 in US English.
func DefaultConfig() Config {
	return Config{
		LanguageCode: "en-US",
		SampleRate:   16000,
		ChunkBytes:   3200,
	}
}

// recognizeStream is the subset of the gRPC stream the recognizer uses.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

// Google implements tutor.DictationProvider with StreamingRecognize.
type Google struct {
	cfg    Config
	source AudioSource
	dial   func(ctx context.Context) (recognizeStream, error)
	close  func() error
	log    *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ tutor.DictationProvider = (*Google)(nil)

// NewGoogle creates a speech client. Audio comes from source.
func NewGoogle(ctx context.Context, cfg Config, source AudioSource, log *logging.Logger, opts ...option.ClientOption) (*Google, error) {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	g := newGoogle(cfg, source, func(ctx context.Context) (recognizeStream, error) {
		return client.StreamingRecognize(ctx)
	}, log)
	g.close = client.Close
	return g, nil
}

func newGoogle(cfg Config, source AudioSource, dial func(context.Context) (recognizeStream, error), log *logging.Logger) *Google {
	return &Google{
		cfg:    cfg,
		source: source,
		dial:   dial,
		close:  func() error { return nil },
		log:    logging.OrNop(log).Named("speech"),
	}
}

// Start opens the audio source and the recognition stream. Results are
// delivered on h until Stop is called, ctx ends or the stream closes.
func (g *Google) Start(ctx context.Context, h tutor.DictationHandler) error {
	if g.source == nil {
		return tutor.ErrDictationUnsupported
	}

	g.mu.Lock()
	if g.cancel != nil {
		g.mu.Unlock()
		return errors.New("dictation already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	done := g.done
	g.mu.Unlock()

	audio, err := g.source.Open(ctx)
	if err != nil {
		g.finish(cancel, done)
		return err
	}

	stream, err := g.dial(ctx)
	if err != nil {
		audio.Close()
		g.finish(cancel, done)
		return fmt.Errorf("open recognition stream: %w", err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            g.cfg.SampleRate,
					LanguageCode:               g.cfg.LanguageCode,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: true,
			},
		},
	})
	if err != nil {
		audio.Close()
		g.finish(cancel, done)
		return fmt.Errorf("send streaming config: %w", err)
	}

	go g.pump(ctx, audio, stream)
	go func() {
		err := g.receive(ctx, stream, h)
		audio.Close()
		g.finish(cancel, done)
		if h.OnEnd != nil {
			h.OnEnd(err)
		}
	}()
	return nil
}

// Stop ends recognition and waits for OnEnd to be delivered.
func (g *Google) Stop() error {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Close releases the speech client.
func (g *Google) Close() error {
	_ = g.Stop()
	return g.close()
}

func (g *Google) finish(cancel context.CancelFunc, done chan struct{}) {
	cancel()
	g.mu.Lock()
	if g.done == done {
		g.cancel, g.done = nil, nil
		close(done)
	}
	g.mu.Unlock()
}

// pump copies audio frames to the stream until the source ends.
func (g *Google) pump(ctx context.Context, audio io.Reader, stream recognizeStream) {
	defer stream.CloseSend()

	size := g.cfg.ChunkBytes
	if size <= 0 {
		size = 3200
	}
	buf := make([]byte, size)
	for ctx.Err() == nil {
		n, err := audio.Read(buf)
		if n > 0 {
			sendErr := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: append([]byte(nil), buf[:n]...),
				},
			})
			if sendErr != nil {
				g.log.Debug("send audio", "error", sendErr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				g.log.Warn("read audio", "error", err)
			}
			return
		}
	}
}

// receive delivers results until the stream ends. A session that ends
// without any final transcript reports tutor.ErrNoSpeech.
func (g *Google) receive(ctx context.Context, stream recognizeStream, h tutor.DictationHandler) error {
	heard := false
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) || (err != nil && ctx.Err() != nil) {
			if !heard {
				return tutor.ErrNoSpeech
			}
			return nil
		}
		if err != nil {
			return mapSpeechError(err)
		}
		if e := resp.GetError(); e != nil && e.GetCode() != 0 {
			return fmt.Errorf("recognition: %s", e.GetMessage())
		}

		for _, r := range resp.GetResults() {
			alts := r.GetAlternatives()
			if len(alts) == 0 {
				continue
			}
			text := strings.TrimSpace(alts[0].GetTranscript())
			if text == "" {
				continue
			}
			if r.GetIsFinal() {
				heard = true
				if h.OnFinal != nil {
					h.OnFinal(text)
				}
			} else if h.OnPartial != nil {
				h.OnPartial(text)
			}
		}
	}
}

func mapSpeechError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("recognition stream: %w", err)
	}
	switch st.Code() {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("recognition stream: %w", tutor.ErrDictationUnsupported)
	case codes.ResourceExhausted:
		return fmt.Errorf("recognition quota exhausted: %w", err)
	}
	return fmt.Errorf("recognition stream: %w", err)
}
