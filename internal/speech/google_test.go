package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abhisek/brainbrew/internal/tutor"
)

type bytesSource struct{ data []byte }

func (s bytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

type errSource struct{ err error }

func (s errSource) Open(context.Context) (io.ReadCloser, error) { return nil, s.err }

// fakeStream replays scripted responses and records what was sent.
type fakeStream struct {
	mu        sync.Mutex
	sent      []*speechpb.StreamingRecognizeRequest
	responses []*speechpb.StreamingRecognizeResponse
	final     error
	closed    bool
	block     chan struct{}
}

func (f *fakeStream) Send(r *speechpb.StreamingRecognizeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
	return nil
}

func (f *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	f.mu.Lock()
	if len(f.responses) > 0 {
		r := f.responses[0]
		f.responses = f.responses[1:]
		f.mu.Unlock()
		return r, nil
	}
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
		return nil, status.Error(codes.Canceled, "context canceled")
	}
	if f.final != nil {
		return nil, f.final
	}
	return nil, io.EOF
}

func (f *fakeStream) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func result(text string, final bool) *speechpb.StreamingRecognizeResponse {
	return &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
			IsFinal:      final,
		}},
	}
}

func newTestGoogle(stream *fakeStream, src AudioSource) *Google {
	return newGoogle(DefaultConfig(), src, func(context.Context) (recognizeStream, error) {
		return stream, nil
	}, nil)
}

func waitEnd(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("OnEnd was not called")
		return nil
	}
}

func TestGoogle_DeliversResultsToDraft(t *testing.T) {
	stream := &fakeStream{responses: []*speechpb.StreamingRecognizeResponse{
		result("mitosis has", false),
		result("Mitosis has four phases", true),
	}}
	g := newTestGoogle(stream, bytesSource{data: make([]byte, 8000)})

	var draft tutor.Draft
	draft.Set("Answer:")
	ended := make(chan error, 1)
	if err := draft.Dictate(t.Context(), g, func(err error) { ended <- err }); err != nil {
		t.Fatalf("Dictate: %v", err)
	}
	if err := waitEnd(t, ended); err != nil {
		t.Fatalf("OnEnd err = %v", err)
	}

	if got := draft.Text(); got != "Answer: Mitosis has four phases " {
		t.Errorf("draft = %q", got)
	}
	if draft.Listening() {
		t.Error("draft should stop listening after the stream ends")
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	cfg := stream.sent[0].GetStreamingConfig()
	if cfg == nil || !cfg.GetInterimResults() || cfg.GetConfig().GetSampleRateHertz() != 16000 {
		t.Fatalf("first request should be the streaming config, got %v", stream.sent[0])
	}
	var audio int
	for _, r := range stream.sent[1:] {
		audio += len(r.GetAudioContent())
	}
	if audio != 8000 {
		t.Errorf("audio bytes sent = %d, want 8000", audio)
	}
}

func TestGoogle_NoSpeech(t *testing.T) {
	stream := &fakeStream{responses: []*speechpb.StreamingRecognizeResponse{result("um", false)}}
	g := newTestGoogle(stream, bytesSource{})

	ended := make(chan error, 1)
	err := g.Start(t.Context(), tutor.DictationHandler{OnEnd: func(err error) { ended <- err }})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := waitEnd(t, ended); !errors.Is(err, tutor.ErrNoSpeech) {
		t.Errorf("OnEnd err = %v, want ErrNoSpeech", err)
	}
	if got := tutor.UserMessage(tutor.ErrNoSpeech); got != "No speech detected. Please try again." {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestGoogle_StopEndsSession(t *testing.T) {
	stream := &fakeStream{
		responses: []*speechpb.StreamingRecognizeResponse{result("cells divide", true)},
		block:     make(chan struct{}),
	}
	g := newTestGoogle(stream, bytesSource{})

	ended := make(chan error, 1)
	var finals []string
	var mu sync.Mutex
	err := g.Start(t.Context(), tutor.DictationHandler{
		OnFinal: func(s string) { mu.Lock(); finals = append(finals, s); mu.Unlock() },
		OnEnd:   func(err error) { ended <- err },
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(stream.block)
	}()
	if err := g.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := waitEnd(t, ended); err != nil {
		t.Errorf("OnEnd err = %v, want nil after speech was heard", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(finals) != 1 || finals[0] != "cells divide" {
		t.Errorf("finals = %v", finals)
	}

	// A stopped provider can start again.
	if err := g.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestGoogle_StartErrors(t *testing.T) {
	g := newGoogle(DefaultConfig(), nil, nil, nil)
	if err := g.Start(t.Context(), tutor.DictationHandler{}); !errors.Is(err, tutor.ErrDictationUnsupported) {
		t.Errorf("nil source err = %v", err)
	}

	g = newTestGoogle(&fakeStream{}, errSource{err: tutor.ErrMicrophoneDenied})
	if err := g.Start(t.Context(), tutor.DictationHandler{}); !errors.Is(err, tutor.ErrMicrophoneDenied) {
		t.Errorf("denied source err = %v", err)
	}
	// The failed start must release the session slot.
	g.source = bytesSource{}
	ended := make(chan error, 1)
	if err := g.Start(t.Context(), tutor.DictationHandler{OnEnd: func(err error) { ended <- err }}); err != nil {
		t.Errorf("restart after failure: %v", err)
	}
	waitEnd(t, ended)
}

func TestGoogle_PermissionDenied(t *testing.T) {
	stream := &fakeStream{final: status.Error(codes.PermissionDenied, "speech API disabled")}
	g := newTestGoogle(stream, bytesSource{})

	ended := make(chan error, 1)
	if err := g.Start(t.Context(), tutor.DictationHandler{OnEnd: func(err error) { ended <- err }}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := waitEnd(t, ended); !errors.Is(err, tutor.ErrDictationUnsupported) {
		t.Errorf("OnEnd err = %v, want ErrDictationUnsupported", err)
	}
}

func TestDeniedMessage(t *testing.T) {
	if !deniedMessage("arecord: main:830: audio open error: Permission denied") {
		t.Error("expected permission denied to match")
	}
	if deniedMessage("arecord: device busy") {
		t.Error("busy is not a denial")
	}
}
