package tutor

import (
	"context"
	"errors"
	"testing"
)

type fakeDictation struct {
	h        DictationHandler
	startErr error
	stopped  bool
}

func (f *fakeDictation) Start(_ context.Context, h DictationHandler) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.h = h
	return nil
}

func (f *fakeDictation) Stop() error {
	f.stopped = true
	f.h.OnEnd(nil)
	return nil
}

func TestDraft_Dictation(t *testing.T) {
	var d Draft
	d.Set("Mitosis has ")
	p := &fakeDictation{}

	var ended error = errors.New("not called")
	if err := d.Dictate(t.Context(), p, func(err error) { ended = err }); err != nil {
		t.Fatalf("Dictate: %v", err)
	}
	if !d.Listening() {
		t.Fatal("draft should be listening")
	}

	p.h.OnPartial("four")
	if got := d.Text(); got != "Mitosis has  "+ListeningMarker {
		t.Errorf("interim text = %q", got)
	}
	if got := d.Value(); got != "Mitosis has " {
		t.Errorf("value while listening = %q", got)
	}

	p.h.OnPartial("four ph")
	if got := d.Text(); got != "Mitosis has  "+ListeningMarker {
		t.Errorf("repeated interim must not stack markers: %q", got)
	}

	p.h.OnFinal("four phases")
	if got := d.Text(); got != "Mitosis has four phases " {
		t.Errorf("final text = %q", got)
	}

	p.h.OnPartial("and")
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if d.Listening() {
		t.Error("draft still listening after end")
	}
	if got := d.Text(); got != "Mitosis has four phases " {
		t.Errorf("text after end = %q, want marker stripped", got)
	}
	if ended != nil {
		t.Errorf("onEnd err = %v, want nil", ended)
	}
}

func TestDraft_DictationUnavailable(t *testing.T) {
	var d Draft
	if err := d.Dictate(t.Context(), nil, nil); !errors.Is(err, ErrDictationUnsupported) {
		t.Fatalf("err = %v, want ErrDictationUnsupported", err)
	}

	p := &fakeDictation{startErr: ErrMicrophoneDenied}
	if err := d.Dictate(t.Context(), p, nil); !errors.Is(err, ErrMicrophoneDenied) {
		t.Fatalf("err = %v, want ErrMicrophoneDenied", err)
	}
	if d.Listening() {
		t.Error("failed start should not leave the draft listening")
	}
	if UserMessage(ErrMicrophoneDenied) == ErrMicrophoneDenied.Error() {
		t.Error("microphone errors should have a friendly message")
	}
}
