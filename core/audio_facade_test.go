package orchestration

import (
	"context"
	"errors"
	"testing"

	"github.com/chukwumela909/voice-agent-market/core/audio"
)

func TestWithAudioInputConfiguresAudioInputFacade(t *testing.T) {
	inputClient := &fakeAudioInput{}
	o := NewOrchestrator(WithAudioInput(inputClient))

	if !o.audioInput.IsConfigured() {
		t.Fatalf("expected audio input facade to be configured")
	}
	if o.audioInput.base != inputClient {
		t.Fatalf("expected facade client to match configured audio input")
	}
}

func TestAudioFacadesTreatTypedNilAsUnset(t *testing.T) {
	var input *fakeAudioInput
	var output *fakeAudioOutput
	o := NewOrchestrator(WithAudioInput(input), WithAudioOutput(output))

	if o.audioInput.IsConfigured() {
		t.Fatalf("expected typed-nil input to be unconfigured")
	}
	if o.audioOutput.client() != nil {
		t.Fatalf("expected typed-nil output to be unconfigured")
	}

	// Headless playback is a no-op.
	o.audioOutput.SendAudio([]byte{1})
	o.audioOutput.Clear()
}

func TestAudioFacadesUseDefaultEncodingInfoWhenUnset(t *testing.T) {
	want := audio.GetDefaultEncodingInfo()
	if got := newAudioInput(nil).EncodingInfo(); got != want {
		t.Fatalf("expected default input encoding %+v, got %+v", want, got)
	}
	if got := newAudioOutput(nil).EncodingInfo(); got != want {
		t.Fatalf("expected default output encoding %+v, got %+v", want, got)
	}
}

func TestAudioInputFacadeStartStop(t *testing.T) {
	client := &fakeAudioInput{}
	facade := newAudioInput(client)

	var frames int
	if err := facade.Start(context.Background(), func([]byte) { frames++ }); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if err := facade.Start(context.Background(), func([]byte) {}); err != nil {
		t.Fatalf("expected second start to be a no-op, got %v", err)
	}
	if client.starts != 1 || !facade.IsCapturing() {
		t.Fatalf("expected one capture start, got %d", client.starts)
	}

	client.emit([]byte{1, 2})
	if frames != 1 {
		t.Fatalf("expected captured audio to be forwarded, got %d frames", frames)
	}

	if err := facade.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if err := facade.Stop(); err != nil {
		t.Fatalf("expected second stop to be a no-op, got %v", err)
	}
	if client.stops != 1 || facade.IsCapturing() {
		t.Fatalf("expected one capture stop, got %d", client.stops)
	}
}

func TestAudioInputFacadeStartFailure(t *testing.T) {
	client := &fakeAudioInput{startErr: errors.New("device busy")}
	facade := newAudioInput(client)

	if err := facade.Start(context.Background(), func([]byte) {}); err == nil {
		t.Fatalf("expected start failure to surface")
	}
	if facade.IsCapturing() {
		t.Fatalf("expected facade not to be capturing after a failed start")
	}

	client.startErr = nil
	if err := facade.Start(context.Background(), func([]byte) {}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestAudioInputFacadeWithoutClientFails(t *testing.T) {
	if err := newAudioInput(nil).Start(context.Background(), func([]byte) {}); err == nil {
		t.Fatalf("expected start without a client to fail")
	}
}

func TestAudioOutputFacadeForwardsPlayback(t *testing.T) {
	client := &fakeAudioOutput{}
	facade := newAudioOutput(client)

	facade.SendAudio([]byte{1})
	facade.SendAudio([]byte{2})
	facade.Clear()

	if chunks, clears := client.counts(); chunks != 2 || clears != 1 {
		t.Fatalf("expected 2 chunks and 1 clear, got %d and %d", chunks, clears)
	}
}
