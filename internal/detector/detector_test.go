package detector

import (
	"errors"
	"testing"
)

func handWithScore(handedness string, score float64) HandLandmarks {
	h := OpenPalmLandmarks()
	h.Handedness = handedness
	h.Score = score
	return h
}

func TestConfigApplyFiltersByConfidence(t *testing.T) {
	cfg := Config{MaxHands: 2, MinConfidence: 0.5}
	hands := []HandLandmarks{
		handWithScore("Right", 0.9),
		handWithScore("Left", 0.3),
	}

	kept := cfg.Apply(hands)
	if len(kept) != 1 {
		t.Fatalf("len(kept) = %d, want 1", len(kept))
	}
	if kept[0].Handedness != "Right" {
		t.Errorf("kept hand = %q, want Right", kept[0].Handedness)
	}
}

func TestConfigApplyCapsAtMaxHands(t *testing.T) {
	cfg := Config{MaxHands: 1, MinConfidence: 0.1}
	hands := []HandLandmarks{
		handWithScore("Right", 0.9),
		handWithScore("Left", 0.8),
	}

	kept := cfg.Apply(hands)
	if len(kept) != 1 {
		t.Fatalf("len(kept) = %d, want 1", len(kept))
	}
	if kept[0].Handedness != "Right" {
		t.Errorf("kept hand = %q, want first detection preserved", kept[0].Handedness)
	}
}

func TestConfigApplyEmpty(t *testing.T) {
	cfg := DefaultConfig()
	if kept := cfg.Apply(nil); len(kept) != 0 {
		t.Fatalf("len(kept) = %d, want 0", len(kept))
	}
}

func TestMockDetectorSequence(t *testing.T) {
	m := NewMockDetector()
	m.SetSequence([][]HandLandmarks{
		{FistLandmarks()},
		nil,
		{OpenPalmLandmarks()},
	})

	hands, err := m.Detect(nil)
	if err != nil || len(hands) != 1 {
		t.Fatalf("frame 1: hands = %d, err = %v, want 1 hand", len(hands), err)
	}
	hands, err = m.Detect(nil)
	if err != nil || len(hands) != 0 {
		t.Fatalf("frame 2: hands = %d, err = %v, want 0 hands", len(hands), err)
	}
	hands, err = m.Detect(nil)
	if err != nil || len(hands) != 1 {
		t.Fatalf("frame 3: hands = %d, err = %v, want 1 hand", len(hands), err)
	}

	// Exhausted sequences read as empty frames.
	hands, err = m.Detect(nil)
	if err != nil || len(hands) != 0 {
		t.Fatalf("frame 4: hands = %d, err = %v, want 0 hands after exhaustion", len(hands), err)
	}
}

func TestMockDetectorError(t *testing.T) {
	m := NewMockDetector()
	boom := errors.New("detector crashed")
	m.SetError(boom)

	if _, err := m.Detect(nil); !errors.Is(err, boom) {
		t.Fatalf("Detect() error = %v, want %v", err, boom)
	}
}

func TestPresetLandmarkCounts(t *testing.T) {
	presets := map[string]HandLandmarks{
		"thumbs up": ThumbsUpLandmarks(),
		"open palm": OpenPalmLandmarks(),
		"fist":      FistLandmarks(),
	}
	for name, hand := range presets {
		if len(hand.Points) != NumLandmarks {
			t.Errorf("%s: len(Points) = %d, want %d", name, len(hand.Points), NumLandmarks)
		}
		if hand.Score <= 0 || hand.Score > 1 {
			t.Errorf("%s: Score = %v, want in (0,1]", name, hand.Score)
		}
	}
}
