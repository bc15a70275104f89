package pipeline

import (
	"errors"
	"testing"

	"textile-erp/internal/apperror"
)

var allStitching = []StitchingStatus{
	StitchingPending,
	StitchingQCPending,
	StitchingQCDone,
	StitchingConverted,
	StitchingCancelled,
}

func TestStitchingTransition(t *testing.T) {
	allowed := map[[2]StitchingStatus]bool{
		{StitchingPending, StitchingQCPending}:   true,
		{StitchingQCPending, StitchingQCDone}:    true,
		{StitchingQCDone, StitchingConverted}:    true,
		{StitchingPending, StitchingCancelled}:   true,
		{StitchingQCPending, StitchingCancelled}: true,
		{StitchingQCDone, StitchingCancelled}:    true,
	}

	for _, from := range allStitching {
		for _, to := range allStitching {
			err := from.Transition(to)
			if allowed[[2]StitchingStatus{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s should be allowed, got %v", from, to, err)
				}
				continue
			}
			if !errors.Is(err, apperror.ErrInvalidTransition) {
				t.Errorf("%s -> %s should fail with ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, from := range []StitchingStatus{StitchingConverted, StitchingCancelled} {
		for _, event := range []StitchingEvent{EventRecordQC, EventApproveQC, EventConvert, EventCancel} {
			got, err := from.Apply(event)
			if !errors.Is(err, apperror.ErrInvalidTransition) {
				t.Errorf("%s.Apply(%s) error = %v, want ErrInvalidTransition", from, event, err)
			}
			if got != from {
				t.Errorf("%s.Apply(%s) moved to %s", from, event, got)
			}
		}
	}
}

func TestApplyHappyPath(t *testing.T) {
	s := StitchingPending
	for _, event := range []StitchingEvent{EventRecordQC, EventApproveQC, EventConvert} {
		next, err := s.Apply(event)
		if err != nil {
			t.Fatalf("%s.Apply(%s): %v", s, event, err)
		}
		s = next
	}
	if s != StitchingConverted {
		t.Fatalf("ended in %s, want CONVERTED", s)
	}

	if _, err := StitchingPending.Apply(EventConvert); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Errorf("skipping straight to CONVERTED should fail, got %v", err)
	}
	if _, err := StitchingPending.Apply("SHIP"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown event should be a validation error, got %v", err)
	}
}

func TestWeaverTransition(t *testing.T) {
	tests := []struct {
		from, to WeaverStatus
		ok       bool
	}{
		{WeaverSent, WeaverReceived, true},
		{WeaverReceived, WeaverCompleted, true},
		{WeaverSent, WeaverCompleted, false},
		{WeaverReceived, WeaverSent, false},
		{WeaverCompleted, WeaverReceived, false},
		{WeaverCompleted, WeaverCompleted, false},
	}

	for _, tt := range tests {
		err := tt.from.Transition(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, apperror.ErrInvalidTransition) {
			t.Errorf("%s -> %s: error = %v, want ErrInvalidTransition", tt.from, tt.to, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStitchingStatus("QC_DONE"); err != nil {
		t.Errorf("ParseStitchingStatus(QC_DONE): %v", err)
	}
	if _, err := ParseStitchingStatus("Done"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ParseStitchingStatus(Done) = %v, want ErrValidation", err)
	}
	if _, err := ParseWeaverStatus("RECEIVED"); err != nil {
		t.Errorf("ParseWeaverStatus(RECEIVED): %v", err)
	}
}
