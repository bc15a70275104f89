// Package pipeline holds the status state machines of the production stages. Every status
// write in the service layer goes through Transition or Apply.
package pipeline

import (
	"textile-erp/internal/apperror"
)

// StitchingStatus is the lifecycle of a stitching challan
type StitchingStatus string

const (
	StitchingPending   StitchingStatus = "PENDING"
	StitchingQCPending StitchingStatus = "QC_PENDING"
	StitchingQCDone    StitchingStatus = "QC_DONE"
	StitchingConverted StitchingStatus = "CONVERTED"
	StitchingCancelled StitchingStatus = "CANCELLED"
)

// StitchingEvent drives a stitching challan forward
type StitchingEvent string

const (
	EventRecordQC  StitchingEvent = "RECORD_QC"
	EventApproveQC StitchingEvent = "APPROVE_QC"
	EventConvert   StitchingEvent = "CONVERT"
	EventCancel    StitchingEvent = "CANCEL"
)

var stitchingForward = map[StitchingStatus]StitchingStatus{
	StitchingPending:   StitchingQCPending,
	StitchingQCPending: StitchingQCDone,
	StitchingQCDone:    StitchingConverted,
}

var stitchingEvents = map[StitchingEvent]StitchingStatus{
	EventRecordQC:  StitchingQCPending,
	EventApproveQC: StitchingQCDone,
	EventConvert:   StitchingConverted,
	EventCancel:    StitchingCancelled,
}

// ParseStitchingStatus validates a raw status value
func ParseStitchingStatus(raw string) (StitchingStatus, error) {
	s := StitchingStatus(raw)
	switch s {
	case StitchingPending, StitchingQCPending, StitchingQCDone, StitchingConverted, StitchingCancelled:
		return s, nil
	}
	return "", apperror.Validation("unknown stitching status %q", raw)
}

// IsTerminal reports whether no further status change is allowed
func (s StitchingStatus) IsTerminal() bool {
	return s == StitchingConverted || s == StitchingCancelled
}

// Next returns the single forward successor, if any
func (s StitchingStatus) Next() (StitchingStatus, bool) {
	next, ok := stitchingForward[s]
	return next, ok
}

// Transition validates moving a stitching challan from one status to another.
// Only the immediate forward step or a cancel from a non-terminal state is allowed.
func (s StitchingStatus) Transition(to StitchingStatus) error {
	if s.IsTerminal() {
		return apperror.InvalidTransition("stitching challan is %s, no further status change is allowed", s)
	}
	if to == StitchingCancelled {
		return nil
	}
	if next, ok := s.Next(); ok && next == to {
		return nil
	}
	return apperror.InvalidTransition("stitching challan cannot move from %s to %s", s, to)
}

// Apply returns the status reached by event, or InvalidTransition.
func (s StitchingStatus) Apply(event StitchingEvent) (StitchingStatus, error) {
	to, ok := stitchingEvents[event]
	if !ok {
		return s, apperror.Validation("unknown stitching event %q", event)
	}
	if err := s.Transition(to); err != nil {
		return s, err
	}
	return to, nil
}

// IsInitial reports whether the challan is still in the state it was created in
func (s StitchingStatus) IsInitial() bool {
	return s == StitchingPending
}

// WeaverStatus is the lifecycle of a weaver challan
type WeaverStatus string

const (
	WeaverSent      WeaverStatus = "SENT"
	WeaverReceived  WeaverStatus = "RECEIVED"
	WeaverCompleted WeaverStatus = "COMPLETED"
)

// ParseWeaverStatus validates a raw status value
func ParseWeaverStatus(raw string) (WeaverStatus, error) {
	s := WeaverStatus(raw)
	switch s {
	case WeaverSent, WeaverReceived, WeaverCompleted:
		return s, nil
	}
	return "", apperror.Validation("unknown weaver challan status %q", raw)
}

func (s WeaverStatus) IsTerminal() bool {
	return s == WeaverCompleted
}

func (s WeaverStatus) IsInitial() bool {
	return s == WeaverSent
}

// Transition validates a weaver challan status change. There is no cancel state.
func (s WeaverStatus) Transition(to WeaverStatus) error {
	if s.IsTerminal() {
		return apperror.InvalidTransition("weaver challan is %s, no further status change is allowed", s)
	}
	if (s == WeaverSent && to == WeaverReceived) || (s == WeaverReceived && to == WeaverCompleted) {
		return nil
	}
	return apperror.InvalidTransition("weaver challan cannot move from %s to %s", s, to)
}
