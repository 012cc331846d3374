package protectimg

import (
	"errors"
	"fmt"
)

var (
	ErrNoSource   = errors.New("no source")
	ErrLoadFailed = errors.New("failed to load image")
	ErrClosed     = errors.New("controller closed")
)

// Phase is the lifecycle position of the active request.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingPrimary
	PhaseLoadingFallback
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingPrimary:
		return "loading-primary"
	case PhaseLoadingFallback:
		return "loading-fallback"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ResultKind says which rendered form is active.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultPixelSurface
	ResultProtectedNode
)

func (k ResultKind) String() string {
	switch k {
	case ResultNone:
		return "none"
	case ResultPixelSurface:
		return "pixel-surface"
	case ResultProtectedNode:
		return "protected-node"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// State is a snapshot of the controller. Result is only meaningful in
// PhaseSuccess and Err only in PhaseError.
type State struct {
	Phase      Phase
	Result     ResultKind
	Generation uint64
	RequestID  string
	Source     string
	Err        error
}

// Loading reports whether a loading indicator should be shown.
func (s State) Loading() bool {
	return s.Phase == PhaseIdle || s.Phase == PhaseLoadingPrimary || s.Phase == PhaseLoadingFallback
}

// Settled reports whether the request reached a terminal phase.
func (s State) Settled() bool {
	return s.Phase == PhaseSuccess || s.Phase == PhaseError
}

// userMessage is the static text of the error overlay.
func userMessage(err error) string {
	if errors.Is(err, ErrNoSource) {
		return "No image source"
	}
	return "Failed to load image"
}
