package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rnshah9/root/pkg/observability"
)

// Spinner is a terminal progress indicator whose message follows the
// pipeline stages. It stops on context cancellation.
type Spinner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string

	mu       sync.Mutex
	message  string
	maxWidth int
}

// newSpinner creates a spinner with the given initial message.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that stops when the context is
// cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		ctx:      spinnerCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message:  message,
		maxWidth: len(message),
	}
}

// SetMessage replaces the spinner's message, typically when the pipeline
// moves to its next stage. Safe to call while the spinner is running.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if len(message) > s.maxWidth {
		s.maxWidth = len(message)
	}
}

func (s *Spinner) currentMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				frame := s.frames[i%len(s.frames)]
				s.mu.Lock()
				fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", s.maxWidth+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// stageHooks drives a spinner's message from pipeline events, so the user
// sees which stage a long unfold is in. Registered via
// observability.SetPipelineHooks before running and reset afterwards.
type stageHooks struct {
	observability.NoopPipelineHooks
	spin *Spinner
}

func (h stageHooks) OnLoadStart(ctx context.Context, source string) {
	h.spin.SetMessage("Loading model...")
}

func (h stageHooks) OnUnfoldStart(ctx context.Context, top string, normSet []string) {
	h.spin.SetMessage(fmt.Sprintf("Unfolding integrals below %s...", top))
}

func (h stageHooks) OnRenderStart(ctx context.Context, formats []string) {
	h.spin.SetMessage(fmt.Sprintf("Rendering %s...", strings.Join(formats, ", ")))
}
