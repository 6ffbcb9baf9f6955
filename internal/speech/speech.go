// Package speech adapts external speech-to-text and text-to-speech engines
// behind the assistant's Speech interface. Engines are arbitrary shell
// commands (an STT command printing the transcript to stdout, a TTS command
// reading text from stdin), so any locally installed engine works. An
// unconfigured engine degrades the session to text-only operation.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Engine shells out to the configured commands for transcription and speech.
type Engine struct {
	logger *slog.Logger
	sttCmd string
	ttsCmd string
}

// NewEngine builds an engine. Either command may be empty; Ready reports
// whether both halves are usable.
func NewEngine(logger *slog.Logger, sttCmd, ttsCmd string) *Engine {
	return &Engine{logger: logger, sttCmd: sttCmd, ttsCmd: ttsCmd}
}

// Ready reports whether voice interaction is fully configured.
func (e *Engine) Ready() bool {
	return e.sttCmd != "" && e.ttsCmd != ""
}

// Transcribe runs the STT command and returns its trimmed stdout.
func (e *Engine) Transcribe(ctx context.Context) (string, error) {
	if e.sttCmd == "" {
		return "", fmt.Errorf("no speech-to-text command configured")
	}
	out, err := exec.CommandContext(ctx, "sh", "-c", e.sttCmd).Output()
	if err != nil {
		return "", fmt.Errorf("speech-to-text command failed: %w", err)
	}
	text := strings.TrimSpace(string(out))
	e.logger.Debug("Transcribed speech", "text", text)
	return text, nil
}

// Speak pipes text into the TTS command. A missing command is not an error;
// the caller falls back to printing.
func (e *Engine) Speak(text string) error {
	if e.ttsCmd == "" {
		return fmt.Errorf("no text-to-speech command configured")
	}
	cmd := exec.Command("sh", "-c", e.ttsCmd)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("text-to-speech command failed: %w", err)
	}
	return nil
}
