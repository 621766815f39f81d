package llm

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// ClaudeCLIAdapter runs prompts through the Claude Code CLI.
// Users already have it authenticated, so no API key is needed.
type ClaudeCLIAdapter struct {
	binary string
}

// NewClaudeCLIAdapter creates a Claude CLI adapter.
func NewClaudeCLIAdapter() *ClaudeCLIAdapter {
	return &ClaudeCLIAdapter{binary: "claude"}
}

func (a *ClaudeCLIAdapter) Name() string {
	return "claude-cli"
}

// IsAvailable checks if the claude CLI is installed.
func (a *ClaudeCLIAdapter) IsAvailable() bool {
	_, err := exec.LookPath(a.binary)
	return err == nil
}

func (a *ClaudeCLIAdapter) Generate(ctx context.Context, req Request) (*Generation, error) {
	args := []string{"--model", req.Model, "--print", "--output-format", "text"}

	if req.System != "" {
		// The CLI reads long system prompts more reliably from a file.
		systemFile, err := os.CreateTemp("", "promptbench-system-*.txt")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create system prompt file")
		}
		defer os.Remove(systemFile.Name())

		if _, err := systemFile.WriteString(req.System); err != nil {
			systemFile.Close()
			return nil, errors.Wrap(err, "failed to write system prompt")
		}
		systemFile.Close()
		args = append(args, "--system-prompt-file", systemFile.Name())
	}

	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Stdin = strings.NewReader(req.User)

	output, err := runCLI(cmd, "claude")
	if err != nil {
		return nil, err
	}
	return estimated(req, output), nil
}

// runCLI runs cmd and returns its trimmed stdout, folding stderr into the error.
func runCLI(cmd *exec.Cmd, name string) (string, error) {
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", errors.Newf("%s CLI failed: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", errors.Wrapf(err, "%s CLI failed", name)
	}
	return strings.TrimSpace(string(output)), nil
}

// estimated builds a Generation for backends that report no token usage.
func estimated(req Request, text string) *Generation {
	return &Generation{
		Text:         text,
		Model:        req.Model,
		InputTokens:  EstimateTokens(len(req.System) + len(req.User)),
		OutputTokens: EstimateTokens(len(text)),
		Estimated:    true,
	}
}
