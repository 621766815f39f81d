package llm

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CodexCLIAdapter runs prompts through the Codex CLI.
type CodexCLIAdapter struct {
	binary string
}

// NewCodexCLIAdapter creates a Codex CLI adapter.
func NewCodexCLIAdapter() *CodexCLIAdapter {
	return &CodexCLIAdapter{binary: "codex"}
}

func (a *CodexCLIAdapter) Name() string {
	return "codex-cli"
}

// IsAvailable checks if the codex CLI is installed.
func (a *CodexCLIAdapter) IsAvailable() bool {
	_, err := exec.LookPath(a.binary)
	return err == nil
}

func (a *CodexCLIAdapter) Generate(ctx context.Context, req Request) (*Generation, error) {
	// Codex has no system prompt flag; both turns go on stdin.
	prompt := req.User
	if req.System != "" {
		prompt = fmt.Sprintf("SYSTEM INSTRUCTIONS:\n%s\n\nUSER REQUEST:\n%s", req.System, req.User)
	}

	cmd := exec.CommandContext(ctx, a.binary, "--model", req.Model, "--quiet")
	cmd.Stdin = strings.NewReader(prompt)

	output, err := runCLI(cmd, "codex")
	if err != nil {
		return nil, err
	}
	return estimated(req, output), nil
}
