// Package pack is the boundary to the externally-owned packaging tool.
// The core never interprets the tool's behavior beyond exit status and
// captured output; schema correctness of the emitted flows is the tool's
// responsibility at build time.
package pack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// BinEnv overrides the packaging binary location when no explicit path is
// given.
const BinEnv = "CARDS2FLOW_PACK_BIN"

// defaultBin is the packaging binary looked up on PATH as a last resort.
const defaultBin = "greentic-pack"

// BuildOutput captures the packaging tool's build output for inspection.
type BuildOutput struct {
	Stdout string
	Stderr string
}

// Packer is the operations surface of the packaging tool the generator
// invokes. Implementations must be safe to call sequentially in the order
// New, Update, Resolve, Doctor, Build.
type Packer interface {
	New(ctx context.Context, dir, name string) error
	Update(ctx context.Context, dir string) error
	Components(ctx context.Context, dir string) error
	Resolve(ctx context.Context, dir string) error
	Doctor(ctx context.Context, dir string) error
	Build(ctx context.Context, dir, outFile string) (BuildOutput, error)
}

// ResolveBin locates the packaging binary: an explicit override first, then
// the environment, then PATH.
func ResolveBin(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := strings.TrimSpace(os.Getenv(BinEnv)); env != "" {
		return env, nil
	}
	path, err := exec.LookPath(defaultBin)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", defaultBin, err)
	}
	return path, nil
}

// ExecPacker invokes the packaging tool as a subprocess.
type ExecPacker struct {
	Bin    string
	Logger *slog.Logger
}

func (p *ExecPacker) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (p *ExecPacker) run(ctx context.Context, args ...string) error {
	p.logger().Debug("running packaging tool", "bin", p.Bin, "args", args)
	cmd := exec.CommandContext(ctx, p.Bin, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", p.Bin, strings.Join(args, " "), err)
	}
	return nil
}

func (p *ExecPacker) New(ctx context.Context, dir, name string) error {
	return p.run(ctx, "new", "--dir", dir, name)
}

func (p *ExecPacker) Update(ctx context.Context, dir string) error {
	return p.run(ctx, "update", "--in", dir)
}

// Components registers locally vendored components with the pack.
func (p *ExecPacker) Components(ctx context.Context, dir string) error {
	return p.run(ctx, "components", "--in", dir)
}

func (p *ExecPacker) Resolve(ctx context.Context, dir string) error {
	return p.run(ctx, "resolve", "--in", dir)
}

func (p *ExecPacker) Doctor(ctx context.Context, dir string) error {
	return p.run(ctx, "doctor", "--in", dir)
}

// Build runs the packaging build with output captured. On failure the tail
// of stderr is surfaced so CLI users see the tool's own explanation.
func (p *ExecPacker) Build(ctx context.Context, dir, outFile string) (BuildOutput, error) {
	p.logger().Debug("running packaging build", "bin", p.Bin, "in", dir, "out", outFile)
	cmd := exec.CommandContext(ctx, p.Bin, "build", "--in", dir, "--gtpack-out", outFile)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := BuildOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return out, fmt.Errorf("packaging build failed: %w\n%s", err, tailLines(out.Stderr, 20))
	}
	return out, nil
}

// tailLines returns the last max lines of input for error reporting.
func tailLines(input string, max int) string {
	lines := strings.Split(strings.TrimRight(input, "\n"), "\n")
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-max:], "\n")
}
