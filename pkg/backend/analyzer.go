package backend

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/store"
)

// Analyzer produces datasets (and diagram assets) for a source folder.
type Analyzer interface {
	Analyze(ctx context.Context, folder string) error
}

// AnalyzerFunc adapts a function to [Analyzer].
type AnalyzerFunc func(ctx context.Context, folder string) error

func (f AnalyzerFunc) Analyze(ctx context.Context, folder string) error { return f(ctx, folder) }

// OutDirEnv names the environment variable that tells the analyzer command
// where to write its output.
const OutDirEnv = "KUDSIGHT_OUT_DIR"

// ExecAnalyzer runs an external command with the folder appended to its
// arguments. The command writes its datasets into OutDir.
type ExecAnalyzer struct {
	Command []string
	OutDir  string
	Logger  *log.Logger
}

// Analyze runs the command. A folder that does not exist fails with
// [MsgPathMissing] before anything is started.
func (a *ExecAnalyzer) Analyze(ctx context.Context, folder string) error {
	if err := errors.ValidateFolderPath(folder); err != nil {
		return err
	}
	if _, err := os.Stat(folder); err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.ErrCodeInvalidPath, MsgPathMissing)
		}
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "stat %s", folder)
	}
	if len(a.Command) == 0 {
		return errors.New(errors.ErrCodeUnsupported, "no analyzer command configured")
	}

	logger := a.Logger
	if logger == nil {
		logger = log.Default()
	}

	args := append(append([]string{}, a.Command[1:]...), folder)
	cmd := exec.CommandContext(ctx, a.Command[0], args...)
	cmd.Env = append(os.Environ(), OutDirEnv+"="+a.OutDir)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Info("running analyzer", "command", a.Command[0], "folder", folder)
	if err := cmd.Run(); err != nil {
		logger.Debug("analyzer output", "output", out.String())
		return errors.Wrap(errors.ErrCodeInternal, err, "analysis failed: %s", lastLine(out.String()))
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// StagedAnalyzer runs an [ExecAnalyzer] into a temporary directory and copies
// what it wrote into Store. It lets stores without a directory, such as
// MongoDB, receive analyzer output.
type StagedAnalyzer struct {
	Exec  ExecAnalyzer
	Store store.Store
}

// Analyze runs the command and imports every regular file it produced.
func (a *StagedAnalyzer) Analyze(ctx context.Context, folder string) error {
	dir, err := os.MkdirTemp("", "kudsight-analyze-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create staging dir")
	}
	defer os.RemoveAll(dir)

	run := a.Exec
	run.OutDir = dir
	if err := run.Analyze(ctx, folder); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "read staging dir")
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "read %s", e.Name())
		}
		if err := a.Store.Write(ctx, e.Name(), data); err != nil {
			return errors.Wrap(errors.ErrCodePersistenceFailed, err, "import %s", e.Name())
		}
	}
	return nil
}
