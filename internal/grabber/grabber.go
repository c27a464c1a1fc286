// Package grabber drives the external collaborators of the pipeline: the git
// checkout of the guide-source repository, its npm dependency install, and
// the guide grab command itself.
package grabber

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var (
	// ErrGuideNotProduced is returned when the grab command finished but no
	// usable guide file exists.
	ErrGuideNotProduced = errors.New("grab completed but no guide file was produced")
)

// nodeOptions raises the Node heap limit for large channel lists.
const nodeOptions = "--max-old-space-size=8192"

// Grabber runs external commands inside the guide-source repository checkout.
type Grabber struct {
	// RepoDir is the local checkout of the guide-source repository.
	RepoDir string
	// RepoURL is cloned when RepoDir does not exist yet.
	RepoURL string

	logger *logrus.Logger
}

// New creates a grabber for the checkout at repoDir.
func New(repoDir, repoURL string, logger *logrus.Logger) *Grabber {
	return &Grabber{
		RepoDir: repoDir,
		RepoURL: repoURL,
		logger:  logger,
	}
}

// EnsureRepo clones the repository when the checkout is absent, otherwise
// pulls the latest revision.
func (g *Grabber) EnsureRepo(ctx context.Context) error {
	if _, err := os.Stat(g.RepoDir); os.IsNotExist(err) {
		g.logger.WithField("url", g.RepoURL).Info("Cloning guide source repository")
		if err := g.run(ctx, "", "git", "clone", g.RepoURL, g.RepoDir); err != nil {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
		return nil
	}

	g.logger.WithField("dir", g.RepoDir).Info("Updating guide source repository")
	if err := g.run(ctx, g.RepoDir, "git", "pull"); err != nil {
		return fmt.Errorf("failed to update repository: %w", err)
	}
	return nil
}

// InstallDeps installs the repository's npm dependencies.
func (g *Grabber) InstallDeps(ctx context.Context) error {
	g.logger.Info("Installing guide tool dependencies")
	if err := g.run(ctx, g.RepoDir, "npm", "install"); err != nil {
		return fmt.Errorf("failed to install dependencies: %w", err)
	}
	return nil
}

// GrabOptions parameterizes one guide-generation invocation.
type GrabOptions struct {
	ChannelsFile   string // request document path, relative to the checkout
	OutputFile     string // guide output path, relative to the checkout
	MaxConnections int    // parallel fetches inside the grab tool
	Days           int    // days of guide data to fetch
}

// Grab runs the guide-generation command. When the command exits non-zero but
// a non-empty guide file exists anyway, Grab logs a warning and reports
// success: partial guide data is still usable. ErrGuideNotProduced is
// returned when no guide file appears at all.
func (g *Grabber) Grab(ctx context.Context, opts GrabOptions) error {
	args := []string{
		"run", "grab", "--",
		fmt.Sprintf("--channels=%s", opts.ChannelsFile),
		fmt.Sprintf("--output=%s", opts.OutputFile),
		fmt.Sprintf("--maxConnections=%d", opts.MaxConnections),
		fmt.Sprintf("--days=%d", opts.Days),
	}

	g.logger.WithFields(logrus.Fields{
		"maxConnections": opts.MaxConnections,
		"days":           opts.Days,
	}).Info("Generating guide data (this may take several minutes)")

	runErr := g.run(ctx, g.RepoDir, "npm", args...)

	guidePath := filepath.Join(g.RepoDir, opts.OutputFile)
	info, statErr := os.Stat(guidePath)
	produced := statErr == nil && info.Size() > 0

	if runErr != nil {
		if !produced {
			return fmt.Errorf("guide generation failed: %w", runErr)
		}
		g.logger.WithError(runErr).Warn("Guide generation had failures but produced a guide file")
	}
	if !produced {
		return ErrGuideNotProduced
	}
	return nil
}

// GuidePath returns the absolute path of the guide file inside the checkout.
func (g *Grabber) GuidePath(outputFile string) string {
	return filepath.Join(g.RepoDir, outputFile)
}

// run executes a command with NODE_OPTIONS set, streaming its output into the
// logger line by line.
func (g *Grabber) run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 - args are internally constructed
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "NODE_OPTIONS="+nodeOptions)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	done := make(chan struct{})
	go func() {
		g.logLines(name, stdout)
		close(done)
	}()
	g.logLines(name, stderr)
	<-done

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s exited with error: %w", name, err)
	}
	return nil
}

func (g *Grabber) logLines(name string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		g.logger.WithField("tool", name).Debug(scanner.Text())
	}
}

// CopyFile copies src to dst, creating parent directories as needed. Used to
// move the generated guide out of the checkout.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		_ = in.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy guide: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", dst, err)
	}
	return nil
}
