// Package madgraph prepares and optionally executes MadGraph event
// generation runs. Each run gets its own card copies, command file and shell
// script under the process directory, so prepared runs can be shipped to a
// cluster and started without this tool.
package madgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type Config struct {
	// MGDirectory is the MadGraph installation root holding bin/mg5_aMC.
	MGDirectory string
	// ProcessDirectory is the generated process folder; defaults to
	// ./MG_process.
	ProcessDirectory string
	// TempDirectory holds the generation command file; defaults to the
	// system temp directory.
	TempDirectory string
	// LogDirectory collects MadGraph output per run; defaults to ./logs.
	LogDirectory string
	// InitialCommand is a shell prelude run before mg5_aMC, for example an
	// environment activation.
	InitialCommand string
}

type Runner struct {
	cfg    Config
	logger *slog.Logger
}

func NewRunner(cfg Config, logger *slog.Logger) (*Runner, error) {
	if cfg.MGDirectory == "" {
		return nil, fmt.Errorf("madgraph directory is required")
	}
	if cfg.ProcessDirectory == "" {
		cfg.ProcessDirectory = "./MG_process"
	}
	if cfg.TempDirectory == "" {
		cfg.TempDirectory = os.TempDir()
	}
	if cfg.LogDirectory == "" {
		cfg.LogDirectory = "./logs"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Run describes one event generation job. The param and reweight cards are
// expected at ParamCardPath and ReweightCardPath for the run's index; RunCard
// and Pythia8Card are optional source files copied in during preparation.
// Background runs skip reweighting entirely.
type Run struct {
	Index        int
	RunCard      string
	Pythia8Card  string
	IsBackground bool
}

func (r *Runner) ProcessDir() string {
	return r.cfg.ProcessDirectory
}

func (r *Runner) CardsDir() string {
	return filepath.Join(r.cfg.ProcessDirectory, "proteus", "cards")
}

func (r *Runner) ScriptsDir() string {
	return filepath.Join(r.cfg.ProcessDirectory, "proteus", "scripts")
}

func (r *Runner) ParamCardPath(index int) string {
	return filepath.Join(r.CardsDir(), fmt.Sprintf("param_card_%d.dat", index))
}

func (r *Runner) ReweightCardPath(index int) string {
	return filepath.Join(r.CardsDir(), fmt.Sprintf("reweight_card_%d.dat", index))
}

func (r *Runner) RunCardPath(index int) string {
	return filepath.Join(r.CardsDir(), fmt.Sprintf("run_card_%d.dat", index))
}

func (r *Runner) Pythia8CardPath(index int) string {
	return filepath.Join(r.CardsDir(), fmt.Sprintf("pythia8_card_%d.dat", index))
}

func (r *Runner) CommandsPath(index int) string {
	return filepath.Join(r.CardsDir(), fmt.Sprintf("mg_commands_%d.dat", index))
}

func (r *Runner) ScriptPath(index int) string {
	return filepath.Join(r.ScriptsDir(), fmt.Sprintf("run_%d.sh", index))
}

func (r *Runner) LogPath(index int) string {
	return filepath.Join(r.cfg.LogDirectory, fmt.Sprintf("run_%d.log", index))
}

func (r *Runner) MasterScriptPath() string {
	return filepath.Join(r.cfg.ProcessDirectory, "proteus", "run.sh")
}

// EnsureLayout creates the card, script and log folders for prepared runs.
func (r *Runner) EnsureLayout() error {
	return CreateFolders(r.CardsDir(), r.ScriptsDir(), r.cfg.LogDirectory)
}

// GenerateProcess writes the process generation command file, the process
// card followed by an output line, and runs mg5_aMC on it. With execute false
// the command file is written and returned without starting MadGraph.
func (r *Runner) GenerateProcess(ctx context.Context, procCardPath string, execute bool) (string, error) {
	if err := CreateFolders(r.cfg.TempDirectory, r.cfg.ProcessDirectory, r.cfg.LogDirectory); err != nil {
		return "", err
	}

	procCard, err := os.ReadFile(procCardPath)
	if err != nil {
		return "", err
	}
	commands := strings.TrimRight(string(procCard), "\n") + "\n\noutput " + r.cfg.ProcessDirectory + "\n"

	commandsPath := filepath.Join(r.cfg.TempDirectory, "generate.mg5")
	if err := os.WriteFile(commandsPath, []byte(commands), 0o644); err != nil {
		return "", err
	}
	r.logger.Info("generating madgraph process folder", "proc_card", procCardPath, "process_dir", r.cfg.ProcessDirectory)
	if !execute {
		return commandsPath, nil
	}
	return commandsPath, r.invoke(ctx, commandsPath, filepath.Join(r.cfg.LogDirectory, "generate.log"))
}

// PrepareRun stages the run's cards, writes its MG command file and a shell
// script that installs the cards and starts mg5_aMC with output redirected to
// the run log. The returned line invokes the script and is collected into the
// master script.
func (r *Runner) PrepareRun(run Run) (string, error) {
	if err := r.stage(run); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n\n")
	for _, install := range r.cardInstalls(run) {
		fmt.Fprintf(&sb, "cp %s %s\n", install[0], install[1])
	}
	if r.cfg.InitialCommand != "" {
		sb.WriteString(r.cfg.InitialCommand + "\n")
	}
	fmt.Fprintf(&sb, "%s %s > %s 2>&1\n", r.mg5Binary(), r.CommandsPath(run.Index), r.LogPath(run.Index))

	scriptPath := r.ScriptPath(run.Index)
	if err := os.WriteFile(scriptPath, []byte(sb.String()), 0o755); err != nil {
		return "", err
	}
	r.logger.Info("prepared run script", "run", run.Index, "script", scriptPath)
	return "bash " + scriptPath, nil
}

// WriteMasterScript writes run.sh invoking every prepared run in order.
func (r *Runner) WriteMasterScript(lines []string) (string, error) {
	if len(lines) == 0 {
		return "", fmt.Errorf("at least one prepared run is required")
	}
	path := r.MasterScriptPath()
	script := "#!/bin/bash\n\n" + strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// ExecuteRun stages the run's cards, installs them into the process Cards
// folder and starts mg5_aMC immediately.
func (r *Runner) ExecuteRun(ctx context.Context, run Run) error {
	if err := r.stage(run); err != nil {
		return err
	}
	for _, install := range r.cardInstalls(run) {
		if err := copyFile(install[0], install[1]); err != nil {
			return err
		}
	}
	r.logger.Info("starting madgraph run", "run", run.Index, "log", r.LogPath(run.Index))
	return r.invoke(ctx, r.CommandsPath(run.Index), r.LogPath(run.Index))
}

// stage copies the optional source cards into the run's card slots and writes
// the MG command file. The param card, and the reweight card for non-background
// runs, must already be exported to their slots.
func (r *Runner) stage(run Run) error {
	if run.Index < 0 {
		return fmt.Errorf("run index must be >= 0, got=%d", run.Index)
	}
	if err := r.EnsureLayout(); err != nil {
		return err
	}

	if _, err := os.Stat(r.ParamCardPath(run.Index)); err != nil {
		return fmt.Errorf("param card for run %d is not exported: %w", run.Index, err)
	}
	if !run.IsBackground {
		if _, err := os.Stat(r.ReweightCardPath(run.Index)); err != nil {
			return fmt.Errorf("reweight card for run %d is not exported: %w", run.Index, err)
		}
	}
	if run.RunCard != "" {
		if err := copyFile(run.RunCard, r.RunCardPath(run.Index)); err != nil {
			return err
		}
	}
	if run.Pythia8Card != "" {
		if err := copyFile(run.Pythia8Card, r.Pythia8CardPath(run.Index)); err != nil {
			return err
		}
	}

	return os.WriteFile(r.CommandsPath(run.Index), []byte(r.commands(run)), 0o644)
}

// commands renders the MG launch block for one run.
func (r *Runner) commands(run Run) string {
	shower := "OFF"
	if run.Pythia8Card != "" {
		shower = "Pythia8"
	}
	reweight := "ON"
	if run.IsBackground {
		reweight = "OFF"
	}

	var sb strings.Builder
	sb.WriteString("launch " + r.cfg.ProcessDirectory + "\n")
	sb.WriteString("shower=" + shower + "\n")
	sb.WriteString("detector=OFF\n")
	sb.WriteString("analysis=OFF\n")
	sb.WriteString("madspin=OFF\n")
	sb.WriteString("reweight=" + reweight + "\n")
	sb.WriteString("done\n")
	return sb.String()
}

// cardInstalls lists the copies from a run's card slots into the canonical
// Cards locations MadGraph reads.
func (r *Runner) cardInstalls(run Run) [][2]string {
	cardsDir := filepath.Join(r.cfg.ProcessDirectory, "Cards")
	installs := [][2]string{
		{r.ParamCardPath(run.Index), filepath.Join(cardsDir, "param_card.dat")},
	}
	if !run.IsBackground {
		installs = append(installs, [2]string{r.ReweightCardPath(run.Index), filepath.Join(cardsDir, "reweight_card.dat")})
	}
	if run.RunCard != "" {
		installs = append(installs, [2]string{r.RunCardPath(run.Index), filepath.Join(cardsDir, "run_card.dat")})
	}
	if run.Pythia8Card != "" {
		installs = append(installs, [2]string{r.Pythia8CardPath(run.Index), filepath.Join(cardsDir, "pythia8_card.dat")})
	}
	return installs
}

func (r *Runner) mg5Binary() string {
	return filepath.Join(r.cfg.MGDirectory, "bin", "mg5_aMC")
}

func (r *Runner) invoke(ctx context.Context, commandsPath, logPath string) error {
	var cmd *exec.Cmd
	if r.cfg.InitialCommand != "" {
		cmd = exec.CommandContext(ctx, "bash", "-c", r.cfg.InitialCommand+"; "+r.mg5Binary()+" "+commandsPath)
	} else {
		cmd = exec.CommandContext(ctx, r.mg5Binary(), commandsPath)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("madgraph failed, output in %s: %w", logPath, err)
	}
	return nil
}

// CreateFolders makes every listed folder, skipping empty paths.
func CreateFolders(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
