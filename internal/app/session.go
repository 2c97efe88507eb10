package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/cli"
	"github.com/rbright/voxscribe/internal/config"
	"github.com/rbright/voxscribe/internal/indicator"
	"github.com/rbright/voxscribe/internal/ipc"
	"github.com/rbright/voxscribe/internal/output"
	"github.com/rbright/voxscribe/internal/recognize"
	"github.com/rbright/voxscribe/internal/server"
	"github.com/rbright/voxscribe/internal/session"
	"github.com/rbright/voxscribe/internal/spotter"
	"github.com/rbright/voxscribe/internal/transcript"
	"github.com/rbright/voxscribe/internal/ui"
)

const modePrompt = "Use voice control? [y]es / [n]o / [c]ancel: "

var errPromptCancelled = errors.New("cancelled")

// sessionParts is everything a controller run needs, built from config.
type sessionParts struct {
	controller  *session.Controller
	cues        *indicator.Cues
	speaker     *output.Speaker
	opener      audio.Opener
	format      audio.Format
	transcriber *recognize.Transcriber
}

func buildSession(cfg config.Config, logger *slog.Logger) (sessionParts, error) {
	opener, err := audio.NewOpener(cfg.Audio, logger)
	if err != nil {
		return sessionParts{}, err
	}
	transcriber, err := recognize.New(cfg, logger)
	if err != nil {
		return sessionParts{}, err
	}
	store, err := transcript.NewStore(cfg.Output)
	if err != nil {
		return sessionParts{}, err
	}

	format := audio.FormatFromConfig(cfg.Audio)
	cues := indicator.New(cfg.Indicator, logger)
	controller := session.NewController(session.Options{
		Recorder:    audio.NewRecorder(opener, format, cfg.Audio.MaxDuration),
		Transcriber: transcriber,
		Store:       store,
		Indicator:   cues,
		Committer:   output.NewClipboard(cfg.Output, logger),
		Logger:      logger,
	})

	return sessionParts{
		controller:  controller,
		cues:        cues,
		speaker:     output.NewSpeaker(cfg.TTS, logger),
		opener:      opener,
		format:      format,
		transcriber: transcriber,
	}, nil
}

// mode builds the control mode named by name.
func (p sessionParts) mode(name string, cfg config.Config, logger *slog.Logger) session.Mode {
	if name != cli.ModeVoice {
		return session.ManualMode{}
	}
	commands := spotter.New(spotter.Options{
		Opener:      p.opener,
		Format:      p.format,
		Listener:    cfg.Listener,
		Commands:    cfg.Commands,
		Transcriber: p.transcriber,
		Logger:      logger,
	})
	return &session.VoiceMode{Commands: commands, Speaker: p.speaker, Logger: logger}
}

// promptMode asks for a control mode until it gets a usable answer. in is
// shared with the session input, so only whole lines are consumed.
func promptMode(in *bufio.Reader, out io.Writer) (string, error) {
	for {
		fmt.Fprint(out, modePrompt)
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read mode choice: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return cli.ModeVoice, nil
		case "n", "no":
			return cli.ModeManual, nil
		case "c", "cancel":
			return "", errPromptCancelled
		}
		if errors.Is(err, io.EOF) {
			return "", errPromptCancelled
		}
		fmt.Fprintln(out, "Please answer y, n, or c.")
	}
}

// acquireControl binds the IPC socket for this session. Without a runtime dir
// the session still runs, only without remote control.
func acquireControl(ctx context.Context, logger *slog.Logger) (*ipc.Owner, error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		logger.Warn("ipc control disabled", "error", err.Error())
		return nil, nil
	}

	return ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		OnStale: func(path string) {
			logger.Warn("removed stale control socket", "path", path)
		},
	})
}

// serveControl answers IPC requests with handler until the returned stop runs.
func serveControl(ctx context.Context, owner *ipc.Owner, handler ipc.Handler) func() error {
	if owner == nil {
		return func() error { return nil }
	}
	serverCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- ipc.Serve(serverCtx, owner.Listener, handler)
	}()
	return func() error {
		cancel()
		return <-errCh
	}
}

func (r Runner) commandRun(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	input := bufio.NewReader(r.Stdin)
	modeName := parsed.Mode
	if modeName == "" {
		chosen, err := promptMode(input, r.Stdout)
		if errors.Is(err, errPromptCancelled) {
			fmt.Fprintln(r.Stdout, "cancelled")
			return 0
		}
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		modeName = chosen
	}

	owner, err := acquireControl(ctx, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if owner != nil {
		defer owner.Release()
	}

	parts, err := buildSession(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("build session failed", "error", err.Error())
		return 1
	}
	defer parts.cues.Wait()

	stopControl := serveControl(ctx, owner, parts.controller)
	mode := parts.mode(modeName, cfg, logger)

	// The terminal UI only enables raw mode on a real file, so hand the
	// original stdin back unless the prompt left bytes buffered.
	var sessionInput io.Reader = input
	if input.Buffered() == 0 {
		sessionInput = r.Stdin
	}

	var runErr error
	if parsed.Plain {
		runErr = r.runConsole(ctx, sessionInput, parts.controller, mode)
	} else {
		runErr = r.runTUI(ctx, sessionInput, parts.controller, mode)
	}

	if err := stopControl(); err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		return 1
	}
	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}
	return 0
}

func (r Runner) runConsole(ctx context.Context, input io.Reader, controller *session.Controller, mode session.Mode) error {
	controller.AddObserver(ui.NewConsole(r.Stdout))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	runErr := make(chan error, 1)
	go func() {
		defer close(done)
		runErr <- controller.Run(runCtx, mode)
	}()

	consoleErr := ui.RunConsole(runCtx, input, r.Stdout, controller, done)
	_ = controller.Exit()
	cancel()
	<-done

	if err := <-runErr; err != nil {
		return err
	}
	return consoleErr
}

func (r Runner) runTUI(ctx context.Context, input io.Reader, controller *session.Controller, mode session.Mode) error {
	program := tea.NewProgram(
		ui.NewModel(controller, controller.Snapshot()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(input),
		tea.WithOutput(r.Stdout),
	)
	controller.AddObserver(ui.NewProgramObserver(program))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		err := controller.Run(runCtx, mode)
		program.Send(ui.SessionDoneMsg{})
		runErr <- err
	}()

	_, programErr := program.Run()
	_ = controller.Exit()
	cancel()

	if err := <-runErr; err != nil {
		return err
	}
	if programErr != nil && !errors.Is(programErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", programErr)
	}
	return nil
}

func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	owner, err := acquireControl(ctx, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if owner != nil {
		defer owner.Release()
	}

	parts, err := buildSession(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("build session failed", "error", err.Error())
		return 1
	}
	defer parts.cues.Wait()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := server.NewHub(logger)
	go hub.Run(serveCtx)
	parts.controller.AddObserver(hub)

	runErr := make(chan error, 1)
	go func() {
		err := parts.controller.Run(serveCtx, session.ManualMode{})
		cancel()
		runErr <- err
	}()

	stopControl := serveControl(serveCtx, owner, parts.controller)
	srv := server.New(server.Options{
		Addr:      cfg.Server.Addr,
		StaticDir: cfg.Server.StaticDir,
		Commands:  parts.controller,
		Hub:       hub,
		Logger:    logger,
	})
	fmt.Fprintf(r.Stdout, "serving %s on %s\n", cfg.Server.StaticDir, cfg.Server.Addr)
	serveErr := srv.ListenAndServe(serveCtx)

	cancel()
	sessionErr := <-runErr
	controlErr := stopControl()

	switch {
	case errors.Is(serveErr, server.ErrPortInUse):
		fmt.Fprintf(r.Stderr, "error: port %s is already in use; stop the other server or set server.addr\n", cfg.Server.Addr)
		return 1
	case serveErr != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", serveErr)
		return 1
	case sessionErr != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", sessionErr)
		return 1
	case controlErr != nil:
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", controlErr)
		return 1
	}
	return 0
}

func (r Runner) commandTranscribe(ctx context.Context, path string, cfg config.Config, logger *slog.Logger) int {
	transcriber, err := recognize.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	result, err := transcriber.Transcribe(ctx, recognize.FromFile(path))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	switch result.Outcome {
	case recognize.OutcomeRecognized:
		fmt.Fprintln(r.Stdout, result.Text)
		return 0
	case recognize.OutcomeUnavailable:
		fmt.Fprintln(r.Stderr, "error: speech service unavailable")
		return 1
	default:
		fmt.Fprintln(r.Stderr, "error: could not understand audio")
		return 1
	}
}
