package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/byte4ever/failover"
	"github.com/byte4ever/failover/httpx"
	"github.com/byte4ever/failover/otter"
	"github.com/byte4ever/failover/todo"
	"github.com/byte4ever/failover/zaphooks"
)

// Environment variables read when the matching flag is not set.
const (
	envConfig     = "TODO_CONFIG"
	envCandidates = "TODO_API_CANDIDATES"
)

const defaultStrategy = "todo-api"

var errUsage = errors.New("usage: todo [-config FILE] [-candidates URL,URL] [-timeout D] [-verbose] list|people|add|edit|done|rm [flags]")

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	strategy   string
	candidates string
	timeout    time.Duration
	verbose    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts globalOptions
	fs.StringVar(&opts.configPath, "config", os.Getenv(envConfig), "configuration file (JSON or TOML)")
	fs.StringVar(&opts.strategy, "strategy", defaultStrategy, "strategy name in the configuration file")
	fs.StringVar(&opts.candidates, "candidates", os.Getenv(envCandidates), "comma-separated API base URLs, primary first")
	fs.DurationVar(&opts.timeout, "timeout", 0, "per-attempt timeout (0 keeps the configured value)")
	fs.BoolVar(&opts.verbose, "verbose", false, "log every attempt to stderr")

	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag already reported it
	}

	if fs.NArg() == 0 {
		return errUsage
	}

	logger := newLogger(opts.verbose, stderr)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	strategy, err := buildStrategy(opts, logger)
	if err != nil {
		return err
	}

	board := todo.NewBoard(todo.NewClient(strategy, httpx.NewClient(nil, nil)))

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "list":
		return runList(ctx, board, strategy, cmdArgs, stdout, stderr)
	case "people":
		return runPeople(ctx, board, stdout)
	case "add":
		return runAdd(ctx, board, cmdArgs, stdout, stderr)
	case "edit":
		return runEdit(ctx, board, cmdArgs, stdout, stderr)
	case "done":
		return runDone(ctx, board, cmdArgs, stdout, stderr)
	case "rm":
		return runRemove(ctx, board, cmdArgs, stdout, stderr)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// newLogger writes attempt-level logs to stderr when verbose, otherwise
// only errors in the production encoding.
func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	level := zapcore.ErrorLevel
	encoder := zapcore.NewJSONEncoder(encCfg)

	if verbose {
		encCfg = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(stderr), level))
}

// buildStrategy resolves the candidate list from, in order: -candidates or
// TODO_API_CANDIDATES, the configuration file, the local development
// defaults.
func buildStrategy(opts globalOptions, logger *zap.Logger) (*failover.Strategy, error) {
	reg := failover.NewRegistry()

	extra := []failover.Option{
		failover.WithHooks(zaphooks.New(logger)),
		failover.WithRegistry(reg),
	}
	if opts.timeout > 0 {
		extra = append(extra, failover.WithAttemptTimeout(opts.timeout))
	}

	if opts.candidates != "" {
		candidates, err := failover.NewCandidateList(strings.Split(opts.candidates, ",")...)
		if err != nil {
			return nil, fmt.Errorf("candidates: %w", err)
		}

		return failover.NewStrategy(opts.strategy, candidates, append(failover.Interactive(), extra...)...), nil
	}

	if opts.configPath != "" {
		cfgReg, err := failover.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err //nolint:wrapcheck // already prefixed
		}

		return failover.GetStrategy(cfgReg, opts.strategy, extra...) //nolint:wrapcheck // already prefixed
	}

	return failover.NewStrategy(
		opts.strategy,
		failover.LocalDevCandidates(),
		append(failover.Interactive(), extra...)...,
	), nil
}

func runList(
	ctx context.Context,
	board *todo.Board,
	strategy *failover.Strategy,
	args []string,
	stdout, stderr io.Writer,
) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)

	done := fs.String("done", "all", "all, done or ongoing")
	person := fs.String("person", "", "only todos assigned to this person")
	watch := fs.Duration("watch", 0, "refresh at this interval until interrupted")

	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag already reported it
	}

	doneFilter, err := todo.ParseDoneFilter(*done)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}

	filter := todo.Filter{Done: doneFilter, Person: *person}

	if *watch <= 0 {
		board.SetFilter(filter)
		if err = board.Refresh(ctx); err != nil {
			return err //nolint:wrapcheck // already prefixed
		}

		printTodos(stdout, board.Filtered())

		return nil
	}

	// Long-lived: keep the last good lists around for when every candidate
	// is down.
	stale := failover.NewStaleCache(
		otter.MustNew[string, []byte](failover.CacheConfig{MaxSize: 16}),
		time.Hour,
		failover.OnStaleServed[string, []byte](func(key string, err error) {
			fmt.Fprintf(stderr, "serving cached %s: %v\n", key, err)
		}),
	)

	watched := todo.NewBoard(todo.NewClient(strategy, httpx.NewClient(nil, nil), todo.WithStaleReads(stale)))
	watched.SetFilter(filter)

	ticker := time.NewTicker(*watch)
	defer ticker.Stop()

	for {
		if err = watched.Refresh(ctx); err != nil {
			fmt.Fprintln(stderr, "refresh:", err)
		} else {
			printTodos(stdout, watched.Filtered())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runPeople(ctx context.Context, board *todo.Board, stdout io.Writer) error {
	if err := board.Refresh(ctx); err != nil {
		return err //nolint:wrapcheck // already prefixed
	}

	for _, p := range board.People() {
		fmt.Fprintln(stdout, p.Name)
	}

	return nil
}

func runAdd(ctx context.Context, board *todo.Board, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(stderr)

	assign := fs.String("assign", "", "person to assign the todo to")

	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag already reported it
	}

	desc := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if desc == "" {
		return errors.New("add: description is required")
	}

	created, err := board.Create(ctx, todo.Todo{Description: desc, AssignedTo: *assign})
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}

	printTodos(stdout, []todo.Todo{created})

	return nil
}

func runEdit(ctx context.Context, board *todo.Board, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	id := fs.Int("id", 0, "todo id")
	desc := fs.String("desc", "", "new description")
	assign := fs.String("assign", "", "new assignee (empty to unassign)")
	done := fs.String("done", "", "true or false")

	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag already reported it
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["desc"] && strings.TrimSpace(*desc) == "" {
		return errors.New("edit: -desc cannot be empty")
	}

	current, err := findTodo(ctx, board, *id)
	if err != nil {
		return err
	}

	if set["desc"] {
		current.Description = *desc
	}

	// -assign "" unassigns.
	if set["assign"] {
		current.AssignedTo = *assign
	}

	switch *done {
	case "":
	case "true":
		current.Done = true
	case "false":
		current.Done = false
	default:
		return fmt.Errorf("edit: -done must be true or false, got %q", *done)
	}

	updated, err := board.Update(ctx, current)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}

	printTodos(stdout, []todo.Todo{updated})

	return nil
}

func runDone(ctx context.Context, board *todo.Board, args []string, stdout, stderr io.Writer) error {
	id, err := parseID("done", args, stderr)
	if err != nil {
		return err
	}

	current, err := findTodo(ctx, board, id)
	if err != nil {
		return err
	}

	current.Done = true

	updated, err := board.Update(ctx, current)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}

	printTodos(stdout, []todo.Todo{updated})

	return nil
}

func runRemove(ctx context.Context, board *todo.Board, args []string, stdout, stderr io.Writer) error {
	id, err := parseID("rm", args, stderr)
	if err != nil {
		return err
	}

	if err = board.Delete(ctx, id); err != nil {
		return err //nolint:wrapcheck // already prefixed
	}

	fmt.Fprintf(stdout, "deleted %d\n", id)

	return nil
}

func parseID(name string, args []string, stderr io.Writer) (int, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	id := fs.Int("id", 0, "todo id")

	if err := fs.Parse(args); err != nil {
		return 0, err //nolint:wrapcheck // flag already reported it
	}

	if *id <= 0 {
		return 0, fmt.Errorf("%s: -id is required", name)
	}

	return *id, nil
}

// findTodo loads the board and returns the todo with id, so that edits
// patch a complete item.
func findTodo(ctx context.Context, board *todo.Board, id int) (todo.Todo, error) {
	if id <= 0 {
		return todo.Todo{}, errors.New("-id is required")
	}

	if err := board.Refresh(ctx); err != nil {
		return todo.Todo{}, err //nolint:wrapcheck // already prefixed
	}

	t, ok := board.Todo(id)
	if !ok {
		return todo.Todo{}, fmt.Errorf("no todo with id %d", id)
	}

	return t, nil
}

func printTodos(w io.Writer, todos []todo.Todo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush() //nolint:errcheck // terminal output

	fmt.Fprintln(tw, "ID\tDONE\tASSIGNED\tDESCRIPTION")

	for _, t := range todos {
		mark := " "
		if t.Done {
			mark = "x"
		}

		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\n", t.ID, mark, t.AssignedTo, t.Description)
	}
}
