package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/taskdeps/internal/config"
	"github.com/kazz187/taskdeps/internal/daemon"
	"github.com/kazz187/taskdeps/internal/deps"
	"github.com/kazz187/taskdeps/internal/event"
	"github.com/kazz187/taskdeps/internal/graph"
	"github.com/kazz187/taskdeps/internal/task"
	"github.com/kazz187/taskdeps/pkg/cerr"
	"github.com/kazz187/taskdeps/pkg/clog"
)

var (
	app  = kingpin.New("taskdeps", "Task dependency graph engine: validate, repair, and select concurrent work")
	file = app.Flag("file", "Path to the tasks file").Short('f').String()

	validateCmd = app.Command("validate", "Validate the dependency graph and report issues")

	fixCmd    = app.Command("fix", "Repair common dependency corruption")
	fixDryRun = fixCmd.Flag("dry-run", "Show the repairs as a diff without saving").Bool()

	nextCmd = app.Command("next", "Select ready, mutually independent tasks")
	nextN   = nextCmd.Flag("concurrency", "How many tasks to select").Short('n').Int()

	depsCmd = app.Command("deps", "Dependency edge management")

	depsAddCmd = depsCmd.Command("add", "Add a dependency")
	depsAddID  = depsAddCmd.Arg("id", "Task or subtask id (e.g. 3 or 3.2)").Required().String()
	depsAddDep = depsAddCmd.Arg("dep", "Dependency id").Required().String()

	depsRemoveCmd = depsCmd.Command("remove", "Remove a dependency")
	depsRemoveID  = depsRemoveCmd.Arg("id", "Task or subtask id").Required().String()
	depsRemoveDep = depsRemoveCmd.Arg("dep", "Dependency id").Required().String()

	listCmd = app.Command("list", "List all tasks")

	serveCmd  = app.Command("serve", "Serve the engine over HTTP and watch the tasks file")
	serveAddr = serveCmd.Flag("addr", "Address to bind to").String()
	servePort = serveCmd.Flag("port", "Port to bind to").Int()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	clog.Setup(env.SlogLevel(), true)

	tasksFile := env.TasksFile
	if *file != "" {
		tasksFile = *file
	}

	repo := task.NewYAMLRepository(tasksFile)
	bus := event.NewBus()
	service := deps.NewService(repo, bus, graph.SelectOptions{
		EligibleParentStatuses: env.EligibleParentStatuses(),
	})

	switch command {
	case validateCmd.FullCommand():
		handleValidate(service)
	case fixCmd.FullCommand():
		handleFix(service, tasksFile, *fixDryRun)
	case nextCmd.FullCommand():
		n := *nextN
		if n == 0 {
			n = env.DefaultConcurrency
		}
		handleNext(service, n)
	case depsAddCmd.FullCommand():
		handleAddDependency(service, *depsAddID, *depsAddDep)
	case depsRemoveCmd.FullCommand():
		handleRemoveDependency(service, *depsRemoveID, *depsRemoveDep)
	case listCmd.FullCommand():
		handleList(service)
	case serveCmd.FullCommand():
		handleServe(env, service, bus, tasksFile, *serveAddr, *servePort)
	}

	bus.Wait()
}

func handleValidate(service *deps.Service) {
	issues, err := service.Validate()
	if err != nil {
		fatal(err)
	}
	if len(issues) == 0 {
		color.Green("dependency graph is healthy")
		return
	}
	printIssues(issues)
	os.Exit(1)
}

func handleFix(service *deps.Service, tasksFile string, dryRun bool) {
	if dryRun {
		report, before, after, err := service.FixPreview()
		if err != nil {
			fatal(err)
		}
		if !report.Changed() {
			color.Green("nothing to fix")
			printResidual(report.Residual)
			return
		}
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(before)),
			B:        difflib.SplitLines(string(after)),
			FromFile: tasksFile,
			ToFile:   tasksFile + " (repaired)",
			Context:  3,
		})
		if err != nil {
			fatal(err)
		}
		fmt.Print(diff)
		printMutations(report.Mutations)
		printResidual(report.Residual)
		return
	}

	report, err := service.Fix(context.Background())
	if err != nil {
		fatal(err)
	}
	if !report.Changed() {
		color.Green("nothing to fix")
	} else {
		printMutations(report.Mutations)
	}
	printResidual(report.Residual)
}

func handleNext(service *deps.Service, concurrency int) {
	if concurrency > graph.MaxConcurrency {
		color.Yellow("concurrency %d exceeds the cap, clamping to %d", concurrency, graph.MaxConcurrency)
	}
	nodes, err := service.Next(context.Background(), concurrency)
	if err != nil {
		fatal(err)
	}
	if len(nodes) == 0 {
		fmt.Println("no ready tasks")
		return
	}
	for _, n := range nodes {
		fmt.Printf("%s  %s  [%s]\n", color.CyanString(n.Ref.String()), n.Title(), n.Priority())
	}
}

func handleAddDependency(service *deps.Service, id, dep string) {
	err := service.AddDependency(context.Background(), id, dep)
	switch {
	case err == nil:
		fmt.Printf("added dependency: %s -> %s\n", id, dep)
	case cerr.IsCode(err, cerr.AlreadyExists):
		color.Yellow("%v", err)
	default:
		fatal(err)
	}
}

func handleRemoveDependency(service *deps.Service, id, dep string) {
	err := service.RemoveDependency(context.Background(), id, dep)
	switch {
	case err == nil:
		fmt.Printf("removed dependency: %s -> %s\n", id, dep)
	case cerr.IsCode(err, cerr.FailedPrecondition):
		color.Yellow("%v", err)
	default:
		fatal(err)
	}
}

func handleList(service *deps.Service) {
	tasks, err := service.List()
	if err != nil {
		fatal(err)
	}
	for _, t := range tasks {
		fmt.Printf("%s  %s  [%s] deps=%s\n",
			color.CyanString(t.ID.String()), t.Title, t.Status.Normalize(), joinIDs(t.Dependencies))
		for _, st := range t.Subtasks {
			fmt.Printf("  %s.%s  %s  [%s] deps=%s\n",
				t.ID, st.ID, st.Title, st.Status.Normalize(), joinIDs(st.Dependencies))
		}
	}
}

func handleServe(env *config.Env, service *deps.Service, bus *event.Bus, tasksFile, addr string, port int) {
	d := daemon.New(daemonConfig(env, tasksFile, addr, port), service, bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nDaemon stopped gracefully")
			return
		}
		fatal(err)
	}
}

// daemonConfig resolves the daemon configuration: env values first,
// overridden by explicit flags. The tasks file is the already-resolved
// path so the watcher and the HTTP handlers agree on what they serve.
func daemonConfig(env *config.Env, tasksFile, addr string, port int) *daemon.Config {
	cfg := &daemon.Config{
		Address:            env.HTTPHost,
		Port:               env.HTTPPort,
		TasksFile:          tasksFile,
		DefaultConcurrency: env.DefaultConcurrency,
	}
	if addr != "" {
		cfg.Address = addr
	}
	if port != 0 {
		cfg.Port = port
	}
	return cfg
}

func printIssues(issues []graph.Issue) {
	for _, issue := range issues {
		switch issue.Kind {
		case graph.IssueCircularDependency:
			color.Red("%s: %s", issue.Kind, issue.Reason)
		default:
			color.Yellow("%s: %s", issue.Kind, issue.Reason)
		}
	}
}

func printMutations(mutations []graph.Mutation) {
	for _, m := range mutations {
		fmt.Printf("%s %s -> %s (%s)\n", m.Op, m.SubjectID, m.DependencyID, m.Reason)
	}
}

func printResidual(residual []graph.Issue) {
	if len(residual) == 0 {
		return
	}
	color.Yellow("remaining issues need manual resolution:")
	printIssues(residual)
}

func joinIDs(ids []task.ID) string {
	if len(ids) == 0 {
		return "[]"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
