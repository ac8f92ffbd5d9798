package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/config"
	"github.com/lumenlang/lumen/internal/diagnostics"
	"github.com/lumenlang/lumen/internal/fixture"
	"github.com/lumenlang/lumen/internal/index"
	"github.com/lumenlang/lumen/internal/pipeline"
	"github.com/lumenlang/lumen/internal/queryd"
	"github.com/lumenlang/lumen/internal/resolve"
	"github.com/lumenlang/lumen/internal/scope"
	"github.com/lumenlang/lumen/internal/typedesc"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
)

func useColor() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func paint(color, s string) string {
	if !useColor() {
		return s
	}
	return color + s + colorReset
}

// unitOwnership treats a qualified type path as owned by the unit named
// by its first segment. Unqualified names (builtins in corpora) have no
// owner.
type unitOwnership struct{}

func (unitOwnership) IsLocalType(path string, unit ast.UnitID) bool {
	idx := strings.Index(path, "::")
	if idx < 0 {
		return false
	}
	return path[:idx] == string(unit)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadOrDefault(config.ConfigFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in %s: %s\n", config.ConfigFileName, err)
		os.Exit(1)
	}
	return cfg
}

// runFixture runs the full pipeline over a corpus and returns the final
// context plus the parsed fixture.
func runFixture(path string, cfg *config.Config) (*pipeline.Context, *fixture.Fixture) {
	fx, err := fixture.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	ctx := &pipeline.Context{
		Units:     fx.Units,
		Config:    cfg,
		Ownership: unitOwnership{},
	}
	return pipeline.Default().Run(ctx), fx
}

func engineFor(ctx *pipeline.Context) *resolve.Engine {
	// The external front end supplies inherent and trait tables; a
	// corpus run exercises the extension tier only.
	return resolve.NewEngine(nil, nil, nil)
}

func scopeFor(ctx *pipeline.Context, unit ast.UnitID) *scope.Scope {
	if ctx.Collector == nil {
		return nil
	}
	return ctx.Collector.RootScope(unit)
}

// runQuery executes one recorded query and reports the outcome together
// with a printable form of the query subject.
func runQuery(ctx *pipeline.Context, engine *resolve.Engine, q fixture.Query) (resolve.Resolution, string) {
	sc := scopeFor(ctx, q.Unit)
	if q.Form == fixture.ByPath {
		return engine.ResolveAsFunction(q.Path, sc), q.Path
	}
	receiver := ctx.Registry.Intern(q.Receiver, nil)
	return engine.Resolve(receiver, q.Method, sc), fmt.Sprintf("%s.%s", receiver, q.Method)
}

func printResolution(q fixture.Query, subject string, r resolve.Resolution) {
	site := fmt.Sprintf("%s:%d", q.File, q.Token.Line)
	switch r.Kind {
	case resolve.Resolved:
		fmt.Printf("%s %s %s -> %s [%s]\n", paint(colorGreen, "ok"), site, subject, r.Method.Origin(), r.Tier)
	case resolve.Ambiguous:
		names := make([]string, len(r.Candidates))
		for i, c := range r.Candidates {
			names[i] = c.Origin()
		}
		fmt.Printf("%s %s %s: candidates %s\n", paint(colorRed, "ambiguous"), site, subject, strings.Join(names, ", "))
	default:
		fmt.Printf("%s %s %s\n", paint(colorRed, "not found"), site, subject)
	}
}

func printDiagnostics(diags []*diagnostics.DiagnosticError, limit int) {
	for i, d := range diags {
		if limit > 0 && i == limit {
			fmt.Fprintf(os.Stderr, "... and %d more\n", len(diags)-limit)
			return
		}
		color := colorRed
		if d.Severity == diagnostics.SeverityWarning {
			color = colorYellow
		}
		fmt.Fprintf(os.Stderr, "- %s\n", paint(color, d.Error()))
	}
}

// checkExpectations compares the produced diagnostics against the
// fixture's expect section. Both directions count: missing expected
// diagnostics and unexpected produced ones.
func checkExpectations(fx *fixture.Fixture, diags []*diagnostics.DiagnosticError) bool {
	type key struct {
		code string
		file string
		line int
	}
	produced := make(map[key]int)
	for _, d := range diags {
		produced[key{string(d.Code), d.File, d.Token.Line}]++
	}

	ok := true
	for _, want := range fx.Expect {
		k := key{want.Code, want.File, want.Line}
		if produced[k] == 0 {
			fmt.Fprintf(os.Stderr, "missing expected diagnostic %s at %s:%d\n", want.Code, want.File, want.Line)
			ok = false
			continue
		}
		produced[k]--
	}
	for k, n := range produced {
		if n > 0 {
			fmt.Fprintf(os.Stderr, "unexpected diagnostic %s at %s:%d\n", k.code, k.file, k.line)
			ok = false
		}
	}
	return ok
}

func exportIndex(path string, ctx *pipeline.Context, fx *fixture.Fixture, engine *resolve.Engine) {
	exp, err := index.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %s\n", err)
		os.Exit(1)
	}
	defer exp.Close()

	if err := exp.ExportTable(ctx.Table); err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting blocks: %s\n", err)
		os.Exit(1)
	}
	for _, q := range fx.Queries {
		r, _ := runQuery(ctx, engine, q)
		site := fmt.Sprintf("%s:%d", q.File, q.Token.Line)
		var receiver typedesc.Descriptor
		method := q.Method
		if q.Form == fixture.ByReceiver {
			receiver = ctx.Registry.Intern(q.Receiver, nil)
		} else {
			method = q.Path
		}
		if err := exp.ExportResolution(string(q.Unit), site, receiver, method, r); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting resolution: %s\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("index session %s written to %s\n", exp.Session(), path)
}

func handleCheck(args []string) {
	var indexPath string
	var paths []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-index" || args[i] == "--index":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "-index needs a database path")
				os.Exit(1)
			}
			i++
			indexPath = args[i]
		case strings.HasPrefix(args[i], "-"):
			fmt.Fprintf(os.Stderr, "Unknown flag %q\n", args[i])
			os.Exit(1)
		default:
			paths = append(paths, args[i])
		}
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s check [-index db] <corpus.txtar> [more...]\n", os.Args[0])
		os.Exit(1)
	}

	cfg := loadConfig()
	if indexPath == "" {
		indexPath = cfg.Index
	}
	failed := false
	for _, path := range paths {
		ctx, fx := runFixture(path, cfg)
		engine := engineFor(ctx)

		fmt.Printf("=== %s ===\n", path)
		for _, q := range fx.Queries {
			r, subject := runQuery(ctx, engine, q)
			printResolution(q, subject, r)
		}
		printDiagnostics(ctx.Diagnostics, cfg.Diagnostics.Limit)

		if len(fx.Expect) > 0 {
			if !checkExpectations(fx, ctx.Diagnostics) {
				failed = true
			}
		} else {
			for _, d := range ctx.Diagnostics {
				if d.Severity == diagnostics.SeverityError {
					failed = true
					break
				}
			}
		}

		if indexPath != "" {
			exportIndex(indexPath, ctx, fx, engine)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func handleServe(args []string) {
	addr := ":9137"
	var corpus string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-addr" || args[i] == "--addr":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "-addr needs a listen address")
				os.Exit(1)
			}
			i++
			addr = args[i]
		case strings.HasPrefix(args[i], "-"):
			fmt.Fprintf(os.Stderr, "Unknown flag %q\n", args[i])
			os.Exit(1)
		default:
			corpus = args[i]
		}
	}
	if corpus == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s serve [-addr host:port] <corpus.txtar>\n", os.Args[0])
		os.Exit(1)
	}

	cfg := loadConfig()
	ctx, _ := runFixture(corpus, cfg)

	scopes := make(map[ast.UnitID]*scope.Scope, len(ctx.Units))
	for _, unit := range ctx.Units {
		scopes[unit.ID] = scopeFor(ctx, unit.ID)
	}
	server, err := queryd.NewServer(&queryd.State{
		Engine:      engineFor(ctx),
		Registry:    ctx.Registry,
		Scopes:      scopes,
		Diagnostics: ctx.Diagnostics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("serving resolution queries on %s\n", addr)
	if err := server.Serve(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %s\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [args]

Commands:
  check [-index db] <corpus.txtar>...   run resolution over a corpus
  serve [-addr host:port] <corpus>      serve queries over gRPC
`, os.Args[0])
	os.Exit(1)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if os.Getenv("LUMEN_TEST_MODE") == "1" {
		config.IsTestMode = true
	}

	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "check":
		handleCheck(os.Args[2:])
	case "serve":
		handleServe(os.Args[2:])
	case "help", "-help", "--help":
		usage()
	default:
		usage()
	}
}
