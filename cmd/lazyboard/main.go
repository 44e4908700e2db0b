package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/Joseda-hg/lazyboard/internal/config"
	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/importer"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/report"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
	"github.com/Joseda-hg/lazyboard/internal/tui"
	"github.com/Joseda-hg/lazyboard/internal/version"
	"github.com/Joseda-hg/lazyboard/internal/web"
)

func main() {
	configPathFlag := flag.String("config", "", "config file path")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	webFlag := flag.Bool("web", false, "enable web server")
	webOnlyFlag := flag.Bool("web-only", false, "run web server only")
	portFlag := flag.Int("port", 0, "web server port")
	projectFlag := flag.String("project", "", "project to open, import into or print")
	importFlag := flag.String("import", "", "import a yaml task tree into the project and exit")
	treeFlag := flag.Bool("tree", false, "print the project tree and exit")
	queryFlag := flag.String("q", "", "tree: search text")
	statusFlag := flag.String("status", "", "tree: comma separated statuses")
	priorityFlag := flag.String("priority", "", "tree: comma separated priorities")
	assigneeFlag := flag.String("assignee", "", "tree: comma separated assignees")
	dueFromFlag := flag.String("due-from", "", "tree: due on or after YYYY-MM-DD")
	dueToFlag := flag.String("due-to", "", "tree: due on or before YYYY-MM-DD")
	debugFlag := flag.Bool("debug", false, "debug logging")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.String())
		return
	}

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		lgr.Fatalf("[ERROR] %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		lgr.Fatalf("[ERROR] load config: %v", err)
	}

	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = config.DefaultDBPath(cfgPath)
	}
	if *webFlag || *webOnlyFlag {
		cfg.WebEnabled = true
	}
	if *portFlag != 0 {
		cfg.WebPort = *portFlag
	}
	if *debugFlag {
		cfg.Debug = true
	}
	setupLog(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		lgr.Fatalf("[ERROR] %v", err)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		lgr.Fatalf("[ERROR] save config: %v", err)
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		lgr.Fatalf("[ERROR] open store: %v", err)
	}
	defer store.DB.Close()
	lgr.Printf("[DEBUG] using db %s", cfg.DBPath)

	ctx := context.Background()
	projectName := strings.TrimSpace(*projectFlag)
	if projectName == "" {
		projectName = cfg.DefaultProject
	}
	project, err := store.EnsureProject(ctx, projectName)
	if err != nil {
		lgr.Fatalf("[ERROR] project %q: %v", projectName, err)
	}

	if *importFlag != "" {
		if err := importFile(ctx, store, project, *importFlag); err != nil {
			lgr.Fatalf("[ERROR] import: %v", err)
		}
		return
	}

	if *treeFlag {
		criteria := model.FilterCriteria{
			SearchText: *queryFlag,
			Statuses:   splitList(*statusFlag),
			Priorities: splitList(*priorityFlag),
			Assignees:  splitList(*assigneeFlag),
			DueFrom:    *dueFromFlag,
			DueTo:      *dueToFlag,
		}
		if err := printTree(ctx, store, project, criteria); err != nil {
			lgr.Fatalf("[ERROR] print tree: %v", err)
		}
		return
	}

	if cfg.WebEnabled {
		addr := fmt.Sprintf(":%d", cfg.WebPort)
		handler := web.NewServer(store, lgr.Default()).Handler()
		if *webOnlyFlag {
			lgr.Printf("[INFO] web server running at http://localhost%s", addr)
			if err := http.ListenAndServe(addr, handler); err != nil {
				lgr.Fatalf("[ERROR] web server: %v", err)
			}
			return
		}

		go func() {
			lgr.Printf("[INFO] web server running at http://localhost%s", addr)
			if err := http.ListenAndServe(addr, handler); err != nil {
				lgr.Printf("[WARN] web server error: %v", err)
			}
		}()
	}

	if err := tui.Run(store, project.Name, lgr.Default()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLog(debug bool) {
	if debug {
		lgr.Setup(lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.CallerFile)
		return
	}
	lgr.Setup(lgr.Msec, lgr.LevelBraces)
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(dbPath string) (*db.Store, error) {
	if dbPath != ":memory:" {
		if err := config.EnsureDir(dbPath); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	return db.NewStore(sqlDB), nil
}

func importFile(ctx context.Context, store *db.Store, project model.Project, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	count, err := importer.Import(ctx, store, project.ID, string(data), nil)
	if err != nil {
		return err
	}
	lgr.Printf("[INFO] imported %d tasks into %q", count, project.Name)
	return nil
}

func printTree(ctx context.Context, store *db.Store, project model.Project, criteria model.FilterCriteria) error {
	forest, err := store.LoadForest(ctx, project.ID)
	if err != nil {
		return err
	}
	summaries, err := store.TimeSummaries(ctx, project.ID)
	if err != nil {
		return err
	}
	filtered := tasktree.Filter(forest, criteria)
	fmt.Printf("%s\n", project.Name)
	if err := report.PrintForest(os.Stdout, filtered, summaries); err != nil {
		return err
	}
	return report.PrintSummary(os.Stdout, filtered)
}

func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
