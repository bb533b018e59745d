// Command slatesync is a CLI for the document sync service.
//
// Sub-commands:
//
//	slatesync register <code>          Pair this machine with an account
//	slatesync sync                     Pull the latest document list
//	slatesync ls [path]                List a folder
//	slatesync put <file> [folder]      Upload a PDF or EPUB
//	slatesync get <path|id>            Download a document's file
//	slatesync rename <path|id> <name>  Change a document's display name
//	slatesync mv <path|id> <folder>    Move a document (folder "trash" trashes it)
//	slatesync rm <path|id>             Remove a document from the index
//	slatesync status                   Show remote root and cache state
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/slatesync/slatesync/internal/config"
	"github.com/slatesync/slatesync/internal/logging"
	"github.com/slatesync/slatesync/internal/metrics"
	"github.com/slatesync/slatesync/pkg/cache"
	"github.com/slatesync/slatesync/pkg/client"
	"github.com/slatesync/slatesync/pkg/document"
	"github.com/slatesync/slatesync/pkg/retry"
	"github.com/slatesync/slatesync/pkg/tree"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()
	initLogging(cfg)
	defer logging.Sync()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			http.ListenAndServe(cfg.MetricsAddr, mux)
		}()
	}

	switch os.Args[1] {
	case "register":
		cmdRegister(cfg, os.Args[2:])
	case "sync":
		cmdSync(cfg, os.Args[2:])
	case "ls":
		cmdLs(cfg, os.Args[2:])
	case "put":
		cmdPut(cfg, os.Args[2:])
	case "get":
		cmdGet(cfg, os.Args[2:])
	case "rename":
		cmdRename(cfg, os.Args[2:])
	case "mv":
		cmdMv(cfg, os.Args[2:])
	case "rm":
		cmdRm(cfg, os.Args[2:])
	case "status":
		cmdStatus(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: slatesync <command> [args]

Commands:
  register <code>          Pair this machine with an account
  sync                     Pull the latest document list
  ls [path]                List a folder
  put <file> [folder]      Upload a PDF or EPUB
  get <path|id> [-o file]  Download a document's file
  rename <path|id> <name>  Change a document's display name
  mv <path|id> <folder>    Move a document (folder "trash" trashes it)
  rm <path|id>             Remove a document from the index
  status                   Show remote root and cache state
`)
}

func initLogging(cfg *config.Config) {
	format := cfg.LogFormat
	if format == "" {
		format = "json"
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "console"
		}
	}
	err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     format,
		OutputPath: "stderr",
	})
	if err != nil {
		logging.InitDefault()
		logging.Warn("falling back to default logger", zap.Error(err))
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// newClient builds a client with the local cache attached and a valid
// session token installed, refreshing the session from the device token
// when the saved one is missing or about to expire.
func newClient(ctx context.Context, cfg *config.Config) *client.Client {
	cachePath := cfg.CachePath
	if cachePath == "" {
		p, err := cache.DefaultPath()
		if err != nil {
			fatal("resolve cache path: %v", err)
		}
		cachePath = p
	}
	cc := cache.New(cache.NewFileStore(cachePath))
	cc.Load()

	tf, err := client.LoadToken(cfg.TokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			fatal("not registered. Run 'slatesync register <code>' first")
		}
		fatal("load token file: %v", err)
	}

	c := client.New(client.Config{
		StorageURL:   cfg.StorageURL,
		AuthURL:      cfg.AuthURL,
		AuthToken:    tf.SessionToken,
		DeviceToken:  tf.DeviceToken,
		Timeout:      cfg.HTTPTimeout,
		CommitConfig: retry.Config{MaxAttempts: cfg.CommitAttempts, InitialWait: 50 * time.Millisecond, MaxWait: 2 * time.Second, Multiplier: 2.0, Jitter: 0.2},
		FanOut:       cfg.FanOut,
		Cache:        cc,
	})

	if client.TokenExpired(tf.SessionToken, 5*time.Minute) {
		token, err := c.RefreshToken(ctx)
		if err != nil {
			fatal("refresh session: %v", err)
		}
		tf.SessionToken = token
		if err := client.SaveToken(cfg.TokenPath, tf); err != nil {
			fatal("save token file: %v", err)
		}
	}
	return c
}

func cmdRegister(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fatal("usage: slatesync register <code>")
	}

	ctx := context.Background()
	c := client.New(client.Config{
		StorageURL: cfg.StorageURL,
		AuthURL:    cfg.AuthURL,
		Timeout:    cfg.HTTPTimeout,
	})

	deviceToken, err := c.RegisterDevice(ctx, fs.Arg(0))
	if err != nil {
		fatal("%v", err)
	}
	sessionToken, err := c.RefreshToken(ctx)
	if err != nil {
		fatal("%v", err)
	}

	tf := &client.TokenFile{DeviceToken: deviceToken, SessionToken: sessionToken}
	if err := client.SaveToken(cfg.TokenPath, tf); err != nil {
		fatal("save token file: %v", err)
	}
	path := cfg.TokenPath
	if path == "" {
		path = client.TokenFilePath()
	}
	fmt.Printf("Registered. Credentials saved to %s\n", path)
}

// syncTree runs a sync and returns the resulting hierarchy.
func syncTree(ctx context.Context, c *client.Client) *tree.Tree {
	if _, err := c.Sync(ctx); err != nil {
		fatal("sync: %v", err)
	}
	return c.Cache().Tree()
}

// resolve finds a document by slash path first, then by raw id.
func resolve(t *tree.Tree, arg string) *tree.Node {
	if n := t.FindByPath(arg); n != nil {
		return n
	}
	return t.FindByID(arg)
}

func cmdSync(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	fs.Parse(args)

	ctx := context.Background()
	c := newClient(ctx, cfg)
	docs, err := c.Sync(ctx)
	if err != nil {
		fatal("sync: %v", err)
	}
	fmt.Printf("Synced %d documents (root %s)\n", len(docs), c.Cache().Hash())
}

func cmdLs(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	long := fs.Bool("l", false, "Long listing with ids and timestamps")
	fs.Parse(args)

	path := "/"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	ctx := context.Background()
	c := newClient(ctx, cfg)
	t := syncTree(ctx, c)

	node := t.FindByPath(path)
	if node == nil {
		fatal("no such folder: %s", path)
	}
	if !node.IsDir() {
		fatal("not a folder: %s", path)
	}

	for _, child := range tree.ListDir(node) {
		name := child.Name()
		if child.IsDir() {
			name += "/"
		}
		if *long {
			fmt.Printf("%-38s %-20s %s\n", child.ID(), child.Document.LastModified.Format(time.RFC3339), name)
		} else {
			fmt.Println(name)
		}
	}
}

func cmdPut(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fatal("usage: slatesync put <file> [folder]")
	}

	file := fs.Arg(0)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	if ext != "pdf" && ext != "epub" {
		fatal("unsupported file type %q, want .pdf or .epub", filepath.Ext(file))
	}
	data, err := os.ReadFile(file)
	if err != nil {
		fatal("%v", err)
	}
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	ctx := context.Background()
	c := newClient(ctx, cfg)

	parentID := ""
	if fs.NArg() > 1 {
		t := syncTree(ctx, c)
		folder := t.FindByPath(fs.Arg(1))
		if folder == nil || !folder.IsDir() {
			fatal("no such folder: %s", fs.Arg(1))
		}
		parentID = folder.ID()
	}

	docID, err := c.CreateDocument(ctx, name, ext, data, parentID)
	if err != nil {
		fatal("upload: %v", err)
	}
	fmt.Printf("Uploaded %s as %s\n", file, docID)
}

func cmdGet(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default: <name>.<ext>)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fatal("usage: slatesync get <path|id> [-o file]")
	}

	ctx := context.Background()
	c := newClient(ctx, cfg)
	t := syncTree(ctx, c)

	node := resolve(t, fs.Arg(0))
	if node == nil {
		fatal("no such document: %s", fs.Arg(0))
	}
	if node.IsDir() {
		fatal("%s is a folder", fs.Arg(0))
	}

	data, ext, err := c.Download(ctx, node.ID())
	if err != nil {
		fatal("download: %v", err)
	}

	path := *out
	if path == "" {
		path = node.Name() + "." + ext
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fatal("write %s: %v", path, err)
	}
	fmt.Printf("Saved %s (%d bytes)\n", path, len(data))
}

func cmdRename(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 2 {
		fatal("usage: slatesync rename <path|id> <new-name>")
	}

	ctx := context.Background()
	c := newClient(ctx, cfg)
	t := syncTree(ctx, c)

	node := resolve(t, fs.Arg(0))
	if node == nil {
		fatal("no such document: %s", fs.Arg(0))
	}
	if err := c.RenameDocument(ctx, node.ID(), fs.Arg(1)); err != nil {
		fatal("rename: %v", err)
	}
	fmt.Printf("Renamed %s to %s\n", node.Name(), fs.Arg(1))
}

func cmdMv(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mv", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 2 {
		fatal("usage: slatesync mv <path|id> <folder>")
	}

	ctx := context.Background()
	c := newClient(ctx, cfg)
	t := syncTree(ctx, c)

	node := resolve(t, fs.Arg(0))
	if node == nil {
		fatal("no such document: %s", fs.Arg(0))
	}

	dest := fs.Arg(1)
	parentID := ""
	switch dest {
	case "/", "":
		// top level
	case document.TrashParent:
		parentID = document.TrashParent
	default:
		folder := t.FindByPath(dest)
		if folder == nil || !folder.IsDir() {
			fatal("no such folder: %s", dest)
		}
		parentID = folder.ID()
	}

	if err := c.MoveDocument(ctx, node.ID(), parentID); err != nil {
		fatal("move: %v", err)
	}
	fmt.Printf("Moved %s to %s\n", node.Name(), dest)
}

func cmdRm(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fatal("usage: slatesync rm <path|id>")
	}

	ctx := context.Background()
	c := newClient(ctx, cfg)
	t := syncTree(ctx, c)

	node := resolve(t, fs.Arg(0))
	if node == nil {
		fatal("no such document: %s", fs.Arg(0))
	}
	if err := c.DeleteDocument(ctx, node.ID()); err != nil {
		fatal("remove: %v", err)
	}
	fmt.Printf("Removed %s\n", node.Name())
}

func cmdStatus(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	ctx := context.Background()
	c := newClient(ctx, cfg)

	root, err := c.GetRoot(ctx)
	if err != nil {
		fatal("get root: %v", err)
	}

	fmt.Printf("Remote root:  %s\n", root.Hash)
	fmt.Printf("Generation:   %d\n", root.Generation)
	fmt.Printf("Cached root:  %s\n", c.Cache().Hash())
	if c.Cache().Hash() == root.Hash {
		fmt.Printf("Cache:        up to date (%d documents)\n", len(c.Cache().Documents()))
	} else {
		fmt.Println("Cache:        stale, run 'slatesync sync'")
	}
}
