package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"mastery-tracker/internal/config"
	"mastery-tracker/internal/database"
	"mastery-tracker/internal/domain"
	"mastery-tracker/internal/export"
	"mastery-tracker/internal/repository"

	"github.com/rs/zerolog"
)

const usage = `Usage: masteryctl <command> [flags]

Commands:
  totals                                   mastery per champion across accounts
  list    --account=ACCOUNT                records of one account
  get     --account=ACCOUNT --champion=C   one record
  add|set --account=ACCOUNT --champion=C --mastery=N
  remove  --account=ACCOUNT --champion=C
  export  [--kind=all|totals] [--out=FILE]
  summary [--out=FILE]
  status  [--set=STATUS] [--meta=key=value,...]
  backup  [--dir=DIR]

Global flag:
  --db=PATH   database file (default $DB_PATH or mastery.db)
`

var errUsage = errors.New("usage")

var commands = map[string]bool{
	"totals": true, "list": true, "get": true, "add": true, "set": true,
	"remove": true, "export": true, "summary": true, "status": true, "backup": true,
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.WarnLevel)

	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, logger))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, logger zerolog.Logger) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]
	if !commands[cmd] {
		fmt.Fprint(stderr, usage)
		return 2
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		dbPath   = fs.String("db", "", "database file")
		account  = fs.String("account", "", "account name")
		champion = fs.String("champion", "", "champion name")
		mastery  = fs.String("mastery", "", "mastery points")
		kind     = fs.String("kind", "all", "export kind: all or totals")
		out      = fs.String("out", "", "output file, stdout when empty")
		setTo    = fs.String("set", "", "new status")
		meta     = fs.String("meta", "", "status meta as key=value pairs")
		dir      = fs.String("dir", "", "backup directory")
	)
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	cfg := config.LoadStore(logger)
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	db, err := database.Open(cfg.DBPath, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer db.Close()

	c := &cli{
		store:  repository.NewManualMasteryRepository(db, cfg, logger),
		status: repository.NewStatusRepository(db, logger),
		stdout: stdout,
	}

	switch cmd {
	case "totals":
		err = c.totals(ctx)
	case "list":
		err = c.list(ctx, *account)
	case "get":
		err = c.get(ctx, *account, *champion)
	case "add", "set":
		err = c.upsert(ctx, *account, *champion, *mastery)
	case "remove":
		err = c.remove(ctx, *account, *champion)
	case "export":
		err = c.export(ctx, *kind, *out)
	case "summary":
		err = c.summary(ctx, *out)
	case "status":
		err = c.statusCmd(ctx, *setTo, *meta)
	case "backup":
		target := *dir
		if target == "" {
			target = cfg.BackupDir
		}
		err = c.backup(ctx, target)
	default:
		err = errUsage
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(stderr, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

type cli struct {
	store  *repository.ManualMasteryRepository
	status *repository.StatusRepository
	stdout io.Writer
}

func (c *cli) printRecord(r *domain.ManualRecord) {
	if r == nil {
		fmt.Fprintln(c.stdout, "No record found.")
		return
	}
	fmt.Fprintf(c.stdout, "%s | %s | %s | %s\n",
		r.Account, r.Champion, export.FormatPoints(r.Mastery), r.UpdatedAt.Format(time.RFC3339))
}

func (c *cli) totals(ctx context.Context) error {
	totals, err := c.store.TotalsByChampion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Top champions (all accounts):")
	for _, t := range totals {
		fmt.Fprintf(c.stdout, " - %s: %s\n", t.Champion, export.FormatPoints(t.Mastery))
	}
	return nil
}

func (c *cli) list(ctx context.Context, account string) error {
	if account == "" {
		return errUsage
	}
	records, err := c.store.ListByAccount(ctx, account)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(c.stdout, "No records for %s.\n", account)
		return nil
	}
	fmt.Fprintf(c.stdout, "Records for %s:\n", account)
	for _, r := range records {
		fmt.Fprintf(c.stdout, " - %s: %s (updated %s)\n",
			r.Champion, export.FormatPoints(r.Mastery), r.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func (c *cli) get(ctx context.Context, account, champion string) error {
	if account == "" || champion == "" {
		return errUsage
	}
	rec, err := c.store.Get(ctx, account, champion)
	if err != nil {
		return err
	}
	c.printRecord(rec)
	return nil
}

func (c *cli) upsert(ctx context.Context, account, champion, mastery string) error {
	if account == "" || champion == "" || mastery == "" {
		return errUsage
	}
	n, err := strconv.ParseFloat(mastery, 64)
	if err != nil {
		return fmt.Errorf("invalid mastery %q", mastery)
	}
	rec, err := c.store.Upsert(ctx, account, champion, n)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Saved:")
	c.printRecord(rec)
	return nil
}

func (c *cli) remove(ctx context.Context, account, champion string) error {
	if account == "" || champion == "" {
		return errUsage
	}
	removed, err := c.store.Remove(ctx, account, champion)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintln(c.stdout, "Record removed.")
	} else {
		fmt.Fprintln(c.stdout, "No matching record to remove.")
	}
	return nil
}

func (c *cli) export(ctx context.Context, kind, out string) error {
	return c.writeTo(out, func(w io.Writer) error {
		switch kind {
		case "all":
			records, err := c.store.All(ctx)
			if err != nil {
				return err
			}
			return export.RecordsCSV(w, records)
		case "totals":
			totals, err := c.store.TotalsByChampion(ctx)
			if err != nil {
				return err
			}
			return export.TotalsCSV(w, totals)
		default:
			return fmt.Errorf("unknown export kind %q", kind)
		}
	})
}

func (c *cli) summary(ctx context.Context, out string) error {
	return c.writeTo(out, func(w io.Writer) error {
		return export.Summary(ctx, c.store, w)
	})
}

func (c *cli) statusCmd(ctx context.Context, setTo, meta string) error {
	var (
		st  *domain.Status
		err error
	)
	if setTo != "" {
		st, err = c.status.Set(ctx, setTo, parseMeta(meta))
	} else {
		st, err = c.status.Get(ctx)
	}
	if err != nil {
		return err
	}
	updated := "never"
	if st.UpdatedAt != nil {
		updated = st.UpdatedAt.Format(time.RFC3339)
	}
	fmt.Fprintf(c.stdout, "status: %s (updated %s)\n", st.Status, updated)
	for k, v := range st.Meta {
		fmt.Fprintf(c.stdout, "  %s=%s\n", k, v)
	}
	return nil
}

func (c *cli) backup(ctx context.Context, dir string) error {
	if dir == "" {
		return errors.New("no backup directory: pass --dir or set BACKUP_DIR")
	}
	path, err := c.store.Backup(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Backup written: %s\n", path)
	return nil
}

// writeTo runs fn against stdout, or a file that is only created on success.
func (c *cli) writeTo(out string, fn func(io.Writer) error) error {
	if out == "" {
		return fn(c.stdout)
	}
	var b strings.Builder
	if err := fn(&b); err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(c.stdout, "Written: %s\n", out)
	return nil
}

func parseMeta(s string) map[string]string {
	meta := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k != "" {
			meta[k] = v
		}
	}
	return meta
}
