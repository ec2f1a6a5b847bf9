package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"mastery-tracker/internal/constants"
	"mastery-tracker/internal/domain"

	"golang.org/x/sync/errgroup"
)

const separator = ";"

// Source is the read side of the manual store.
type Source interface {
	All(ctx context.Context) ([]domain.ManualRecord, error)
	TotalsByChampion(ctx context.Context) ([]domain.ManualTotal, error)
}

func escape(s string) string {
	if strings.ContainsAny(s, "\",;\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func writeCSV(w io.Writer, headers []string, rows [][]string) error {
	var b strings.Builder
	writeLine := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				b.WriteString(separator)
			}
			b.WriteString(escape(f))
		}
		b.WriteByte('\n')
	}

	writeLine(headers)
	for _, row := range rows {
		writeLine(row)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RecordsCSV writes every record as account;champion;mastery;updatedAt.
func RecordsCSV(w io.Writer, records []domain.ManualRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Account,
			r.Champion,
			strconv.Itoa(r.Mastery),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(w, []string{"account", "champion", "mastery", "updatedAt"}, rows)
}

// TotalsCSV writes per-champion totals as champion;mastery.
func TotalsCSV(w io.Writer, totals []domain.ManualTotal) error {
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{t.Champion, strconv.Itoa(t.Mastery)})
	}
	return writeCSV(w, []string{"champion", "mastery"}, rows)
}

// Summary writes a plain-text overview of the manual store.
func Summary(ctx context.Context, src Source, w io.Writer) error {
	var (
		records []domain.ManualRecord
		totals  []domain.ManualTotal
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = src.All(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = src.TotalsByChampion(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	// group in first-seen order, case-insensitive like the store keys
	var order []string
	byAccount := make(map[string][]domain.ManualRecord)
	display := make(map[string]string)
	for _, r := range records {
		key := strings.ToLower(r.Account)
		if _, ok := byAccount[key]; !ok {
			order = append(order, key)
			display[key] = r.Account
		}
		byAccount[key] = append(byAccount[key], r)
	}

	var b strings.Builder
	b.WriteString("--- Mastery summary ---\n")
	fmt.Fprintf(&b, "Records: %d\n", len(records))
	fmt.Fprintf(&b, "Accounts: %d\n\n", len(order))

	fmt.Fprintf(&b, "Top %d champions by mastery:\n", constants.SummaryTopChampions)
	for i, t := range totals {
		if i == constants.SummaryTopChampions {
			break
		}
		fmt.Fprintf(&b, " - %s: %s\n", t.Champion, FormatPoints(t.Mastery))
	}

	b.WriteString("\nAccounts and their champions:\n")
	for _, key := range order {
		fmt.Fprintf(&b, "\n%s:\n", display[key])
		for _, r := range byAccount[key] {
			fmt.Fprintf(&b, "   - %s: %s\n", r.Champion, FormatPoints(r.Mastery))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatPoints groups thousands with an apostrophe, e.g. 1'234'567.
func FormatPoints(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('\'')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
