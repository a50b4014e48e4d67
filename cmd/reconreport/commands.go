package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"recon-report/internal/apperror"
	"recon-report/internal/config"
	"recon-report/internal/domain"
	"recon-report/internal/export"
	"recon-report/internal/filter"
	"recon-report/internal/fixtures"
	"recon-report/internal/gateway"
	"recon-report/internal/usecase"
)

// sourceFlags select where the reconciliation result of a one-shot command comes from.
type sourceFlags struct {
	result string
	bank   string
	ledger string
	mode   string
	sample bool
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.result, "result", "", "saved reconciliation result (JSON)")
	cmd.Flags().StringVar(&s.bank, "bank", "", "bank statement file (CSV, XLSX, PDF or image)")
	cmd.Flags().StringVar(&s.ledger, "ledger", "", "internal ledger file (CSV, XLSX, PDF or image)")
	cmd.Flags().StringVar(&s.mode, "mode", "", "matching mode: fast or precise")
	cmd.Flags().BoolVar(&s.sample, "sample", false, "use the bundled sample statement and ledger")
}

type filterFlags struct {
	from     string
	to       string
	category string
	text     string
	status   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.category, "category", "all", "all, inflow or outflow")
	cmd.Flags().StringVar(&f.text, "search", "", "case-insensitive text search")
	cmd.Flags().StringVar(&f.status, "status", "all", "all, matched, unmatched_bank or unmatched_ledger")
}

func (f *filterFlags) criteria() (filter.Criteria, error) {
	return filter.Normalize(filter.Criteria{
		StartDate: f.from,
		EndDate:   f.to,
		Category:  filter.Category(f.category),
		Text:      f.text,
		Status:    filter.Status(f.status),
	})
}

func (a *app) matcher(sample bool) usecase.Matcher {
	if sample || a.cnf.Matcher.URL == "" {
		if !sample {
			a.log.Warn("no matcher url configured, answering with the sample reconciliation")
		}
		return gateway.StaticMatcher{Payload: fixtures.SamplePayload()}
	}
	return gateway.NewHTTPMatcher(a.cnf.MatcherClient(), nil, a.log.WithField("component", "matcher"))
}

func (a *app) newSession(sample bool) *usecase.ReportSession {
	docs := gateway.NewFileDocumentRepository(a.log.WithField("component", "documents"))
	return usecase.NewReportSession(docs, a.matcher(sample), a.cnf.ReportSettings(), usecase.WithLogger(a.log))
}

// loadSession returns a session holding the result selected by the source flags.
func (a *app) loadSession(ctx context.Context, src sourceFlags) (*usecase.ReportSession, error) {
	session := a.newSession(src.sample)
	mode := domain.MatchMode(strings.ToLower(src.mode))

	switch {
	case src.result != "":
		payload, err := os.ReadFile(src.result)
		if err != nil {
			return nil, fmt.Errorf("could not read result: %w", err)
		}
		_, err = session.Load(payload)
		return session, err
	case src.bank != "" && src.ledger != "":
		_, err := session.Reconcile(ctx, src.bank, src.ledger, mode)
		return session, err
	case src.sample:
		repo := gateway.NewFileDocumentRepository(nil)
		bank, err := repo.Normalize("sample_bank.csv", []byte(fixtures.SampleBankCSV))
		if err != nil {
			return nil, err
		}
		ledger, err := repo.Normalize("sample_ledger.csv", []byte(fixtures.SampleLedgerCSV))
		if err != nil {
			return nil, err
		}
		_, err = session.ReconcileDocuments(ctx, bank, ledger, mode)
		return session, err
	default:
		return nil, errors.New("pass --result, both --bank and --ledger, or --sample")
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe adds the user-facing message to coded errors.
func describe(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return fmt.Errorf("%s (%w)", apperror.UserMessage(appErr.Code), err)
	}
	return err
}

func reconcileCommand(a *app) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match a bank statement against a ledger and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.loadSession(cmd.Context(), src)
			if err != nil {
				return describe(err)
			}
			result, err := session.Result()
			if err != nil {
				return describe(err)
			}
			return printJSON(result)
		},
	}
	src.register(cmd)
	return cmd
}

func dashboardCommand(a *app) *cobra.Command {
	var src sourceFlags
	var top int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the headline figures of a reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.loadSession(cmd.Context(), src)
			if err != nil {
				return describe(err)
			}
			dashboard, err := session.Dashboard(top)
			if err != nil {
				return describe(err)
			}
			return printJSON(dashboard)
		},
	}
	src.register(cmd)
	cmd.Flags().IntVar(&top, "top", 0, "number of largest unmatched items to list")
	return cmd
}

func recordsCommand(a *app) *cobra.Command {
	var src sourceFlags
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print the filtered matches and unmatched items",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}
			session, err := a.loadSession(cmd.Context(), src)
			if err != nil {
				return describe(err)
			}
			view, err := session.Records(criteria)
			if err != nil {
				return describe(err)
			}
			return printJSON(view)
		},
	}
	src.register(cmd)
	filters.register(cmd)
	return cmd
}

func exportCommand(a *app) *cobra.Command {
	var (
		src      sourceFlags
		filters  filterFlags
		format   string
		sections []string
		label    string
		company  string
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the reconciliation report as CSV, PDF or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			selected, err := export.ParseSections(sections)
			if err != nil {
				return err
			}
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := a.loadSession(ctx, src)
			if err != nil {
				return describe(err)
			}

			sink := gateway.NewFileSink(outDir, a.log.WithField("component", "sink"))
			task, err := session.StartExport(ctx, usecase.ExportRequest{
				Format:      f,
				Sections:    selected,
				Criteria:    criteria,
				Label:       label,
				CompanyName: company,
			}, sink)
			if err != nil {
				return describe(err)
			}
			for p := range task.Progress() {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", p.Percent, p.Status)
			}
			if _, err := task.Wait(); err != nil {
				return describe(err)
			}
			fmt.Println(sink.Written)
			return nil
		},
	}
	src.register(cmd)
	filters.register(cmd)
	cmd.Flags().StringVar(&format, "format", "pdf", "csv, pdf or xlsx")
	cmd.Flags().StringSliceVar(&sections, "sections", []string{"all"}, "summary, matches, unmatched_bank, unmatched_ledger or all")
	cmd.Flags().StringVar(&label, "label", "", "file name label (defaults per format)")
	cmd.Flags().StringVar(&company, "company", "", "company name shown in the report")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

func preferencesCommand(a *app) *cobra.Command {
	var prefs struct {
		theme    string
		company  string
		currency string
	}
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Show or update saved preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.prefs
			changed := false
			if cmd.Flags().Changed("theme") {
				switch prefs.theme {
				case config.ThemeLight, config.ThemeDark:
				default:
					return fmt.Errorf("unknown theme %q", prefs.theme)
				}
				p.Theme, changed = prefs.theme, true
			}
			if cmd.Flags().Changed("company") {
				p.CompanyName, changed = prefs.company, true
			}
			if cmd.Flags().Changed("currency") {
				p.CurrencySymbol, changed = prefs.currency, true
			}
			if changed {
				if err := p.Save(a.prefsPath); err != nil {
					return err
				}
				a.log.WithField("path", a.prefsPath).Info("preferences saved")
			}
			return printJSON(p)
		},
	}
	cmd.Flags().StringVar(&prefs.theme, "theme", "", "light or dark")
	cmd.Flags().StringVar(&prefs.company, "company", "", "default company name")
	cmd.Flags().StringVar(&prefs.currency, "currency", "", "currency symbol")
	return cmd
}
